package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/SoarinFerret/DutyWarden/internal/config"
	"github.com/SoarinFerret/DutyWarden/internal/notify"
	"github.com/SoarinFerret/DutyWarden/internal/session"
	"github.com/SoarinFerret/DutyWarden/internal/state"
)

const (
	ReasonNoResponse = "No response to reminder"

	// Reminder actions offered with each direct reminder.
	ActionContinue = "continue"
	ActionEnd      = "end"

	// deliveryTimeout bounds a single direct message.
	deliveryTimeout = 10 * time.Second
)

var (
	ErrUnauthorized = errors.New("not authorized to start duty")
	ErrNoChallenge  = errors.New("no pending reminder")
	ErrClosed       = errors.New("duty engine closed")
)

// DeliveryError is a direct message that could not reach its user. It is
// never retried.
type DeliveryError struct {
	UserID string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver message to %s: %v", e.UserID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Authorizer answers whether a user may start a duty.
type Authorizer interface {
	Contains(userID string) bool
}

// Engine starts, continues and ends duties, and runs one reminder loop per
// active duty.
type Engine struct {
	registry *state.Registry
	allow    Authorizer
	notifier notify.Notifier
	cfg      config.DutyConfig
	logger   *slog.Logger
	now      func() time.Time
	interval func() time.Duration

	ctx    context.Context
	stop   context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock replaces time.Now for timestamps and elapsed-time checks. Waits
// still run on real time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithInterval replaces the random pause before each reminder.
func WithInterval(next func() time.Duration) Option {
	return func(e *Engine) { e.interval = next }
}

// NewEngine creates a new duty engine instance
func NewEngine(registry *state.Registry, allow Authorizer, notifier notify.Notifier, cfg config.DutyConfig, opts ...Option) *Engine {
	ctx, stop := context.WithCancel(context.Background())
	e := &Engine{
		registry: registry,
		allow:    allow,
		notifier: notifier,
		cfg:      cfg,
		logger:   slog.Default(),
		now:      time.Now,
		ctx:      ctx,
		stop:     stop,
	}
	e.interval = func() time.Duration {
		return randomInterval(e.cfg.ReminderMin.Std(), e.cfg.ReminderMax.Std())
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// randomInterval draws uniformly from [min, max].
func randomInterval(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min+1)))
}

// Run blocks until ctx is done, then stops every reminder loop.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("duty engine started",
		"reminder_min", e.cfg.ReminderMin.Std(),
		"reminder_max", e.cfg.ReminderMax.Std(),
		"ack_window", e.cfg.AckWindow.Std(),
		"max_duration", e.cfg.MaxDuration.Std())

	select {
	case <-ctx.Done():
	case <-e.ctx.Done():
	}

	e.logger.Info("duty engine shutting down", "active", e.registry.Len())
	e.Close()
	return nil
}

// Close stops all reminder loops and waits for them. Active duties are
// dropped without termination entries.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.stop()
	e.wg.Wait()
}

// Start puts userID on duty and schedules its first reminder.
func (e *Engine) Start(ctx context.Context, userID string) (session.Duty, error) {
	if !e.allow.Contains(userID) {
		return session.Duty{}, ErrUnauthorized
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return session.Duty{}, ErrClosed
	}
	e.wg.Add(1)
	e.mu.Unlock()

	loopCtx, cancel := context.WithCancel(e.ctx)
	rec := state.NewRecord(session.NewDuty(userID, e.now()), cancel)
	duty := rec.Duty
	err := e.registry.CreateThen(rec, func() {
		e.audit(ctx, startedMessage(duty))
	})
	if err != nil {
		cancel()
		e.wg.Done()
		return session.Duty{}, err
	}
	e.logger.Info("duty started", "user", userID)

	go e.remind(loopCtx, userID, rec.Acks)
	return duty, nil
}

// Continue answers the pending reminder of userID. An empty challengeID
// answers whichever reminder is pending.
func (e *Engine) Continue(ctx context.Context, userID, challengeID string) (session.Duty, error) {
	var duty session.Duty
	err := e.registry.Sequence(userID, func() error {
		err := e.registry.Update(userID, func(rec *state.Record) error {
			if rec.Pending == nil || !rec.Pending.Matches(challengeID) {
				return ErrNoChallenge
			}
			rec.Duty.Continue(e.now())
			rec.Pending = nil
			duty = rec.Duty
			select {
			case rec.Acks <- duty:
			default:
			}
			return nil
		})
		if err != nil {
			return err
		}
		e.audit(ctx, continuedMessage(duty, e.now()))
		return nil
	})
	if err != nil {
		return session.Duty{}, err
	}
	return duty, nil
}

// End is the explicit end of a duty by its user.
func (e *Engine) End(ctx context.Context, userID string) (session.Duty, error) {
	duty, ok := e.Terminate(ctx, userID, false, "")
	if !ok {
		return session.Duty{}, state.ErrNotActive
	}
	return duty, nil
}

// Terminate removes the duty of userID and reports it. It returns false when
// the duty was already gone, so only one caller ever reports an end.
func (e *Engine) Terminate(ctx context.Context, userID string, auto bool, reason string) (session.Duty, bool) {
	return e.terminate(ctx, nil, userID, auto, reason)
}

// terminate ends the duty unless loop is done. A reminder loop passes its own
// context so it never ends a duty that replaced the one it served.
func (e *Engine) terminate(ctx, loop context.Context, userID string, auto bool, reason string) (session.Duty, bool) {
	// the caller may be the loop whose context Remove cancels
	ctx = context.WithoutCancel(ctx)

	var duty session.Duty
	var now time.Time
	err := e.registry.Sequence(userID, func() error {
		if loop != nil && loop.Err() != nil {
			return state.ErrNotActive
		}
		var ok bool
		if duty, ok = e.registry.Remove(userID); !ok {
			return state.ErrNotActive
		}
		now = e.now()
		e.audit(ctx, endedMessage(duty, now, auto, reason))
		return nil
	})
	if err != nil {
		return session.Duty{}, false
	}

	e.logger.Info("duty ended", "user", userID, "auto", auto, "reason", reason,
		"duration", duty.Elapsed(now).Round(time.Second), "continues", duty.ContinueCount)

	if auto {
		dctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
		defer cancel()
		if err := e.notifier.SendDirect(dctx, userID, autoEndedNotice(duty, now, reason)); err != nil {
			e.logger.Warn("failed to notify user of automatic end", "error", &DeliveryError{UserID: userID, Err: err})
		}
	}
	return duty, true
}

func (e *Engine) Get(userID string) (session.Duty, bool) {
	return e.registry.Get(userID)
}

// Pending returns the reminder userID has to answer, if any.
func (e *Engine) Pending(userID string) (session.Challenge, bool) {
	return e.registry.Pending(userID)
}

// Duties lists every active duty, oldest first.
func (e *Engine) Duties() []session.Duty {
	return e.registry.List()
}

// Elapsed is the current length of duty.
func (e *Engine) Elapsed(duty session.Duty) time.Duration {
	return duty.Elapsed(e.now())
}

func (e *Engine) audit(ctx context.Context, msg notify.Message) {
	if err := e.notifier.AppendLog(ctx, msg); err != nil {
		e.logger.Error("failed to append audit entry", "title", msg.Title, "error", err)
	}
}

// reminderAction handles a button picked on the reminder for challengeID.
func (e *Engine) reminderAction(userID, challengeID string) func(key string) {
	return func(key string) {
		var err error
		switch key {
		case ActionContinue:
			_, err = e.Continue(context.Background(), userID, challengeID)
		case ActionEnd:
			_, err = e.End(context.Background(), userID)
		default:
			e.logger.Warn("unknown reminder action", "user", userID, "action", key)
			return
		}
		if err != nil {
			e.logger.Info("reminder action rejected", "user", userID, "action", key, "error", err)
		}
	}
}
