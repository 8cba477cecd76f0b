package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/SoarinFerret/DutyWarden/internal/session"
	"github.com/SoarinFerret/DutyWarden/internal/state"
)

// outcome is how one reminder cycle ended.
type outcome int

const (
	outcomeContinued outcome = iota
	outcomeSilence
	outcomeExceeded
	outcomeUndelivered
	outcomeEnded
)

func (o outcome) String() string {
	switch o {
	case outcomeContinued:
		return "continued"
	case outcomeSilence:
		return "silence"
	case outcomeExceeded:
		return "exceeded"
	case outcomeUndelivered:
		return "undelivered"
	case outcomeEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// remind is the reminder loop of one duty. It exits when the duty is removed
// from the registry or the engine closes.
func (e *Engine) remind(ctx context.Context, userID string, acks <-chan session.Duty) {
	defer e.wg.Done()

	for {
		if !sleep(ctx, e.interval()) {
			return
		}

		o := e.challenge(ctx, userID, acks)
		e.logger.Debug("reminder cycle finished", "user", userID, "outcome", o)

		switch o {
		case outcomeContinued:
			continue
		case outcomeSilence:
			e.autoEnd(ctx, userID, ReasonNoResponse)
		case outcomeExceeded:
			e.autoEnd(ctx, userID, e.limitReason())
		case outcomeUndelivered:
			e.awaitLimit(ctx, userID)
		}
		return
	}
}

// challenge issues one reminder and waits for its answer. The reminder is
// only published for answers once it has been delivered and logged.
func (e *Engine) challenge(ctx context.Context, userID string, acks <-chan session.Duty) outcome {
	duty, ok := e.registry.Get(userID)
	if !ok || ctx.Err() != nil {
		// ended while sleeping
		return outcomeEnded
	}
	window := e.cfg.AckWindow.Std()
	ch := duty.NewChallenge(e.now(), window)

	msg := reminderMessage(userID, ch, window)
	msg.OnAction = e.reminderAction(userID, ch.ID)

	dctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	err := e.notifier.SendDirect(dctx, userID, msg)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return outcomeEnded
		}
		e.logger.Warn("failed to deliver reminder", "reminder", ch.Ordinal,
			"error", &DeliveryError{UserID: userID, Err: err})
		return outcomeUndelivered
	}

	err = e.registry.Sequence(userID, func() error {
		// ours ended; whatever is registered now is a newer duty
		if ctx.Err() != nil {
			return state.ErrNotActive
		}
		err := e.registry.Update(userID, func(rec *state.Record) error {
			ch.ExpiresAt = e.now().Add(window)
			pending := ch
			rec.Pending = &pending
			return nil
		})
		if err != nil {
			return err
		}
		e.audit(ctx, reminderSentMessage(userID, ch))
		return nil
	})
	if err != nil {
		return outcomeEnded
	}

	timer := time.NewTimer(window)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return outcomeEnded
	case duty := <-acks:
		return e.continued(duty)
	case <-timer.C:
	}

	if e.withdraw(userID, ch.ID) {
		return outcomeSilence
	}
	// answered or ended right as the window closed
	return e.resolve(ctx, acks)
}

// withdraw takes back challenge id. Exactly one of withdraw and Continue
// succeeds for a given challenge.
func (e *Engine) withdraw(userID, id string) bool {
	err := e.registry.Update(userID, func(rec *state.Record) error {
		if rec.Pending == nil || rec.Pending.ID != id {
			return ErrNoChallenge
		}
		rec.Pending = nil
		return nil
	})
	return err == nil
}

// resolve waits for the outcome that beat withdraw: an acknowledgement
// already in the channel, or the end of the duty.
func (e *Engine) resolve(ctx context.Context, acks <-chan session.Duty) outcome {
	select {
	case <-ctx.Done():
		return outcomeEnded
	case duty := <-acks:
		return e.continued(duty)
	}
}

// continued decides what follows an acknowledgement Continue has already
// logged.
func (e *Engine) continued(duty session.Duty) outcome {
	if duty.Exceeded(e.now(), e.cfg.MaxDuration.Std()) {
		return outcomeExceeded
	}
	return outcomeContinued
}

// awaitLimit keeps an unreachable duty until the maximum duration ends it.
func (e *Engine) awaitLimit(ctx context.Context, userID string) {
	duty, ok := e.registry.Get(userID)
	if !ok {
		return
	}
	if wait := duty.StartTime.Add(e.cfg.MaxDuration.Std()).Sub(e.now()); wait > 0 {
		if !sleep(ctx, wait) {
			return
		}
	}
	e.autoEnd(ctx, userID, e.limitReason())
}

// autoEnd ends the duty served by the loop owning ctx. A cancelled loop means
// the duty already ended or the engine is closing.
func (e *Engine) autoEnd(ctx context.Context, userID, reason string) {
	e.terminate(ctx, ctx, userID, true, reason)
}

// limitReason renders the maximum duration the way users know it
// ("12-hour limit reached").
func (e *Engine) limitReason() string {
	limit := e.cfg.MaxDuration.Std()
	if limit >= time.Hour && limit%time.Hour == 0 {
		return fmt.Sprintf("%d-hour limit reached", limit/time.Hour)
	}
	return fmt.Sprintf("%s limit reached", limit)
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
