package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SoarinFerret/DutyWarden/internal/config"
	"github.com/SoarinFerret/DutyWarden/internal/notify"
	"github.com/SoarinFerret/DutyWarden/internal/state"
)

type sent struct {
	userID string
	msg    notify.Message
}

// recorder is a Notifier that keeps everything it was given.
type recorder struct {
	mu        sync.Mutex
	direct    []sent
	logs      []notify.Message
	directErr error
}

func (r *recorder) SendDirect(_ context.Context, userID string, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.direct = append(r.direct, sent{userID: userID, msg: msg})
	return r.directErr
}

func (r *recorder) AppendLog(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, msg)
	return nil
}

func (r *recorder) logTitles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	titles := make([]string, 0, len(r.logs))
	for _, m := range r.logs {
		titles = append(titles, m.Title)
	}
	return titles
}

func (r *recorder) directTitles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	titles := make([]string, 0, len(r.direct))
	for _, s := range r.direct {
		titles = append(titles, s.msg.Title)
	}
	return titles
}

func (r *recorder) countLogs(titles ...string) int {
	n := 0
	for _, got := range r.logTitles() {
		for _, want := range titles {
			if got == want {
				n++
			}
		}
	}
	return n
}

func (r *recorder) lastLog(title string) (notify.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].Title == title {
			return r.logs[i], true
		}
	}
	return notify.Message{}, false
}

type allowSet map[string]bool

func (a allowSet) Contains(userID string) bool { return a[userID] }

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *clock { return &clock{t: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *clock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var t0 = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

func dutyConfig(interval, window, max time.Duration) config.DutyConfig {
	return config.DutyConfig{
		ReminderMin: config.Duration(interval),
		ReminderMax: config.Duration(interval),
		AckWindow:   config.Duration(window),
		MaxDuration: config.Duration(max),
	}
}

func newTestEngine(t *testing.T, cfg config.DutyConfig, n notify.Notifier, opts ...Option) (*Engine, *state.Registry) {
	t.Helper()
	reg := state.NewRegistry()
	e := NewEngine(reg, allowSet{"alice": true, "bob": true, "carol": true}, n, cfg, opts...)
	t.Cleanup(e.Close)
	return e, reg
}

const (
	waitFor = 2 * time.Second
	tick    = 2 * time.Millisecond
)
