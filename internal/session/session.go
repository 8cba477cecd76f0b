package session

import (
	"time"

	"github.com/google/uuid"
)

// NewDuty starts a shift for userID at start.
func NewDuty(userID string, start time.Time) Duty {
	if start.IsZero() {
		start = time.Now()
	}
	return Duty{
		UserID:       userID,
		StartTime:    start,
		LastContinue: start,
	}
}

// Elapsed is the shift length so far. It is never negative.
func (d Duty) Elapsed(now time.Time) time.Duration {
	if now.IsZero() {
		now = time.Now()
	}
	if now.Before(d.StartTime) {
		return 0
	}
	return now.Sub(d.StartTime)
}

// Continue records an acknowledged reminder.
func (d *Duty) Continue(at time.Time) {
	if at.IsZero() {
		at = time.Now()
	}
	// last_continue never goes behind the start of the shift
	if at.Before(d.StartTime) {
		at = d.StartTime
	}
	d.LastContinue = at
	d.ContinueCount++
}

// NextReminder is the ordinal shown on the next reminder.
func (d Duty) NextReminder() int {
	return d.ContinueCount + 1
}

// Exceeded reports whether the shift has reached limit.
func (d Duty) Exceeded(now time.Time, limit time.Duration) bool {
	return d.Elapsed(now) >= limit
}

// NewChallenge issues the next reminder for d, open for window.
func (d Duty) NewChallenge(now time.Time, window time.Duration) Challenge {
	return Challenge{
		ID:        uuid.NewString(),
		Ordinal:   d.NextReminder(),
		IssuedAt:  now,
		ExpiresAt: now.Add(window),
	}
}

// Matches reports whether a response carrying id answers c. An empty id
// answers whatever challenge is pending.
func (c Challenge) Matches(id string) bool {
	return id == "" || id == c.ID
}
