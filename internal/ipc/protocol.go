package ipc

import (
	"time"

	"github.com/SoarinFerret/DutyWarden/internal/session"
)

const (
	ObjectPath    = "/io/github/soarinferret/dutywarden"
	InterfaceName = "io.github.soarinferret.dutywarden.Manager"
	ServiceName   = "io.github.soarinferret.dutywarden"

	// ErrorPrefix prefixes every D-Bus error name the service returns.
	ErrorPrefix = ServiceName + ".Error."
)

// DutyStatus is the JSON reply describing one duty.
type DutyStatus struct {
	UserID        string    `json:"user_id"`
	StartTime     time.Time `json:"start"`
	LastContinue  time.Time `json:"last_continue"`
	ContinueCount int       `json:"continues"`
	// Elapsed is whole seconds on duty at the time of the reply.
	Elapsed int64 `json:"elapsed"`
}

func NewDutyStatus(duty session.Duty, elapsed time.Duration) DutyStatus {
	return DutyStatus{
		UserID:        duty.UserID,
		StartTime:     duty.StartTime,
		LastContinue:  duty.LastContinue,
		ContinueCount: duty.ContinueCount,
		Elapsed:       int64(elapsed / time.Second),
	}
}

func (s DutyStatus) ElapsedDuration() time.Duration {
	return time.Duration(s.Elapsed) * time.Second
}

// Reminder is the JSON reply of PendingReminder.
type Reminder struct {
	session.Challenge
	Remaining int64 `json:"remaining"`
}
