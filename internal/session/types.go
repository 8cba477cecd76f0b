package session

import "time"

// Duty is one user's active shift.
type Duty struct {
	UserID        string    `json:"user_id"`
	StartTime     time.Time `json:"start"`
	LastContinue  time.Time `json:"last_continue"`
	ContinueCount int       `json:"continues"`
}

// Challenge is a reminder waiting for the user to confirm they are still on duty.
type Challenge struct {
	ID        string    `json:"id"`
	Ordinal   int       `json:"ordinal"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
