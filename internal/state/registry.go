package state

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/SoarinFerret/DutyWarden/internal/session"
)

var (
	ErrAlreadyActive = errors.New("already on duty")
	ErrNotActive     = errors.New("not on duty")
)

// Record is a registry entry: the duty plus the state its reminder loop
// coordinates through.
type Record struct {
	Duty session.Duty
	// Pending is the challenge awaiting an answer, nil while the loop sleeps.
	Pending *session.Challenge
	// Acks carries the duty snapshot of an acknowledged challenge to the loop.
	// Buffered; at most one value per challenge.
	Acks chan session.Duty

	cancel context.CancelFunc
	// seq orders the transitions of this duty together with their side
	// effects. It is only acquired while the registry lock is not held.
	seq sync.Mutex
}

func NewRecord(duty session.Duty, cancel context.CancelFunc) *Record {
	if cancel == nil {
		cancel = func() {}
	}
	return &Record{
		Duty:   duty,
		Acks:   make(chan session.Duty, 1),
		cancel: cancel,
	}
}

// Registry is the authoritative set of active duties, keyed by user id.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func NewRegistry() *Registry {
	return &Registry{records: make(map[string]*Record)}
}

// Create registers rec unless its user is already on duty.
func (r *Registry) Create(rec *Record) error {
	return r.CreateThen(rec, nil)
}

// CreateThen registers rec and runs then before any Sequence call on the new
// duty can proceed. then is not run when the user is already on duty.
func (r *Registry) CreateThen(rec *Record, then func()) error {
	rec.seq.Lock()
	defer rec.seq.Unlock()

	r.mu.Lock()
	if _, exists := r.records[rec.Duty.UserID]; exists {
		r.mu.Unlock()
		return ErrAlreadyActive
	}
	r.records[rec.Duty.UserID] = rec
	r.mu.Unlock()

	if then != nil {
		then()
	}
	return nil
}

// Sequence runs fn exclusively with every other Sequence call on the duty of
// userID. fn may call Update and Remove and perform I/O; other users are not
// blocked. Returns ErrNotActive when userID is not on duty.
func (r *Registry) Sequence(userID string, fn func() error) error {
	for {
		r.mu.RLock()
		rec, ok := r.records[userID]
		r.mu.RUnlock()
		if !ok {
			return ErrNotActive
		}

		if done, err := r.sequence(userID, rec, fn); done {
			return err
		}
		// removed or replaced while waiting; look again
	}
}

func (r *Registry) sequence(userID string, rec *Record, fn func() error) (bool, error) {
	rec.seq.Lock()
	defer rec.seq.Unlock()

	r.mu.RLock()
	current := r.records[userID]
	r.mu.RUnlock()
	if current != rec {
		return false, nil
	}
	return true, fn()
}

func (r *Registry) Get(userID string) (session.Duty, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[userID]
	if !ok {
		return session.Duty{}, false
	}
	return rec.Duty, true
}

// Pending returns the challenge userID has yet to answer.
func (r *Registry) Pending(userID string) (session.Challenge, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[userID]
	if !ok || rec.Pending == nil {
		return session.Challenge{}, false
	}
	return *rec.Pending, true
}

// Update applies fn to the record of userID while holding the registry lock.
// fn must not block or keep the pointer. An error from fn is returned as is.
func (r *Registry) Update(userID string, fn func(rec *Record) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[userID]
	if !ok {
		return ErrNotActive
	}
	return fn(rec)
}

// Remove deletes the duty of userID and fires its cancel signal. Only one of
// several concurrent callers gets ok == true.
func (r *Registry) Remove(userID string) (session.Duty, bool) {
	r.mu.Lock()
	rec, ok := r.records[userID]
	if ok {
		delete(r.records, userID)
	}
	r.mu.Unlock()

	if !ok {
		return session.Duty{}, false
	}
	rec.cancel()
	return rec.Duty, true
}

// List returns a snapshot of all duties, oldest shift first.
func (r *Registry) List() []session.Duty {
	r.mu.RLock()
	duties := make([]session.Duty, 0, len(r.records))
	for _, rec := range r.records {
		duties = append(duties, rec.Duty)
	}
	r.mu.RUnlock()

	sort.Slice(duties, func(i, j int) bool {
		if duties[i].StartTime.Equal(duties[j].StartTime) {
			return duties[i].UserID < duties[j].UserID
		}
		return duties[i].StartTime.Before(duties[j].StartTime)
	})
	return duties
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
