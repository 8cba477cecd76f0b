package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"
)

var (
	ErrAlreadyAuthorized = errors.New("already authorized")
	ErrNotAuthorized     = errors.New("not in the list")
	ErrInvalidUserID     = errors.New("invalid user ID")
	ErrPersistence       = errors.New("failed to persist authorized users")
)

const maxUserIDLength = 256

// Allowlist is the set of users permitted to start a duty, backed by a JSON file.
type Allowlist struct {
	path  string
	mu    sync.RWMutex
	users map[string]struct{}
}

// NewAllowlist loads the set stored at path. A missing file is an empty set.
func NewAllowlist(path string) (*Allowlist, error) {
	a := &Allowlist{path: path, users: make(map[string]struct{})}

	if err := a.load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return a, nil
		}
		return nil, fmt.Errorf("failed to load allowlist %s: %w", path, err)
	}
	return a, nil
}

// load reads the JSON array at a.path. Numeric ids, as written by the
// original chat bot, are accepted and kept in their decimal form.
func (a *Allowlist) load() error {
	data, err := os.ReadFile(a.path)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	for _, v := range raw {
		var id string
		switch val := v.(type) {
		case string:
			id = val
		case json.Number:
			id = val.String()
		default:
			return fmt.Errorf("unexpected entry %v in allowlist", v)
		}
		if err := ValidateUserID(id); err != nil {
			return fmt.Errorf("entry %q: %w", id, err)
		}
		a.users[id] = struct{}{}
	}
	return nil
}

// save atomically writes the set to disk. Callers hold a.mu.
func (a *Allowlist) save() error {
	data, err := json.MarshalIndent(a.sorted(), "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return err
	}

	tmp := a.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, a.path)
}

func (a *Allowlist) sorted() []string {
	ids := make([]string, 0, len(a.users))
	for id := range a.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Add authorizes userID. The in-memory set changes even when saving fails;
// the returned error then wraps ErrPersistence.
func (a *Allowlist) Add(userID string) error {
	if err := ValidateUserID(userID); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.users[userID]; ok {
		return ErrAlreadyAuthorized
	}
	a.users[userID] = struct{}{}
	if err := a.save(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// Remove revokes userID, with the same persistence semantics as Add.
func (a *Allowlist) Remove(userID string) error {
	if err := ValidateUserID(userID); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.users[userID]; !ok {
		return ErrNotAuthorized
	}
	delete(a.users, userID)
	if err := a.save(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

func (a *Allowlist) Contains(userID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.users[userID]
	return ok
}

// List returns the authorized ids in sorted order.
func (a *Allowlist) List() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sorted()
}

func (a *Allowlist) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.users)
}

// ValidateUserID rejects empty, oversized and whitespace-bearing ids.
func ValidateUserID(userID string) error {
	if userID == "" || len(userID) > maxUserIDLength {
		return ErrInvalidUserID
	}
	if strings.IndexFunc(userID, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) >= 0 {
		return ErrInvalidUserID
	}
	return nil
}
