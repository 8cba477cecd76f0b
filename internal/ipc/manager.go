package ipc

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/SoarinFerret/DutyWarden/internal/config"
	"github.com/SoarinFerret/DutyWarden/internal/session"
)

// Duties is the part of the duty engine exposed on the bus.
type Duties interface {
	Start(ctx context.Context, userID string) (session.Duty, error)
	Continue(ctx context.Context, userID, challengeID string) (session.Duty, error)
	End(ctx context.Context, userID string) (session.Duty, error)
	Pending(userID string) (session.Challenge, bool)
	Duties() []session.Duty
	Elapsed(duty session.Duty) time.Duration
}

// Authorized is the editable set of users allowed to go on duty.
type Authorized interface {
	Add(userID string) error
	Remove(userID string) error
	List() []string
}

type Roles interface {
	IsAdmin(username string) bool
}

// DutyManager is the object exported on the system bus. Every method takes
// the caller's identity from the bus, never from its arguments.
type DutyManager struct {
	duties   Duties
	allow    Authorized
	roles    Roles
	identity Identifier
	limits   *callerLimits
	logger   *slog.Logger
}

func NewDutyManager(duties Duties, allow Authorized, roles Roles, identity Identifier, cfg config.AuthConfig, logger *slog.Logger) *DutyManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &DutyManager{
		duties:   duties,
		allow:    allow,
		roles:    roles,
		identity: identity,
		limits:   newCallerLimits(cfg.RateLimit, cfg.RateBurst),
		logger:   logger,
	}
}

// caller identifies and throttles the sender of a call.
func (m *DutyManager) caller(sender dbus.Sender) (string, *dbus.Error) {
	user, err := m.identity.Identify(sender)
	if err != nil {
		m.logger.Warn("failed to identify caller", "sender", sender, "error", err)
		return "", newError(KindIdentity, "Could not identify the calling user.")
	}
	if !m.limits.Allow(user) {
		m.logger.Warn("rate limit exceeded", "user", user)
		return "", newError(KindRateLimited, "Too many requests, try again shortly.")
	}
	return user, nil
}

func (m *DutyManager) admin(sender dbus.Sender) (string, *dbus.Error) {
	user, derr := m.caller(sender)
	if derr != nil {
		return "", derr
	}
	if !m.roles.IsAdmin(user) {
		return "", errForbidden
	}
	return user, nil
}

func encode(v any) (string, *dbus.Error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", newError(KindInternal, err.Error())
	}
	return string(data), nil
}

func (m *DutyManager) status(duty session.Duty) DutyStatus {
	return NewDutyStatus(duty, m.duties.Elapsed(duty))
}

func (m *DutyManager) GetStatus() (string, *dbus.Error) {
	return "Service is running", nil
}

func (m *DutyManager) StartDuty(sender dbus.Sender) (string, *dbus.Error) {
	user, derr := m.caller(sender)
	if derr != nil {
		return "", derr
	}
	duty, err := m.duties.Start(context.Background(), user)
	if err != nil {
		return "", toDBusError(err, user)
	}
	return encode(m.status(duty))
}

func (m *DutyManager) EndDuty(sender dbus.Sender) (string, *dbus.Error) {
	user, derr := m.caller(sender)
	if derr != nil {
		return "", derr
	}
	duty, err := m.duties.End(context.Background(), user)
	if err != nil {
		return "", toDBusError(err, user)
	}
	return encode(m.status(duty))
}

// ContinueDuty answers the pending reminder. An empty challengeID answers
// whichever reminder is pending.
func (m *DutyManager) ContinueDuty(sender dbus.Sender, challengeID string) (string, *dbus.Error) {
	user, derr := m.caller(sender)
	if derr != nil {
		return "", derr
	}
	duty, err := m.duties.Continue(context.Background(), user, challengeID)
	if err != nil {
		return "", toDBusError(err, user)
	}
	return encode(m.status(duty))
}

func (m *DutyManager) PendingReminder(sender dbus.Sender) (string, *dbus.Error) {
	user, derr := m.caller(sender)
	if derr != nil {
		return "", derr
	}
	ch, ok := m.duties.Pending(user)
	if !ok {
		return "", newError(KindNoChallenge, "There is no reminder waiting for you.")
	}
	remaining := time.Until(ch.ExpiresAt)
	if remaining < 0 {
		remaining = 0
	}
	return encode(Reminder{Challenge: ch, Remaining: int64(remaining / time.Second)})
}

func (m *DutyManager) AddAuthorized(sender dbus.Sender, userID string) (string, *dbus.Error) {
	admin, derr := m.admin(sender)
	if derr != nil {
		return "", derr
	}
	if err := m.allow.Add(userID); err != nil {
		m.logger.Warn("failed to authorize user", "admin", admin, "user", userID, "error", err)
		return "", toDBusError(err, userID)
	}
	m.logger.Info("user authorized", "admin", admin, "user", userID)
	return "User ID `" + userID + "` has been authorized.", nil
}

func (m *DutyManager) RemoveAuthorized(sender dbus.Sender, userID string) (string, *dbus.Error) {
	admin, derr := m.admin(sender)
	if derr != nil {
		return "", derr
	}
	if err := m.allow.Remove(userID); err != nil {
		m.logger.Warn("failed to revoke user", "admin", admin, "user", userID, "error", err)
		return "", toDBusError(err, userID)
	}
	m.logger.Info("user revoked", "admin", admin, "user", userID)
	return "User ID `" + userID + "` has been removed from the authorized list.", nil
}

func (m *DutyManager) ListAuthorized(sender dbus.Sender) (string, *dbus.Error) {
	if _, derr := m.admin(sender); derr != nil {
		return "", derr
	}
	return encode(m.allow.List())
}

func (m *DutyManager) ListDuties(sender dbus.Sender) (string, *dbus.Error) {
	if _, derr := m.admin(sender); derr != nil {
		return "", derr
	}
	duties := m.duties.Duties()
	out := make([]DutyStatus, 0, len(duties))
	for _, d := range duties {
		out = append(out, m.status(d))
	}
	return encode(out)
}
