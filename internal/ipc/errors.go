package ipc

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/SoarinFerret/DutyWarden/internal/engine"
	"github.com/SoarinFerret/DutyWarden/internal/state"
)

// Error kinds, appended to ErrorPrefix.
const (
	KindUnauthorized      = "Unauthorized"
	KindAlreadyActive     = "AlreadyActive"
	KindNotActive         = "NotActive"
	KindNoChallenge       = "NoChallenge"
	KindForbidden         = "Forbidden"
	KindAlreadyAuthorized = "AlreadyAuthorized"
	KindNotAuthorized     = "NotAuthorized"
	KindInvalidUserID     = "InvalidUserID"
	KindPersistence       = "Persistence"
	KindRateLimited       = "RateLimited"
	KindIdentity          = "Identity"
	KindInternal          = "Internal"
)

func newError(kind, message string) *dbus.Error {
	return dbus.NewError(ErrorPrefix+kind, []interface{}{message})
}

var errForbidden = newError(KindForbidden, "You do not have permission to use this command.")

// toDBusError maps an engine or allowlist error onto the message a user
// sees. target is the user id an allowlist operation was about.
func toDBusError(err error, target string) *dbus.Error {
	switch {
	case errors.Is(err, engine.ErrUnauthorized):
		return newError(KindUnauthorized, "You are not authorized to start duty.")
	case errors.Is(err, state.ErrAlreadyActive):
		return newError(KindAlreadyActive, "You are already on duty.")
	case errors.Is(err, state.ErrNotActive):
		return newError(KindNotActive, "You are not on duty.")
	case errors.Is(err, engine.ErrNoChallenge):
		return newError(KindNoChallenge, "There is no reminder waiting for you.")
	case errors.Is(err, state.ErrAlreadyAuthorized):
		return newError(KindAlreadyAuthorized, fmt.Sprintf("User ID `%s` is already authorized.", target))
	case errors.Is(err, state.ErrNotAuthorized):
		return newError(KindNotAuthorized, fmt.Sprintf("User ID `%s` is not in the list.", target))
	case errors.Is(err, state.ErrInvalidUserID):
		return newError(KindInvalidUserID, "Invalid user ID.")
	case errors.Is(err, state.ErrPersistence):
		return newError(KindPersistence, fmt.Sprintf("The change for `%s` is active but could not be saved: %v", target, err))
	case errors.Is(err, engine.ErrClosed):
		return newError(KindInternal, "The duty service is shutting down.")
	default:
		return newError(KindInternal, err.Error())
	}
}
