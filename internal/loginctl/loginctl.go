package loginctl

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	destination   = "org.freedesktop.login1"
	managerPath   = "/org/freedesktop/login1"
	managerIface  = "org.freedesktop.login1.Manager"
	sessionIface  = "org.freedesktop.login1.Session"
	busAddressEnv = "DBUS_SESSION_BUS_ADDRESS"
)

// ErrNoSession is returned when a user has no graphical session to reach.
var ErrNoSession = errors.New("no graphical session")

// Conn is the part of *dbus.Conn used to talk to logind.
type Conn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
}

// Session is one entry of logind's ListSessions reply.
type Session struct {
	ID   string
	UID  uint32
	User string
	Seat string
	Path dbus.ObjectPath
}

// candidate carries the properties used to rank a user's sessions.
type candidate struct {
	Session
	Class   string
	Display string
	Type    string
	Active  bool
}

func ListSessions(conn Conn) ([]Session, error) {
	var sessions []Session
	err := conn.Object(destination, managerPath).Call(managerIface+".ListSessions", 0).Store(&sessions)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// FindGraphicalSession returns the session of username that can show desktop
// notifications, preferring the active one.
func FindGraphicalSession(conn Conn, username string) (Session, error) {
	sessions, err := ListSessions(conn)
	if err != nil {
		return Session{}, err
	}

	var candidates []candidate
	for _, s := range sessions {
		if s.User != username {
			continue
		}
		c, err := describe(conn, s)
		if err != nil {
			// sessions can vanish between listing and inspection
			continue
		}
		candidates = append(candidates, c)
	}

	best, ok := choose(candidates)
	if !ok {
		return Session{}, fmt.Errorf("%w for user %s", ErrNoSession, username)
	}
	return best, nil
}

func describe(conn Conn, s Session) (candidate, error) {
	obj := conn.Object(destination, s.Path)
	c := candidate{Session: s}

	props := []struct {
		name string
		dst  any
	}{
		{"Class", &c.Class},
		{"Display", &c.Display},
		{"Type", &c.Type},
		{"Active", &c.Active},
	}
	for _, p := range props {
		v, err := obj.GetProperty(sessionIface + "." + p.name)
		if err != nil {
			return candidate{}, fmt.Errorf("failed to get %s of %s: %w", p.name, s.Path, err)
		}
		if err := v.Store(p.dst); err != nil {
			return candidate{}, fmt.Errorf("unexpected type for %s: %w", p.name, err)
		}
	}
	return c, nil
}

// choose keeps user-class sessions with a display server and ranks active first.
func choose(candidates []candidate) (Session, bool) {
	var fallback *candidate
	for i := range candidates {
		c := &candidates[i]
		if c.Class != "user" {
			continue
		}
		if c.Display == "" && c.Type != "wayland" && c.Type != "x11" {
			continue
		}
		if c.Active {
			return c.Session, true
		}
		if fallback == nil {
			fallback = c
		}
	}
	if fallback == nil {
		return Session{}, false
	}
	return fallback.Session, true
}

// SessionBusAddress reads the session bus address from the environment of the
// session leader.
func SessionBusAddress(conn Conn, s Session) (string, error) {
	obj := conn.Object(destination, s.Path)

	v, err := obj.GetProperty(sessionIface + ".Leader")
	if err != nil {
		return "", fmt.Errorf("failed to get Leader property: %w", err)
	}
	var pid uint32
	if err := v.Store(&pid); err != nil {
		return "", fmt.Errorf("unexpected type for Leader: %w", err)
	}

	addr, err := getEnvFromProc(int(pid), busAddressEnv)
	if err != nil {
		return "", fmt.Errorf("failed to get session bus address from process: %w", err)
	}
	return addr, nil
}
