package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/SoarinFerret/DutyWarden/internal/loginctl"
)

const (
	appName           = "DutyWarden"
	notificationsDest = "org.freedesktop.Notifications"
	notificationsPath = "/org/freedesktop/Notifications"
)

// Desktop sends direct messages as freedesktop notifications on the user's
// graphical session.
type Desktop struct {
	system  loginctl.Conn
	expire  time.Duration
	dialBus func(address string) (*dbus.Conn, error)
	// actionWait bounds how long actions are listened for when a message
	// carries no expiry.
	actionWait time.Duration
	logger     *slog.Logger
}

// NewDesktop uses system (the system bus) to locate sessions through logind.
func NewDesktop(system loginctl.Conn) *Desktop {
	return &Desktop{
		system:     system,
		expire:     10 * time.Second,
		dialBus:    dialSessionBus,
		actionWait: 30 * time.Minute,
		logger:     slog.Default(),
	}
}

// WithLogger sets the logger used by the action listeners.
func (d *Desktop) WithLogger(logger *slog.Logger) *Desktop {
	d.logger = logger
	return d
}

func dialSessionBus(address string) (*dbus.Conn, error) {
	conn, err := dbus.Dial(address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to user session bus: %w", err)
	}
	if err := conn.Auth(nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	if err := conn.Hello(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send hello: %w", err)
	}
	return conn, nil
}

func (d *Desktop) SendDirect(ctx context.Context, userID string, msg Message) error {
	s, err := loginctl.FindGraphicalSession(d.system, userID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	addr, err := loginctl.SessionBusAddress(d.system, s)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	userConn, err := d.dialBus(addr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	listen := msg.OnAction != nil && len(msg.Actions) > 0
	var signals chan *dbus.Signal
	if listen {
		err := userConn.AddMatchSignal(
			dbus.WithMatchInterface(notificationsDest),
			dbus.WithMatchObjectPath(notificationsPath),
		)
		if err != nil {
			// the message still goes out, only without buttons
			d.logger.Warn("failed to watch notification actions", "user", userID, "error", err)
			listen = false
		} else {
			signals = make(chan *dbus.Signal, 8)
			userConn.Signal(signals)
		}
	}

	urgency, expire, icon := byte(1), int32(d.expire/time.Millisecond), "dialog-information"
	if msg.Urgent {
		// critical notifications stay until the user dismisses them
		urgency, expire, icon = 2, 0, "dialog-warning"
	}

	actions := []string{}
	if listen {
		for _, a := range msg.Actions {
			actions = append(actions, a.Key, a.Label)
		}
	}

	obj := userConn.Object(notificationsDest, notificationsPath)
	call := obj.CallWithContext(ctx, notificationsDest+".Notify", 0,
		appName,    // app_name
		uint32(0),  // replaces_id
		icon,       // app_icon
		msg.Title,  // summary
		msg.Body(), // body
		actions,    // actions
		map[string]dbus.Variant{
			"urgency": dbus.MakeVariant(urgency),
		},
		expire,
	)
	var id uint32
	if err := call.Store(&id); err != nil {
		userConn.Close()
		return fmt.Errorf("failed to send notification: %w", err)
	}

	if !listen {
		userConn.Close()
		return nil
	}
	go d.awaitAction(userConn, signals, id, msg)
	return nil
}

// awaitAction hands the first action invoked on notification id to
// msg.OnAction. It owns conn and closes it when the notification is closed or
// its actions expire.
func (d *Desktop) awaitAction(conn *dbus.Conn, signals <-chan *dbus.Signal, id uint32, msg Message) {
	defer conn.Close()

	wait := d.actionWait
	if !msg.Expires.IsZero() {
		wait = time.Until(msg.Expires)
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			// take down buttons that can no longer be used
			conn.Object(notificationsDest, notificationsPath).
				Call(notificationsDest+".CloseNotification", 0, id)
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			key, closed := actionOf(sig, id)
			if key != "" {
				msg.OnAction(key)
				return
			}
			if closed {
				return
			}
		}
	}
}

// actionOf reads an ActionInvoked or NotificationClosed signal for
// notification id.
func actionOf(sig *dbus.Signal, id uint32) (key string, closed bool) {
	if sig == nil || len(sig.Body) < 2 {
		return "", false
	}
	if sid, ok := sig.Body[0].(uint32); !ok || sid != id {
		return "", false
	}
	switch sig.Name {
	case notificationsDest + ".ActionInvoked":
		key, _ = sig.Body[1].(string)
		return key, false
	case notificationsDest + ".NotificationClosed":
		return "", true
	}
	return "", false
}
