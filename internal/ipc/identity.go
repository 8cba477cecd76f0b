package ipc

import (
	"fmt"
	"os/user"
	"strconv"

	"github.com/godbus/dbus/v5"
)

// Identifier resolves the user behind a D-Bus caller.
type Identifier interface {
	Identify(sender dbus.Sender) (string, error)
}

// BusIdentifier asks the bus daemon for the Unix uid of a connection.
type BusIdentifier struct {
	bus    dbus.BusObject
	lookup func(uid string) (*user.User, error)
}

func NewBusIdentifier(conn *dbus.Conn) *BusIdentifier {
	return &BusIdentifier{bus: conn.BusObject(), lookup: user.LookupId}
}

func (b *BusIdentifier) Identify(sender dbus.Sender) (string, error) {
	var uid uint32
	err := b.bus.Call("org.freedesktop.DBus.GetConnectionUnixUser", 0, string(sender)).Store(&uid)
	if err != nil {
		return "", fmt.Errorf("failed to get unix user of %s: %w", sender, err)
	}

	u, err := b.lookup(strconv.FormatUint(uint64(uid), 10))
	if err != nil {
		return "", fmt.Errorf("failed to look up uid %d: %w", uid, err)
	}
	return u.Username, nil
}
