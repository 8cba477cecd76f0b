// Package notify delivers duty notifications: direct messages to one user and
// entries on the audit log stream.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnreachable is returned when a direct message has nowhere to go.
var ErrUnreachable = errors.New("user unreachable")

// Field is one named value of a Message.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Action is a button offered with a direct message.
type Action struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Message is a structured notification. Rendering is up to the adapter.
type Message struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Fields      []Field   `json:"fields,omitempty"`
	Time        time.Time `json:"time"`
	// Urgent asks the adapter to keep the message visible until dismissed.
	Urgent bool `json:"urgent,omitempty"`

	Actions []Action `json:"actions,omitempty"`
	// Expires is when the actions stop meaning anything.
	Expires time.Time `json:"expires,omitzero"`
	// OnAction receives the key of the action the user picked, at most once.
	// Adapters that cannot show buttons ignore it.
	OnAction func(key string) `json:"-"`
}

// Add appends a field and returns the message for chaining.
func (m Message) Add(name string, value any) Message {
	m.Fields = append(m.Fields, Field{Name: name, Value: fmt.Sprint(value)})
	return m
}

// Field returns the value of the first field called name.
func (m Message) Field(name string) (string, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Body renders the description and fields as plain text lines.
func (m Message) Body() string {
	var b strings.Builder
	if m.Description != "" {
		b.WriteString(m.Description)
	}
	for _, f := range m.Fields {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", f.Name, f.Value)
	}
	return b.String()
}

type DirectSender interface {
	SendDirect(ctx context.Context, userID string, msg Message) error
}

type LogAppender interface {
	AppendLog(ctx context.Context, msg Message) error
}

// Notifier is everything the duty engine sends out.
type Notifier interface {
	DirectSender
	LogAppender
}

// Port joins a direct-message adapter and an audit adapter into a Notifier.
type Port struct {
	Direct DirectSender
	Log    LogAppender
}

func (p Port) SendDirect(ctx context.Context, userID string, msg Message) error {
	if p.Direct == nil {
		return ErrUnreachable
	}
	return p.Direct.SendDirect(ctx, userID, msg)
}

func (p Port) AppendLog(ctx context.Context, msg Message) error {
	if p.Log == nil {
		return nil
	}
	return p.Log.AppendLog(ctx, msg)
}
