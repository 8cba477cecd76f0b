package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Audit writes each message as one JSON object per line.
type Audit struct {
	handler slog.Handler
	closer  io.Closer
}

func NewAudit(w io.Writer) *Audit {
	return &Audit{handler: slog.NewJSONHandler(w, nil)}
}

// OpenAudit appends to the file at path, creating it and its directory.
func OpenAudit(path string) (*Audit, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0640)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	a := NewAudit(f)
	a.closer = f
	return a, nil
}

// AppendLog writes msg stamped with msg.Time. Write errors are returned.
func (a *Audit) AppendLog(ctx context.Context, msg Message) error {
	r := slog.NewRecord(msg.Time, slog.LevelInfo, msg.Title, 0)
	if msg.Description != "" {
		r.AddAttrs(slog.String("description", msg.Description))
	}
	if len(msg.Fields) > 0 {
		fields := make([]any, 0, len(msg.Fields))
		for _, f := range msg.Fields {
			fields = append(fields, slog.String(f.Name, f.Value))
		}
		r.AddAttrs(slog.Group("fields", fields...))
	}
	return a.handler.Handle(ctx, r)
}

func (a *Audit) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
