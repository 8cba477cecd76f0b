package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMessage_AddAndBody(t *testing.T) {
	msg := Message{Title: "Duty Reminder", Description: "Please confirm."}.
		Add("Reminder", "#2").
		Add("Count", 3)

	v, ok := msg.Field("Count")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
	_, ok = msg.Field("Missing")
	assert.False(t, ok)

	assert.Equal(t, "Please confirm.\nReminder: #2\nCount: 3", msg.Body())
	assert.Equal(t, "A: b", Message{}.Add("A", "b").Body())
}

func TestAudit_AppendLog(t *testing.T) {
	var buf bytes.Buffer
	a := NewAudit(&buf)
	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	require.NoError(t, a.AppendLog(context.Background(), Message{Title: "Duty Started", Time: at}.
		Add("User", "alice").
		Add("Start Time", "Saturday, 01 March 2025 09:30 AM")))
	require.NoError(t, a.AppendLog(context.Background(), Message{Title: "Duty Ended", Time: at}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var entry struct {
		Time   time.Time         `json:"time"`
		Msg    string            `json:"msg"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "Duty Started", entry.Msg)
	assert.True(t, entry.Time.Equal(at))
	assert.Equal(t, "alice", entry.Fields["User"])
	assert.Equal(t, "Saturday, 01 March 2025 09:30 AM", entry.Fields["Start Time"])
}

func TestOpenAudit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.jsonl")
	a, err := OpenAudit(path)
	require.NoError(t, err)

	require.NoError(t, a.AppendLog(context.Background(), Message{Title: "Duty Started", Time: time.Now()}))
	require.NoError(t, a.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Duty Started"`)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestAudit_WriteError(t *testing.T) {
	a := NewAudit(failingWriter{})
	assert.Error(t, a.AppendLog(context.Background(), Message{Title: "Duty Started"}))
}

type mockDirect struct{ mock.Mock }

func (m *mockDirect) SendDirect(ctx context.Context, userID string, msg Message) error {
	return m.Called(userID, msg.Title).Error(0)
}

type mockLog struct{ mock.Mock }

func (m *mockLog) AppendLog(ctx context.Context, msg Message) error {
	return m.Called(msg.Title).Error(0)
}

func TestPort(t *testing.T) {
	direct := &mockDirect{}
	direct.On("SendDirect", "alice", "Duty Reminder").Return(nil)
	log := &mockLog{}
	log.On("AppendLog", "Reminder Sent").Return(nil)

	p := Port{Direct: direct, Log: log}
	assert.NoError(t, p.SendDirect(context.Background(), "alice", Message{Title: "Duty Reminder"}))
	assert.NoError(t, p.AppendLog(context.Background(), Message{Title: "Reminder Sent"}))
	direct.AssertExpectations(t)
	log.AssertExpectations(t)
}

func TestPort_Unconfigured(t *testing.T) {
	var p Port
	assert.ErrorIs(t, p.SendDirect(context.Background(), "alice", Message{}), ErrUnreachable)
	assert.NoError(t, p.AppendLog(context.Background(), Message{}))
}

func TestActionOf(t *testing.T) {
	const invoked = notificationsDest + ".ActionInvoked"
	const closedSig = notificationsDest + ".NotificationClosed"

	tests := []struct {
		name       string
		sig        *dbus.Signal
		wantKey    string
		wantClosed bool
	}{
		{"Action on our notification", &dbus.Signal{Name: invoked, Body: []interface{}{uint32(7), "continue"}}, "continue", false},
		{"Action on another notification", &dbus.Signal{Name: invoked, Body: []interface{}{uint32(8), "end"}}, "", false},
		{"Our notification closed", &dbus.Signal{Name: closedSig, Body: []interface{}{uint32(7), uint32(2)}}, "", true},
		{"Other signal", &dbus.Signal{Name: notificationsDest + ".ActivationToken", Body: []interface{}{uint32(7), "tok"}}, "", false},
		{"Short body", &dbus.Signal{Name: invoked, Body: []interface{}{uint32(7)}}, "", false},
		{"Nil signal", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, closed := actionOf(tt.sig, 7)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantClosed, closed)
		})
	}
}

func TestMessage_ActionsAreNotSerializedAsCallback(t *testing.T) {
	msg := Message{
		Title:    "Duty Reminder",
		Actions:  []Action{{Key: "continue", Label: "Continue Duty"}},
		OnAction: func(string) {},
	}
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"key":"continue"`)
	assert.NotContains(t, string(data), "expires")
}
