package engine

import (
	"testing"
	"time"

	"github.com/SoarinFerret/DutyWarden/internal/session"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Duration
		expected string
	}{
		{"Zero", 0, "0:00:00"},
		{"Seconds", 42 * time.Second, "0:00:42"},
		{"Minutes", 5 * time.Minute, "0:05:00"},
		{"Hours and minutes", 2*time.Hour + 30*time.Minute, "2:30:00"},
		{"Sub-second dropped", time.Hour + 1500*time.Millisecond, "1:00:01"},
		{"Twelve hours", 12 * time.Hour, "12:00:00"},
		{"One day", 25 * time.Hour, "1 day, 1:00:00"},
		{"Two days", 50 * time.Hour, "2 days, 2:00:00"},
		{"Negative", -time.Minute, "0:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatDuration(tt.input); got != tt.expected {
				t.Errorf("formatDuration(%v) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFormatTime(t *testing.T) {
	at := time.Date(2024, time.March, 4, 21, 5, 0, 0, time.FixedZone("EST", -5*3600))
	if got := formatTime(at); got != "Tuesday, 05 March 2024 02:05 AM" {
		t.Errorf("formatTime = %q", got)
	}
}

func TestEndedMessage(t *testing.T) {
	duty := session.NewDuty("alice", t0)
	duty.Continue(t0.Add(time.Hour))
	now := t0.Add(3 * time.Hour)

	manual := endedMessage(duty, now, false, "")
	if manual.Title != "Duty Ended" {
		t.Errorf("title = %q", manual.Title)
	}
	if _, ok := manual.Field("Reason"); ok {
		t.Error("manual end must not carry a reason")
	}

	auto := endedMessage(duty, now, true, ReasonNoResponse)
	if auto.Title != "Duty Auto-Ended" {
		t.Errorf("title = %q", auto.Title)
	}
	if reason, _ := auto.Field("Reason"); reason != ReasonNoResponse {
		t.Errorf("reason = %q", reason)
	}
	if total, _ := auto.Field("Total Duration"); total != "3:00:00" {
		t.Errorf("total = %q", total)
	}
	if count, _ := auto.Field("Times Continued"); count != "1" {
		t.Errorf("count = %q", count)
	}
}

func TestAutoEndedNotice(t *testing.T) {
	duty := session.NewDuty("alice", t0)
	msg := autoEndedNotice(duty, t0.Add(12*time.Hour), "12-hour limit reached")
	if !msg.Urgent {
		t.Error("notice should be urgent")
	}
	if msg.Description != "Your duty was automatically ended." {
		t.Errorf("description = %q", msg.Description)
	}
	if total, _ := msg.Field("Total Duration"); total != "12:00:00" {
		t.Errorf("total = %q", total)
	}
}
