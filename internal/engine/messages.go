package engine

import (
	"fmt"
	"time"

	"github.com/SoarinFerret/DutyWarden/internal/notify"
	"github.com/SoarinFerret/DutyWarden/internal/session"
)

const (
	longLayout  = "Monday, 02 January 2006 15:04 PM"
	shortLayout = "15:04:05"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(longLayout)
}

// formatDuration renders d as H:MM:SS, with a day prefix past 24 hours.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Truncate(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	clock := fmt.Sprintf("%d:%02d:%02d", h, m, s)
	switch {
	case days == 1:
		return "1 day, " + clock
	case days > 1:
		return fmt.Sprintf("%d days, %s", days, clock)
	}
	return clock
}

func startedMessage(duty session.Duty) notify.Message {
	return notify.Message{
		Title:       "Duty Started",
		Description: fmt.Sprintf("%s started their duty shift.", duty.UserID),
		Time:        duty.StartTime,
	}.
		Add("User", duty.UserID).
		Add("Start Time", formatTime(duty.StartTime))
}

func reminderMessage(userID string, ch session.Challenge, window time.Duration) notify.Message {
	return notify.Message{
		Title:       "Duty Reminder",
		Description: fmt.Sprintf("%s, you are currently on duty. Please confirm with `dutyctl continue` within %s.", userID, window),
		Time:        ch.IssuedAt,
		Urgent:      true,
		Actions: []notify.Action{
			{Key: ActionContinue, Label: "Continue Duty"},
			{Key: ActionEnd, Label: "End Duty"},
		},
		Expires: ch.ExpiresAt,
	}.
		Add("Reminder", fmt.Sprintf("#%d", ch.Ordinal)).
		Add("Time", ch.IssuedAt.UTC().Format(shortLayout)).
		Add("Challenge", ch.ID)
}

func reminderSentMessage(userID string, ch session.Challenge) notify.Message {
	return notify.Message{Title: "Reminder Sent", Time: ch.IssuedAt}.
		Add("User", userID).
		Add("Reminder Time", formatTime(ch.IssuedAt)).
		Add("Reminder #", ch.Ordinal)
}

func continuedMessage(duty session.Duty, now time.Time) notify.Message {
	return notify.Message{Title: "Duty Continued", Time: duty.LastContinue}.
		Add("User", duty.UserID).
		Add("Continue Time", formatTime(duty.LastContinue)).
		Add("Continue Count", duty.ContinueCount).
		Add("Total Duration", formatDuration(duty.Elapsed(now)))
}

func endedMessage(duty session.Duty, now time.Time, auto bool, reason string) notify.Message {
	title := "Duty Ended"
	if auto {
		title = "Duty Auto-Ended"
	}
	msg := notify.Message{Title: title, Time: now}.
		Add("User", duty.UserID).
		Add("Start Time", formatTime(duty.StartTime)).
		Add("End Time", formatTime(now)).
		Add("Total Duration", formatDuration(duty.Elapsed(now))).
		Add("Times Continued", duty.ContinueCount)
	if auto {
		msg = msg.Add("Reason", reason)
	}
	return msg
}

func autoEndedNotice(duty session.Duty, now time.Time, reason string) notify.Message {
	return notify.Message{
		Title:       "Duty Auto-Ended",
		Description: "Your duty was automatically ended.",
		Time:        now,
		Urgent:      true,
	}.
		Add("Reason", reason).
		Add("Total Duration", formatDuration(duty.Elapsed(now)))
}
