package feed

import (
	"strings"
	"testing"
	"time"
)

const sampleICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//EN
BEGIN:VEVENT
UID:yoga-1@test
DTSTAMP:20260301T120000Z
DTSTART:20260302T090000Z
DTEND:20260302T100000Z
SUMMARY:Morning Yoga
LOCATION:Studio A
RRULE:FREQ=WEEKLY;COUNT=3
EXDATE:20260309T090000Z
END:VEVENT
BEGIN:VEVENT
UID:chess-1@test
DTSTAMP:20260301T120000Z
DTSTART;VALUE=DATE:20260310
SUMMARY:Chess Night
DESCRIPTION:Bring your own board
END:VEVENT
BEGIN:VEVENT
DTSTAMP:20260301T120000Z
DTSTART:20260311T090000Z
SUMMARY:No UID here
END:VEVENT
END:VCALENDAR
`

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParse(t *testing.T) {
	events, err := Parse(crlf(sampleICS))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	// The UID-less VEVENT is skipped, not fatal.
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	yoga := events[0]
	if yoga.UID != "yoga-1@test" || yoga.Summary != "Morning Yoga" || yoga.Location != "Studio A" {
		t.Errorf("yoga = %+v", yoga)
	}
	if yoga.RawRRule != "FREQ=WEEKLY;COUNT=3" {
		t.Errorf("RawRRule = %q", yoga.RawRRule)
	}
	if len(yoga.ExDates) != 1 {
		t.Fatalf("ExDates = %v", yoga.ExDates)
	}
	wantEx := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	if !yoga.ExDates[0].Equal(wantEx) {
		t.Errorf("ExDates[0] = %v, want %v", yoga.ExDates[0], wantEx)
	}
	if yoga.AllDay {
		t.Error("timed event flagged all-day")
	}

	chess := events[1]
	if !chess.AllDay {
		t.Error("VALUE=DATE event should be all-day")
	}
	if chess.Description != "Bring your own board" {
		t.Errorf("Description = %q", chess.Description)
	}
	if chess.End.Sub(chess.Start) != 24*time.Hour {
		t.Errorf("all-day default end: start=%v end=%v", chess.Start, chess.End)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(nil); err == nil {
		t.Error("empty body should error")
	}
	if _, err := Parse([]byte("not an ics file")); err == nil {
		t.Error("garbage body should error")
	}
}

func TestParseICSTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"20260302T090000Z", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
		{"20260302T090000", time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)},
		{"20260302", time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		got, err := parseICSTime(tt.in)
		if err != nil {
			t.Errorf("parseICSTime(%q) error = %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseICSTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := parseICSTime(""); err == nil {
		t.Error("empty value should error")
	}
	if _, err := parseICSTime("not-a-date"); err == nil {
		t.Error("garbage value should error")
	}
}
