// Package export renders a selection-filtered view of a calendar feed as an
// iCalendar document, either as a one-off download or as a subscribable feed.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/calsift/calsift/internal/catalog"
	"github.com/calsift/calsift/internal/selection"
)

const prodID = "-//CalSift//Filtered Calendar//EN"

// FilterEvents applies a selection to a list of events. Include mode keeps
// only events whose type is effectively selected; exclude mode keeps the
// rest. Event types are matched the same way the catalog buckets them.
func FilterEvents(events []catalog.Event, st *selection.State, groups []catalog.Group) []catalog.Event {
	var out []catalog.Event
	for _, ev := range events {
		name := strings.TrimSpace(ev.Title)
		if name == "" {
			name = "Untitled Event"
		}
		if st.Includes(name, groups) {
			out = append(out, ev)
		}
	}
	return out
}

// BuildOptions controls calendar-level properties of the export.
type BuildOptions struct {
	Name string
	// TTL, when non-zero, marks the document as a published subscription
	// that clients should re-fetch on the given interval.
	TTL time.Duration
}

// BuildCalendar serializes events into a VCALENDAR. Recurrences are already
// expanded, so every occurrence becomes its own VEVENT with a per-instance
// UID suffix.
func BuildCalendar(events []catalog.Event, opts BuildOptions) string {
	var sb strings.Builder
	write := func(line string) {
		sb.WriteString(line)
		sb.WriteString("\r\n")
	}

	write("BEGIN:VCALENDAR")
	write("VERSION:2.0")
	write("PRODID:" + prodID)
	write("CALSCALE:GREGORIAN")
	if opts.Name != "" {
		write("X-WR-CALNAME:" + escapeICalValue(opts.Name))
	}
	if opts.TTL > 0 {
		write("METHOD:PUBLISH")
		write(fmt.Sprintf("X-PUBLISHED-TTL:PT%dM", int(opts.TTL.Minutes())))
	}

	dtstamp := time.Now().UTC().Format("20060102T150405Z")
	for _, ev := range events {
		write("BEGIN:VEVENT")
		write("UID:" + instanceUID(ev))
		write("DTSTAMP:" + dtstamp)
		if !ev.Start.IsZero() {
			if ev.AllDay {
				write("DTSTART;VALUE=DATE:" + ev.Start.Format("20060102"))
				if !ev.End.IsZero() {
					write("DTEND;VALUE=DATE:" + ev.End.Format("20060102"))
				}
			} else {
				write("DTSTART:" + ev.Start.UTC().Format("20060102T150405Z"))
				if !ev.End.IsZero() {
					write("DTEND:" + ev.End.UTC().Format("20060102T150405Z"))
				}
			}
		}
		summary := ev.Title
		if summary == "" {
			summary = "Untitled Event"
		}
		write("SUMMARY:" + escapeICalValue(summary))
		if ev.Location != "" {
			write("LOCATION:" + escapeICalValue(ev.Location))
		}
		if ev.Description != "" {
			write("DESCRIPTION:" + escapeICalValue(ev.Description))
		}
		write("END:VEVENT")
	}
	write("END:VCALENDAR")

	return sb.String()
}

// instanceUID keeps occurrence UIDs unique: expanded instances of a recurring
// series share the upstream UID, so the start time is folded in.
func instanceUID(ev catalog.Event) string {
	if !ev.Recurring || ev.Start.IsZero() {
		return ev.UID
	}
	return fmt.Sprintf("%s-%s", ev.UID, ev.Start.UTC().Format("20060102T150405Z"))
}

// escapeICalValue escapes text values per RFC 5545.
func escapeICalValue(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
