package feed

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// parsedEvent is the raw VEVENT shape before recurrence expansion. Recurrence
// data (RRULE, EXDATE, RECURRENCE-ID) is carried through so expansion can
// produce concrete occurrences.
type parsedEvent struct {
	UID         string
	Summary     string
	Description string
	Location    string

	Start    time.Time
	End      time.Time
	RawStart string
	AllDay   bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time
	IsOverride bool
}

// Parse reads an ICS payload into parsed events. Individual malformed VEVENTs
// are skipped with a log line; the rest of the feed still parses. A VEVENT
// with an unparseable DTSTART is kept with zero times and its raw value
// preserved so clients can display something.
func Parse(body []byte) ([]parsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]parsedEvent, 0, len(cal.Events()))
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(ve)
		if perr != nil {
			log.Printf("[WARN] skipping malformed VEVENT: %v", perr)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (parsedEvent, error) {
	var out parsedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	// DTSTART/DTEND through the library's timezone handling. Parse failures
	// are tolerated: the raw DTSTART is kept for display.
	start, startErr := ve.GetStartAt()
	end, endErr := ve.GetEndAt()
	if startErr == nil {
		out.Start = start
	}
	if endErr == nil {
		out.End = end
	}

	if dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart); dtStartProp != nil {
		val := dtStartProp.Value
		if startErr != nil {
			out.RawStart = val
		}
		if params := dtStartProp.ICalParameters; params != nil {
			if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
				out.AllDay = true
			}
		}
		if !strings.Contains(val, "T") {
			out.AllDay = true
		}
	}

	if out.End.IsZero() && !out.Start.IsZero() {
		if out.AllDay {
			out.End = out.Start.Add(24 * time.Hour)
		} else {
			out.End = out.Start
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
		if t, err := parseICSTime(p.Value); err == nil {
			out.Recurrence = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

// parseICSTime handles the basic DATE / DATE-TIME / UTC forms that appear in
// EXDATE and RECURRENCE-ID values.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.Local)
	}
	return time.ParseInLocation("20060102", v, time.Local)
}
