package feed

import (
	"log"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/calsift/calsift/internal/catalog"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig bounds recurrence expansion.
type ExpandConfig struct {
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps runaway rules. Zero means the default.
	MaxOccurrencesPerEvent int
}

// Expand turns parsed events into concrete catalog events within the
// configured window. Recurring events are expanded through their RRULE with
// EXDATE exceptions removed and RECURRENCE-ID overrides applied. Events with
// unparseable dates pass through untouched so they remain listable.
func Expand(events []parsedEvent, cfg ExpandConfig) []catalog.Event {
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	baseByUID := make(map[string][]parsedEvent)
	overridesByUID := make(map[string][]parsedEvent)
	var uids []string
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		if _, seen := baseByUID[ev.UID]; !seen {
			uids = append(uids, ev.UID)
		}
		baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
	}

	var out []catalog.Event
	for _, uid := range uids {
		overrides := overridesByUID[uid]
		for _, ev := range baseByUID[uid] {
			if ev.RawRRule == "" {
				out = append(out, expandSingle(ev, overrides, cfg)...)
				continue
			}
			out = append(out, expandRecurring(ev, overrides, cfg)...)
		}
	}
	return out
}

func expandSingle(ev parsedEvent, overrides []parsedEvent, cfg ExpandConfig) []catalog.Event {
	// Keep date-less events: they cannot be range-checked but should still
	// show up under their event type.
	if !ev.Start.IsZero() && !rangesOverlap(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}

	start, end := ev.Start, ev.End
	if o, ok := overrideForStart(overrides, start); ok {
		ev, start, end = o, o.Start, o.End
	}
	return []catalog.Event{makeEvent(ev, start, end, false)}
}

func expandRecurring(ev parsedEvent, overrides []parsedEvent, cfg ExpandConfig) []catalog.Event {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		log.Printf("[WARN] invalid RRULE for uid=%s: %v", ev.UID, err)
		return []catalog.Event{makeEvent(ev, ev.Start, ev.End, true)}
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	rangeStart := cfg.RangeStart.In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())
	occTimes := set.Between(rangeStart, rangeEnd, true)
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		log.Printf("[WARN] truncating occurrences for uid=%s at %d", ev.UID, cfg.MaxOccurrencesPerEvent)
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
	}

	duration := ev.End.Sub(ev.Start)
	out := make([]catalog.Event, 0, len(occTimes))
	for _, occStart := range occTimes {
		occEnd := occStart.Add(duration)
		if ev.AllDay {
			day := time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			occStart, occEnd = day, day.Add(24*time.Hour)
		}

		occEv := ev
		if o, ok := overrideForStart(overrides, occStart); ok {
			occEv, occStart, occEnd = o, o.Start, o.End
		}
		out = append(out, makeEvent(occEv, occStart, occEnd, true))
	}
	return out
}

func overrideForStart(overrides []parsedEvent, start time.Time) (parsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence == nil {
			continue
		}
		if ov.Recurrence.In(start.Location()).Equal(start) {
			return ov, true
		}
	}
	return parsedEvent{}, false
}

func makeEvent(ev parsedEvent, start, end time.Time, recurring bool) catalog.Event {
	return catalog.Event{
		UID:         ev.UID,
		Title:       ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       start,
		End:         end,
		RawStart:    ev.RawStart,
		AllDay:      ev.AllDay,
		Recurring:   recurring || ev.RawRRule != "",
		RRule:       ev.RawRRule,
	}
}

func rangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
