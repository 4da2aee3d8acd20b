package catalog

import (
	"sort"
	"strings"
	"time"
)

// Event is a single calendar occurrence as served to clients. Start/End are
// zero when the upstream feed carried an unparseable date; RawStart keeps the
// original value so it can still be displayed.
type Event struct {
	UID         string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	RawStart    string
	AllDay      bool
	Recurring   bool
	RRule       string
}

// EventTypeSummary is the lightweight shape groups carry for their members.
type EventTypeSummary struct {
	Name      string
	Count     int
	Recurring bool
}

// EventType is a named bucket of events sharing a title. The name is the
// selection key used throughout the service.
type EventType struct {
	Name      string
	Count     int
	Recurring bool
	Events    []Event
}

// Summary reduces an event type to its group-membership shape.
func (t EventType) Summary() EventTypeSummary {
	return EventTypeSummary{Name: t.Name, Count: t.Count, Recurring: t.Recurring}
}

// Group is a named collection of event types with an independent subscribe
// relation. Membership is keyed by event-type name.
type Group struct {
	ID          int64
	Name        string
	Color       string
	Description string
	EventTypes  map[string]EventTypeSummary
}

// MemberNames returns the group's event-type names in sorted order.
func (g Group) MemberNames() []string {
	names := make([]string, 0, len(g.EventTypes))
	for name := range g.EventTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Contains reports whether name is a member event type of the group.
func (g Group) Contains(name string) bool {
	_, ok := g.EventTypes[name]
	return ok
}

// Size returns the number of member event types.
func (g Group) Size() int {
	return len(g.EventTypes)
}

// BuildEventTypes buckets events by title. Events with an empty title are
// collected under "Untitled Event" so they stay selectable. The result is
// sorted by name for stable rendering.
func BuildEventTypes(events []Event) []EventType {
	const untitled = "Untitled Event"

	byName := make(map[string]*EventType)
	for _, ev := range events {
		name := strings.TrimSpace(ev.Title)
		if name == "" {
			name = untitled
		}
		t, ok := byName[name]
		if !ok {
			t = &EventType{Name: name}
			byName[name] = t
		}
		t.Events = append(t.Events, ev)
		t.Count++
		if ev.Recurring {
			t.Recurring = true
		}
	}

	types := make([]EventType, 0, len(byName))
	for _, t := range byName {
		// A repeated title is a recurring series even without an RRULE.
		if t.Count > 1 {
			t.Recurring = true
		}
		sort.SliceStable(t.Events, func(i, j int) bool {
			return t.Events[i].Start.Before(t.Events[j].Start)
		})
		types = append(types, *t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return types
}

// SplitEventTypes separates recurring series from one-off events. The two
// lists feed the "main" and "unique" sections of the client.
func SplitEventTypes(types []EventType) (recurring, unique []EventType) {
	for _, t := range types {
		if t.Recurring {
			recurring = append(recurring, t)
		} else {
			unique = append(unique, t)
		}
	}
	return recurring, unique
}

// AttachMembers fills a group's membership summaries from the current event
// types. Member names without a matching bucket keep a zero-count summary so
// a group never silently loses members between feed refreshes.
func AttachMembers(g Group, names []string, types []EventType) Group {
	byName := make(map[string]EventTypeSummary, len(types))
	for _, t := range types {
		byName[t.Name] = t.Summary()
	}

	g.EventTypes = make(map[string]EventTypeSummary, len(names))
	for _, name := range names {
		if s, ok := byName[name]; ok {
			g.EventTypes[name] = s
		} else {
			g.EventTypes[name] = EventTypeSummary{Name: name}
		}
	}
	return g
}
