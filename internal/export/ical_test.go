package export

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/calsift/calsift/internal/catalog"
	"github.com/calsift/calsift/internal/selection"
)

func sampleEvents() []catalog.Event {
	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return []catalog.Event{
		{UID: "yoga-1@test", Title: "Yoga", Start: day, End: day.Add(time.Hour), Recurring: true},
		{UID: "yoga-1@test", Title: "Yoga", Start: day.AddDate(0, 0, 7), End: day.AddDate(0, 0, 7).Add(time.Hour), Recurring: true},
		{UID: "chess-1@test", Title: "Chess Night", Start: day.AddDate(0, 0, 1), End: day.AddDate(0, 0, 1).Add(3 * time.Hour)},
		{UID: "fair-1@test", Title: "Spring Fair", Start: day.AddDate(0, 0, 2), AllDay: true, End: day.AddDate(0, 0, 3)},
	}
}

func TestFilterEventsIncludeMode(t *testing.T) {
	st := selection.Restore([]string{"Yoga"}, nil, selection.ModeInclude, "")

	got := FilterEvents(sampleEvents(), st, nil)
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	for _, ev := range got {
		if ev.Title != "Yoga" {
			t.Errorf("include mode leaked %q", ev.Title)
		}
	}
}

func TestFilterEventsExcludeMode(t *testing.T) {
	st := selection.Restore([]string{"Yoga"}, nil, selection.ModeExclude, "")

	got := FilterEvents(sampleEvents(), st, nil)
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	for _, ev := range got {
		if ev.Title == "Yoga" {
			t.Error("exclude mode kept a selected type")
		}
	}
}

func TestFilterEventsSubscribedGroup(t *testing.T) {
	group := catalog.Group{
		ID:   1,
		Name: "Fitness",
		EventTypes: map[string]catalog.EventTypeSummary{
			"Yoga": {Name: "Yoga"},
		},
	}
	st := selection.New()
	st.ToggleGroupSubscription(group)
	// Subscription covers future members too: membership is evaluated at
	// filter time.
	group.EventTypes["Chess Night"] = catalog.EventTypeSummary{Name: "Chess Night"}

	got := FilterEvents(sampleEvents(), st, []catalog.Group{group})
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
}

func TestBuildCalendar(t *testing.T) {
	body := BuildCalendar(sampleEvents()[2:], BuildOptions{Name: "My Picks"})

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + prodID,
		"X-WR-CALNAME:My Picks",
		"UID:chess-1@test",
		"DTSTART:20260303T090000Z",
		"SUMMARY:Chess Night",
		"DTSTART;VALUE=DATE:20260304",
		"DTEND;VALUE=DATE:20260305",
		"END:VCALENDAR",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("export missing %q", want)
		}
	}
	if strings.Contains(body, "METHOD:PUBLISH") {
		t.Error("download export should not carry METHOD:PUBLISH")
	}
	if !strings.HasSuffix(body, "END:VCALENDAR\r\n") {
		t.Error("export should use CRLF line endings")
	}
}

func TestBuildCalendarSubscription(t *testing.T) {
	body := BuildCalendar(nil, BuildOptions{Name: "Feed", TTL: time.Hour})

	if !strings.Contains(body, "METHOD:PUBLISH") {
		t.Error("subscription export missing METHOD:PUBLISH")
	}
	if !strings.Contains(body, "X-PUBLISHED-TTL:PT60M") {
		t.Error("subscription export missing X-PUBLISHED-TTL")
	}
}

func TestBuildCalendarRecurringInstanceUIDsAreUnique(t *testing.T) {
	body := BuildCalendar(sampleEvents()[:2], BuildOptions{})

	seen := make(map[string]bool)
	for _, line := range strings.Split(body, "\r\n") {
		if !strings.HasPrefix(line, "UID:") {
			continue
		}
		if seen[line] {
			t.Fatalf("duplicate %s", line)
		}
		seen[line] = true
	}
	if len(seen) != 2 {
		t.Errorf("got %d UID lines, want 2", len(seen))
	}
}

func TestEscapeICalValue(t *testing.T) {
	got := escapeICalValue("a;b,c\\d\ne")
	want := `a\;b\,c\\d\ne`
	if got != want {
		t.Errorf("escapeICalValue() = %q, want %q", got, want)
	}
}

func TestWriteDownloadAndSubscriptionHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	WriteDownload(w, "picks.ics", "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/calendar") {
		t.Errorf("download Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "picks.ics") {
		t.Errorf("download Content-Disposition = %q", cd)
	}

	w = httptest.NewRecorder()
	WriteSubscription(w, "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")
	if cd := w.Header().Get("Content-Disposition"); cd != "" {
		t.Errorf("subscription must not set Content-Disposition, got %q", cd)
	}
}
