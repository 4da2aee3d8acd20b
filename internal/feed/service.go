package feed

import (
	"context"
	"sync"
	"time"

	"github.com/calsift/calsift/internal/catalog"
	"github.com/calsift/calsift/internal/metrics"
)

// Snapshot is the last known state of one calendar's feed. Err carries the
// last refresh failure as a plain message for inline display; a failed
// refresh never discards the previous events.
type Snapshot struct {
	Events    []catalog.Event
	Types     []catalog.EventType
	FetchedAt time.Time
	Err       string
}

// Service caches expanded feed snapshots per calendar. Handlers read
// snapshots; the refresh scheduler and on-demand loads write them.
type Service struct {
	fetcher *Fetcher
	past    time.Duration
	future  time.Duration

	mu        sync.RWMutex
	snapshots map[int64]Snapshot
}

// NewService returns a Service expanding recurrences from past before now to
// future after now on each refresh.
func NewService(fetcher *Fetcher, past, future time.Duration) *Service {
	return &Service{
		fetcher:   fetcher,
		past:      past,
		future:    future,
		snapshots: make(map[int64]Snapshot),
	}
}

// Refresh fetches and re-expands one calendar's feed. On failure the previous
// snapshot is kept and its Err field updated; the error is also returned so
// callers triggering an initial load can surface it. When the fetcher falls
// back to a cached body, the events keep serving and the upstream failure is
// recorded as the snapshot's Err without failing the refresh.
func (s *Service) Refresh(ctx context.Context, calendarID int64, url string) error {
	now := time.Now()

	res, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.recordError(calendarID, err)
		metrics.ObserveFeedRefresh("fetch_error")
		return err
	}

	parsed, err := Parse(res.Body)
	if err != nil {
		s.recordError(calendarID, err)
		metrics.ObserveFeedRefresh("parse_error")
		return err
	}

	events := Expand(parsed, ExpandConfig{
		RangeStart: now.Add(-s.past),
		RangeEnd:   now.Add(s.future),
	})

	snap := Snapshot{
		Events:    events,
		Types:     catalog.BuildEventTypes(events),
		FetchedAt: now,
	}
	if res.StaleErr != nil {
		// Stale cache fallback: the data is still served, but the upstream
		// failure must show up inline.
		snap.Err = res.StaleErr.Error()
	}

	s.mu.Lock()
	if res.StaleErr != nil {
		if prev, ok := s.snapshots[calendarID]; ok && !prev.FetchedAt.IsZero() {
			snap.FetchedAt = prev.FetchedAt
		}
	}
	s.snapshots[calendarID] = snap
	s.mu.Unlock()

	if res.StaleErr != nil {
		metrics.ObserveFeedRefresh("fetch_error")
	} else {
		metrics.ObserveFeedRefresh("ok")
	}
	return nil
}

func (s *Service) recordError(calendarID int64, err error) {
	s.mu.Lock()
	snap := s.snapshots[calendarID]
	snap.Err = err.Error()
	s.snapshots[calendarID] = snap
	s.mu.Unlock()
}

// Snapshot returns the cached snapshot for a calendar, if any.
func (s *Service) Snapshot(calendarID int64) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[calendarID]
	if !ok || (snap.FetchedAt.IsZero() && snap.Err == "") {
		return Snapshot{}, false
	}
	return snap, true
}

// Ensure returns the snapshot for a calendar, refreshing first when none is
// cached yet.
func (s *Service) Ensure(ctx context.Context, calendarID int64, url string) (Snapshot, error) {
	if snap, ok := s.Snapshot(calendarID); ok && !snap.FetchedAt.IsZero() {
		return snap, nil
	}
	if err := s.Refresh(ctx, calendarID, url); err != nil {
		return Snapshot{}, err
	}
	snap, _ := s.Snapshot(calendarID)
	return snap, nil
}

// Forget drops a calendar's snapshot, e.g. after the calendar is deleted.
func (s *Service) Forget(calendarID int64) {
	s.mu.Lock()
	delete(s.snapshots, calendarID)
	s.mu.Unlock()
}
