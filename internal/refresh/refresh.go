// Package refresh re-fetches every registered feed on a cron schedule so
// snapshots stay warm between client requests.
package refresh

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/calsift/calsift/internal/feed"
	"github.com/calsift/calsift/internal/store"
)

const runTimeout = 5 * time.Minute

// Service drives scheduled feed refreshes.
type Service struct {
	cron      *cron.Cron
	calendars store.CalendarRepository
	feeds     *feed.Service
}

// New parses the cron spec (robfig syntax, @every supported) and schedules
// RefreshAll on it. Start must be called to begin running.
func New(spec string, calendars store.CalendarRepository, feeds *feed.Service) (*Service, error) {
	s := &Service{
		cron:      cron.New(),
		calendars: calendars,
		feeds:     feeds,
	}

	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("parse refresh spec %q: %w", spec, err)
	}
	return s, nil
}

func (s *Service) Start() {
	s.cron.Start()
}

// Stop halts the schedule and returns a context that is done once any
// in-flight run finishes.
func (s *Service) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Service) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	s.RefreshAll(ctx)
}

// RefreshAll re-fetches every calendar's feed. Failures are isolated per
// source: one broken feed never blocks the others, and its previous
// snapshot stays served.
func (s *Service) RefreshAll(ctx context.Context) {
	cals, err := s.calendars.List(ctx)
	if err != nil {
		log.Printf("[ERROR] refresh: list calendars: %v", err)
		return
	}

	for _, cal := range cals {
		if err := s.feeds.Refresh(ctx, cal.ID, cal.FeedURL); err != nil {
			log.Printf("[WARN] refresh calendar %d (%s): %v", cal.ID, cal.Name, err)
		}
	}
}
