package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store aggregates repositories backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool

	Users     UserRepository
	Calendars CalendarRepository
	Groups    GroupRepository
	Profiles  ProfileRepository
}

// New wires concrete repository implementations with a shared connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:      pool,
		Users:     &userRepo{db: pool},
		Calendars: &calendarRepo{db: pool},
		Groups:    &groupRepo{db: pool},
		Profiles:  &profileRepo{db: pool},
	}
}

// HealthCheck verifies that the underlying database is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	defer observeDB(ctx, "db.healthcheck")()
	return s.pool.Ping(ctx)
}
