package store

import "context"

// UserRepository defines persistence operations for users.
type UserRepository interface {
	UpsertOAuthUser(ctx context.Context, subject, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
}

// CalendarRepository handles the registered feed lifecycle.
type CalendarRepository interface {
	GetByID(ctx context.Context, id int64) (*Calendar, error)
	List(ctx context.Context) ([]Calendar, error)
	Create(ctx context.Context, cal Calendar) (*Calendar, error)
	Update(ctx context.Context, cal Calendar) error
	Delete(ctx context.Context, id int64) error
}

// GroupRepository manages event type groups within a calendar.
type GroupRepository interface {
	GetByID(ctx context.Context, id int64) (*Group, error)
	ListByCalendar(ctx context.Context, calendarID int64) ([]Group, error)
	ListByIDs(ctx context.Context, calendarID int64, ids []int64) ([]Group, error)
	Create(ctx context.Context, g Group) (*Group, error)
	Update(ctx context.Context, g Group) error
	Delete(ctx context.Context, calendarID, id int64) error
}

// ProfileRepository persists saved selections and their share tokens.
type ProfileRepository interface {
	GetByID(ctx context.Context, id int64) (*Profile, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*Profile, error)
	ListByCalendar(ctx context.Context, calendarID int64) ([]Profile, error)
	Create(ctx context.Context, p Profile) (*Profile, error)
	UpdateSelection(ctx context.Context, p Profile) error
	SetTokenHash(ctx context.Context, id int64, tokenHash *string) error
	Delete(ctx context.Context, id int64) error
}
