package store

import "time"

// User represents a person authenticated via OAuth.
type User struct {
	ID           int64
	OAuthSubject string
	PrimaryEmail string
	CreatedAt    time.Time
	LastLoginAt  time.Time
}

// Calendar is a source iCalendar feed registered with the service.
type Calendar struct {
	ID        int64
	Name      string
	FeedURL   string
	Color     *string
	CreatedAt time.Time
}

// Group is an admin-curated bundle of event type names within a calendar.
// Membership is stored by name so it keeps tracking the feed as event
// types come and go.
type Group struct {
	ID          int64
	CalendarID  int64
	Name        string
	Color       string
	Description string
	EventTypes  []string
	CreatedAt   time.Time
}

// Profile is a saved selection against one calendar: which event types
// are picked, which groups are subscribed, and how the set is applied.
type Profile struct {
	ID         int64
	CalendarID int64
	UserID     *int64
	Name       string
	FilterMode string
	SearchTerm string
	Selected   []string
	Subscribed []int64
	TokenHash  *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
