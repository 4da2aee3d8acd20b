package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// dbConn is the subset of pgxpool.Pool the repositories use. Tests supply
// a mock implementation.
type dbConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func wrapNotFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", what, err)
}

// userRepo implements UserRepository.
type userRepo struct {
	db dbConn
}

func (r *userRepo) UpsertOAuthUser(ctx context.Context, subject, email string) (*User, error) {
	defer observeDB(ctx, "db.users.upsert")()
	const q = `INSERT INTO users (oauth_subject, primary_email)
VALUES ($1, $2)
ON CONFLICT (oauth_subject) DO UPDATE
SET primary_email = EXCLUDED.primary_email, last_login_at = NOW()
RETURNING id, oauth_subject, primary_email, created_at, last_login_at`
	var u User
	err := r.db.QueryRow(ctx, q, subject, email).
		Scan(&u.ID, &u.OAuthSubject, &u.PrimaryEmail, &u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*User, error) {
	defer observeDB(ctx, "db.users.get")()
	const q = `SELECT id, oauth_subject, primary_email, created_at, last_login_at
FROM users WHERE id = $1`
	var u User
	err := r.db.QueryRow(ctx, q, id).
		Scan(&u.ID, &u.OAuthSubject, &u.PrimaryEmail, &u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		return nil, wrapNotFound(err, "get user")
	}
	return &u, nil
}

// calendarRepo implements CalendarRepository.
type calendarRepo struct {
	db dbConn
}

func (r *calendarRepo) GetByID(ctx context.Context, id int64) (*Calendar, error) {
	defer observeDB(ctx, "db.calendars.get")()
	const q = `SELECT id, name, feed_url, color, created_at FROM calendars WHERE id = $1`
	var c Calendar
	err := r.db.QueryRow(ctx, q, id).Scan(&c.ID, &c.Name, &c.FeedURL, &c.Color, &c.CreatedAt)
	if err != nil {
		return nil, wrapNotFound(err, "get calendar")
	}
	return &c, nil
}

func (r *calendarRepo) List(ctx context.Context) ([]Calendar, error) {
	defer observeDB(ctx, "db.calendars.list")()
	const q = `SELECT id, name, feed_url, color, created_at FROM calendars ORDER BY name, id`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	defer rows.Close()

	var cals []Calendar
	for rows.Next() {
		var c Calendar
		if err := rows.Scan(&c.ID, &c.Name, &c.FeedURL, &c.Color, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan calendar: %w", err)
		}
		cals = append(cals, c)
	}
	return cals, rows.Err()
}

func (r *calendarRepo) Create(ctx context.Context, cal Calendar) (*Calendar, error) {
	defer observeDB(ctx, "db.calendars.create")()
	const q = `INSERT INTO calendars (name, feed_url, color)
VALUES ($1, $2, $3)
RETURNING id, name, feed_url, color, created_at`
	var c Calendar
	err := r.db.QueryRow(ctx, q, cal.Name, cal.FeedURL, cal.Color).
		Scan(&c.ID, &c.Name, &c.FeedURL, &c.Color, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create calendar: %w", err)
	}
	return &c, nil
}

func (r *calendarRepo) Update(ctx context.Context, cal Calendar) error {
	defer observeDB(ctx, "db.calendars.update")()
	const q = `UPDATE calendars SET name = $2, feed_url = $3, color = $4 WHERE id = $1`
	tag, err := r.db.Exec(ctx, q, cal.ID, cal.Name, cal.FeedURL, cal.Color)
	if err != nil {
		return fmt.Errorf("update calendar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *calendarRepo) Delete(ctx context.Context, id int64) error {
	defer observeDB(ctx, "db.calendars.delete")()
	tag, err := r.db.Exec(ctx, `DELETE FROM calendars WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete calendar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// groupRepo implements GroupRepository.
type groupRepo struct {
	db dbConn
}

const groupColumns = `id, calendar_id, name, color, description, event_types, created_at`

func scanGroup(row pgx.Row) (*Group, error) {
	var g Group
	err := row.Scan(&g.ID, &g.CalendarID, &g.Name, &g.Color, &g.Description, &g.EventTypes, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *groupRepo) GetByID(ctx context.Context, id int64) (*Group, error) {
	defer observeDB(ctx, "db.groups.get")()
	g, err := scanGroup(r.db.QueryRow(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = $1`, id))
	if err != nil {
		return nil, wrapNotFound(err, "get group")
	}
	return g, nil
}

func (r *groupRepo) ListByCalendar(ctx context.Context, calendarID int64) ([]Group, error) {
	defer observeDB(ctx, "db.groups.list")()
	const q = `SELECT ` + groupColumns + ` FROM groups WHERE calendar_id = $1 ORDER BY name, id`
	rows, err := r.db.Query(ctx, q, calendarID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()
	return collectGroups(rows)
}

func (r *groupRepo) ListByIDs(ctx context.Context, calendarID int64, ids []int64) ([]Group, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	defer observeDB(ctx, "db.groups.list_by_ids")()
	const q = `SELECT ` + groupColumns + ` FROM groups
WHERE calendar_id = $1 AND id = ANY($2) ORDER BY name, id`
	rows, err := r.db.Query(ctx, q, calendarID, ids)
	if err != nil {
		return nil, fmt.Errorf("list groups by ids: %w", err)
	}
	defer rows.Close()
	return collectGroups(rows)
}

func collectGroups(rows pgx.Rows) ([]Group, error) {
	var groups []Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, *g)
	}
	return groups, rows.Err()
}

func (r *groupRepo) Create(ctx context.Context, g Group) (*Group, error) {
	defer observeDB(ctx, "db.groups.create")()
	const q = `INSERT INTO groups (calendar_id, name, color, description, event_types)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + groupColumns
	created, err := scanGroup(r.db.QueryRow(ctx, q, g.CalendarID, g.Name, g.Color, g.Description, g.EventTypes))
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return created, nil
}

func (r *groupRepo) Update(ctx context.Context, g Group) error {
	defer observeDB(ctx, "db.groups.update")()
	const q = `UPDATE groups SET name = $3, color = $4, description = $5, event_types = $6
WHERE calendar_id = $1 AND id = $2`
	tag, err := r.db.Exec(ctx, q, g.CalendarID, g.ID, g.Name, g.Color, g.Description, g.EventTypes)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *groupRepo) Delete(ctx context.Context, calendarID, id int64) error {
	defer observeDB(ctx, "db.groups.delete")()
	tag, err := r.db.Exec(ctx, `DELETE FROM groups WHERE calendar_id = $1 AND id = $2`, calendarID, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// profileRepo implements ProfileRepository.
type profileRepo struct {
	db dbConn
}

const profileColumns = `id, calendar_id, user_id, name, filter_mode, search_term,
selected, subscribed, token_hash, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.CalendarID, &p.UserID, &p.Name, &p.FilterMode, &p.SearchTerm,
		&p.Selected, &p.Subscribed, &p.TokenHash, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepo) GetByID(ctx context.Context, id int64) (*Profile, error) {
	defer observeDB(ctx, "db.profiles.get")()
	p, err := scanProfile(r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		return nil, wrapNotFound(err, "get profile")
	}
	return p, nil
}

func (r *profileRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*Profile, error) {
	defer observeDB(ctx, "db.profiles.get_by_token")()
	const q = `SELECT ` + profileColumns + ` FROM profiles WHERE token_hash = $1`
	p, err := scanProfile(r.db.QueryRow(ctx, q, tokenHash))
	if err != nil {
		return nil, wrapNotFound(err, "get profile by token")
	}
	return p, nil
}

func (r *profileRepo) ListByCalendar(ctx context.Context, calendarID int64) ([]Profile, error) {
	defer observeDB(ctx, "db.profiles.list")()
	const q = `SELECT ` + profileColumns + ` FROM profiles WHERE calendar_id = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, q, calendarID)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

func (r *profileRepo) Create(ctx context.Context, p Profile) (*Profile, error) {
	defer observeDB(ctx, "db.profiles.create")()
	const q = `INSERT INTO profiles (calendar_id, user_id, name, filter_mode, search_term, selected, subscribed)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + profileColumns
	created, err := scanProfile(r.db.QueryRow(ctx, q,
		p.CalendarID, p.UserID, p.Name, p.FilterMode, p.SearchTerm, p.Selected, p.Subscribed))
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return created, nil
}

func (r *profileRepo) UpdateSelection(ctx context.Context, p Profile) error {
	defer observeDB(ctx, "db.profiles.update_selection")()
	const q = `UPDATE profiles
SET filter_mode = $2, search_term = $3, selected = $4, subscribed = $5, updated_at = NOW()
WHERE id = $1`
	tag, err := r.db.Exec(ctx, q, p.ID, p.FilterMode, p.SearchTerm, p.Selected, p.Subscribed)
	if err != nil {
		return fmt.Errorf("update profile selection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *profileRepo) SetTokenHash(ctx context.Context, id int64, tokenHash *string) error {
	defer observeDB(ctx, "db.profiles.set_token")()
	const q = `UPDATE profiles SET token_hash = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, q, id, tokenHash)
	if err != nil {
		return fmt.Errorf("set profile token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *profileRepo) Delete(ctx context.Context, id int64) error {
	defer observeDB(ctx, "db.profiles.delete")()
	tag, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
