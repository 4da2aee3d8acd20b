package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/calsift/calsift/internal/catalog"
	httperrors "github.com/calsift/calsift/internal/http/errors"
	"github.com/calsift/calsift/internal/selection"
	"github.com/calsift/calsift/internal/store"
)

type calendarView struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	FeedURL string  `json:"feed_url"`
	Color   *string `json:"color,omitempty"`
}

func toCalendarView(c *store.Calendar) calendarView {
	return calendarView{ID: c.ID, Name: c.Name, FeedURL: c.FeedURL, Color: c.Color}
}

type calendarRequest struct {
	Name    string  `json:"name"`
	FeedURL string  `json:"feed_url"`
	Color   *string `json:"color"`
}

func (req calendarRequest) validate() string {
	if strings.TrimSpace(req.Name) == "" {
		return "name is required"
	}
	u, err := url.Parse(req.FeedURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "feed_url must be an absolute http(s) URL"
	}
	return ""
}

func (h *Handler) ListCalendars(w http.ResponseWriter, r *http.Request) {
	cals, err := h.store.Calendars.List(r.Context())
	if err != nil {
		h.respondStoreErr(w, r, err, "list calendars failed")
		return
	}

	views := make([]calendarView, 0, len(cals))
	for i := range cals {
		views = append(views, toCalendarView(&cals[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"calendars": views})
}

func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "calendarId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid calendar id")
		return
	}

	cal, err := h.store.Calendars.GetByID(r.Context(), id)
	if err != nil {
		h.respondStoreErr(w, r, err, "get calendar failed")
		return
	}
	writeJSON(w, http.StatusOK, toCalendarView(cal))
}

func (h *Handler) CreateCalendar(w http.ResponseWriter, r *http.Request) {
	var req calendarRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	cal, err := h.store.Calendars.Create(r.Context(), store.Calendar{
		Name:    strings.TrimSpace(req.Name),
		FeedURL: req.FeedURL,
		Color:   req.Color,
	})
	if err != nil {
		h.respondStoreErr(w, r, err, "create calendar failed")
		return
	}

	h.seedGroups(r, cal.ID)

	// Warm the snapshot off the request path.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = h.feeds.Refresh(ctx, cal.ID, cal.FeedURL)
	}()

	writeJSON(w, http.StatusCreated, toCalendarView(cal))
}

// seedGroups loads the configured group catalog file, if any, and creates
// its groups for a new calendar. Seed failures are logged, never fatal.
func (h *Handler) seedGroups(r *http.Request, calendarID int64) {
	if h.cfg.GroupSeedPath == "" {
		return
	}

	seeds, err := catalog.LoadGroupSeed(h.cfg.GroupSeedPath)
	if err != nil {
		httperrors.LogError(r, "load group seed failed", err)
		return
	}

	for _, seed := range seeds {
		_, err := h.store.Groups.Create(r.Context(), store.Group{
			CalendarID:  calendarID,
			Name:        seed.Name,
			Color:       seed.Color,
			Description: seed.Description,
			EventTypes:  seed.EventTypes,
		})
		if err != nil {
			httperrors.LogError(r, "seed group failed", err)
		}
	}
}

func (h *Handler) UpdateCalendar(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "calendarId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid calendar id")
		return
	}

	var req calendarRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	cal := store.Calendar{ID: id, Name: strings.TrimSpace(req.Name), FeedURL: req.FeedURL, Color: req.Color}
	if err := h.store.Calendars.Update(r.Context(), cal); err != nil {
		h.respondStoreErr(w, r, err, "update calendar failed")
		return
	}

	// The URL may have changed; drop the stale snapshot.
	h.feeds.Forget(id)
	writeJSON(w, http.StatusOK, toCalendarView(&cal))
}

func (h *Handler) DeleteCalendar(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "calendarId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid calendar id")
		return
	}

	if err := h.store.Calendars.Delete(r.Context(), id); err != nil {
		h.respondStoreErr(w, r, err, "delete calendar failed")
		return
	}

	h.feeds.Forget(id)
	w.WriteHeader(http.StatusNoContent)
}

// RefreshCalendar forces an immediate re-fetch of the feed.
func (h *Handler) RefreshCalendar(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "calendarId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid calendar id")
		return
	}

	cal, err := h.store.Calendars.GetByID(r.Context(), id)
	if err != nil {
		h.respondStoreErr(w, r, err, "get calendar failed")
		return
	}

	_ = h.feeds.Refresh(r.Context(), cal.ID, cal.FeedURL)
	snap, _ := h.feeds.Snapshot(cal.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"fetched_at": snap.FetchedAt,
		"events":     len(snap.Events),
		"error":      snap.Err,
	})
}

func (h *Handler) CalendarEvents(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "calendarId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid calendar id")
		return
	}

	_, snap, err := h.snapshotFor(r.Context(), id)
	if err != nil {
		h.respondStoreErr(w, r, err, "get calendar failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events":     toEventViews(snap.Events),
		"fetched_at": snap.FetchedAt,
		"error":      snap.Err,
	})
}

// CalendarTypes returns the event types bucketed from the feed, split into
// recurring and one-off lists, optionally narrowed by ?search=.
func (h *Handler) CalendarTypes(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "calendarId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid calendar id")
		return
	}

	_, snap, err := h.snapshotFor(r.Context(), id)
	if err != nil {
		h.respondStoreErr(w, r, err, "get calendar failed")
		return
	}

	types := selection.FilterEventTypes(snap.Types, r.URL.Query().Get("search"))
	recurring, unique := catalog.SplitEventTypes(types)

	writeJSON(w, http.StatusOK, map[string]any{
		"recurring":  toTypeViews(recurring),
		"unique":     toTypeViews(unique),
		"fetched_at": snap.FetchedAt,
		"error":      snap.Err,
	})
}

// TypeEvents returns the member events of one event type, loaded on demand
// when a client expands the type.
func (h *Handler) TypeEvents(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "calendarId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid calendar id")
		return
	}

	name, err := url.PathUnescape(chi.URLParam(r, "eventType"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event type name")
		return
	}

	_, snap, err := h.snapshotFor(r.Context(), id)
	if err != nil {
		h.respondStoreErr(w, r, err, "get calendar failed")
		return
	}

	for _, t := range snap.Types {
		if t.Name == name {
			writeJSON(w, http.StatusOK, map[string]any{"events": toEventViews(t.Events)})
			return
		}
	}
	writeError(w, http.StatusNotFound, "unknown event type")
}
