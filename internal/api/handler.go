package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/calsift/calsift/internal/catalog"
	"github.com/calsift/calsift/internal/config"
	"github.com/calsift/calsift/internal/feed"
	httperrors "github.com/calsift/calsift/internal/http/errors"
	"github.com/calsift/calsift/internal/store"
)

// Handler serves the JSON API: calendars, event types, groups, profiles,
// and the filtered exports.
type Handler struct {
	cfg   *config.Config
	store *store.Store
	feeds *feed.Service
}

func NewHandler(cfg *config.Config, st *store.Store, feeds *feed.Service) *Handler {
	return &Handler{cfg: cfg, store: st, feeds: feeds}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// respondStoreErr maps ErrNotFound to 404 and logs everything else.
func (h *Handler) respondStoreErr(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	httperrors.LogError(r, message, err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func idParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// snapshotFor loads the calendar and its current feed snapshot, fetching the
// feed on first access. A refresh failure is not fatal: the snapshot carries
// the error message for inline display.
func (h *Handler) snapshotFor(ctx context.Context, calendarID int64) (*store.Calendar, feed.Snapshot, error) {
	cal, err := h.store.Calendars.GetByID(ctx, calendarID)
	if err != nil {
		return nil, feed.Snapshot{}, err
	}
	snap, err := h.feeds.Ensure(ctx, cal.ID, cal.FeedURL)
	if err != nil {
		snap, _ = h.feeds.Snapshot(cal.ID)
	}
	return cal, snap, nil
}

func toCatalogGroup(g store.Group, types []catalog.EventType) catalog.Group {
	return catalog.AttachMembers(catalog.Group{
		ID:          g.ID,
		Name:        g.Name,
		Color:       g.Color,
		Description: g.Description,
	}, g.EventTypes, types)
}

func toCatalogGroups(groups []store.Group, types []catalog.EventType) []catalog.Group {
	out := make([]catalog.Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, toCatalogGroup(g, types))
	}
	return out
}

// eventView is the wire shape for one occurrence. Start falls back to the
// raw feed value when the upstream date was unparseable.
type eventView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	AllDay      bool   `json:"is_all_day,omitempty"`
	IsRecurring bool   `json:"is_recurring"`
}

func toEventView(ev catalog.Event) eventView {
	v := eventView{
		ID:          ev.UID,
		Title:       ev.Title,
		Location:    ev.Location,
		Description: ev.Description,
		AllDay:      ev.AllDay,
		IsRecurring: ev.Recurring,
	}
	if ev.Start.IsZero() {
		v.Start = ev.RawStart
	} else if ev.AllDay {
		v.Start = ev.Start.Format("2006-01-02")
	} else {
		v.Start = ev.Start.Format(time.RFC3339)
	}
	if !ev.End.IsZero() {
		if ev.AllDay {
			v.End = ev.End.Format("2006-01-02")
		} else {
			v.End = ev.End.Format(time.RFC3339)
		}
	}
	return v
}

func toEventViews(events []catalog.Event) []eventView {
	views := make([]eventView, 0, len(events))
	for _, ev := range events {
		views = append(views, toEventView(ev))
	}
	return views
}

type typeView struct {
	Name        string `json:"name"`
	Count       int    `json:"count"`
	IsRecurring bool   `json:"is_recurring"`
}

func toTypeViews(types []catalog.EventType) []typeView {
	views := make([]typeView, 0, len(types))
	for _, t := range types {
		views = append(views, typeView{Name: t.Name, Count: t.Count, IsRecurring: t.Recurring})
	}
	return views
}
