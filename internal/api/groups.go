package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/calsift/calsift/internal/catalog"
	"github.com/calsift/calsift/internal/selection"
	"github.com/calsift/calsift/internal/store"
)

type groupView struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Color       string     `json:"color,omitempty"`
	Description string     `json:"description,omitempty"`
	EventTypes  []typeView `json:"event_types"`

	// Selection status, present only when a profile is given.
	Subscribed        *bool `json:"subscribed,omitempty"`
	FullySelected     *bool `json:"fully_selected,omitempty"`
	PartiallySelected *bool `json:"partially_selected,omitempty"`
}

func toGroupView(g catalog.Group, st *selection.State) groupView {
	view := groupView{
		ID:          g.ID,
		Name:        g.Name,
		Color:       g.Color,
		Description: g.Description,
		EventTypes:  make([]typeView, 0, g.Size()),
	}
	for _, name := range g.MemberNames() {
		s := g.EventTypes[name]
		view.EventTypes = append(view.EventTypes, typeView{Name: s.Name, Count: s.Count, IsRecurring: s.Recurring})
	}
	if st != nil {
		subscribed := st.IsSubscribed(g.ID)
		full := st.GroupFullySelected(g)
		partial := st.GroupPartiallySelected(g)
		view.Subscribed = &subscribed
		view.FullySelected = &full
		view.PartiallySelected = &partial
	}
	return view
}

// ListGroups returns a calendar's groups with membership resolved against
// the current feed snapshot. With ?profile=<id>, each group also carries its
// selection status for that profile; with ?search=, groups are narrowed by
// group or member name.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	calendarID, err := idParam(r, "calendarId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid calendar id")
		return
	}

	_, snap, err := h.snapshotFor(r.Context(), calendarID)
	if err != nil {
		h.respondStoreErr(w, r, err, "get calendar failed")
		return
	}

	groups, err := h.store.Groups.ListByCalendar(r.Context(), calendarID)
	if err != nil {
		h.respondStoreErr(w, r, err, "list groups failed")
		return
	}

	catGroups := toCatalogGroups(groups, snap.Types)
	if term := r.URL.Query().Get("search"); term != "" {
		catGroups = selection.FilterGroups(catGroups, term)
	}

	var st *selection.State
	if raw := r.URL.Query().Get("profile"); raw != "" {
		profileID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid profile id")
			return
		}
		p, err := h.store.Profiles.GetByID(r.Context(), profileID)
		if err != nil {
			h.respondStoreErr(w, r, err, "get profile failed")
			return
		}
		st = selection.Restore(p.Selected, p.Subscribed, selection.FilterMode(p.FilterMode), p.SearchTerm)
	}

	views := make([]groupView, 0, len(catGroups))
	for _, g := range catGroups {
		views = append(views, toGroupView(g, st))
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": views, "error": snap.Err})
}

type groupRequest struct {
	Name        string   `json:"name"`
	Color       string   `json:"color"`
	Description string   `json:"description"`
	EventTypes  []string `json:"event_types"`
}

func (req groupRequest) validate() string {
	if strings.TrimSpace(req.Name) == "" {
		return "name is required"
	}
	return ""
}

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	calendarID, err := idParam(r, "calendarId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid calendar id")
		return
	}

	var req groupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	_, snap, err := h.snapshotFor(r.Context(), calendarID)
	if err != nil {
		h.respondStoreErr(w, r, err, "get calendar failed")
		return
	}

	g, err := h.store.Groups.Create(r.Context(), store.Group{
		CalendarID:  calendarID,
		Name:        strings.TrimSpace(req.Name),
		Color:       req.Color,
		Description: req.Description,
		EventTypes:  req.EventTypes,
	})
	if err != nil {
		h.respondStoreErr(w, r, err, "create group failed")
		return
	}

	writeJSON(w, http.StatusCreated, toGroupView(toCatalogGroup(*g, snap.Types), nil))
}

func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	calendarID, err := idParam(r, "calendarId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid calendar id")
		return
	}
	groupID, err := idParam(r, "groupId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	var req groupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	g := store.Group{
		ID:          groupID,
		CalendarID:  calendarID,
		Name:        strings.TrimSpace(req.Name),
		Color:       req.Color,
		Description: req.Description,
		EventTypes:  req.EventTypes,
	}
	if err := h.store.Groups.Update(r.Context(), g); err != nil {
		h.respondStoreErr(w, r, err, "update group failed")
		return
	}

	_, snap, err := h.snapshotFor(r.Context(), calendarID)
	if err != nil {
		h.respondStoreErr(w, r, err, "get calendar failed")
		return
	}
	writeJSON(w, http.StatusOK, toGroupView(toCatalogGroup(g, snap.Types), nil))
}

func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	calendarID, err := idParam(r, "calendarId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid calendar id")
		return
	}
	groupID, err := idParam(r, "groupId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	if err := h.store.Groups.Delete(r.Context(), calendarID, groupID); err != nil {
		h.respondStoreErr(w, r, err, "delete group failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
