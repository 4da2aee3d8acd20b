package api

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/calsift/calsift/internal/auth"
	"github.com/calsift/calsift/internal/catalog"
	"github.com/calsift/calsift/internal/feed"
	"github.com/calsift/calsift/internal/selection"
	"github.com/calsift/calsift/internal/store"
)

type profileView struct {
	ID                 int64    `json:"id"`
	CalendarID         int64    `json:"calendar_id"`
	Name               string   `json:"name,omitempty"`
	FilterMode         string   `json:"filter_mode"`
	SearchTerm         string   `json:"search_term,omitempty"`
	Selected           []string `json:"selected"`
	SubscribedGroupIDs []int64  `json:"subscribed_group_ids"`
	EffectiveSelected  []string `json:"effective_selected"`
	Summary            string   `json:"summary"`
	HasShareToken      bool     `json:"has_share_token"`
}

// profileEnv bundles everything a selection mutation needs: the stored
// profile, the live feed snapshot, and the calendar's groups resolved
// against it.
type profileEnv struct {
	profile  *store.Profile
	calendar *store.Calendar
	snap     feed.Snapshot
	groups   []catalog.Group
	state    *selection.State
}

func (h *Handler) loadProfileEnv(ctx context.Context, profileID int64) (*profileEnv, error) {
	p, err := h.store.Profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}

	storeGroups, err := h.store.Groups.ListByCalendar(ctx, p.CalendarID)
	if err != nil {
		return nil, err
	}
	return h.buildProfileEnv(ctx, p, storeGroups)
}

// loadSubscriptionEnv resolves only the groups the profile subscribes to.
// Filtering consults subscribed groups alone, so a token export never needs
// the rest of the calendar's groups.
func (h *Handler) loadSubscriptionEnv(ctx context.Context, p *store.Profile) (*profileEnv, error) {
	storeGroups, err := h.store.Groups.ListByIDs(ctx, p.CalendarID, p.Subscribed)
	if err != nil {
		return nil, err
	}
	return h.buildProfileEnv(ctx, p, storeGroups)
}

func (h *Handler) buildProfileEnv(ctx context.Context, p *store.Profile, storeGroups []store.Group) (*profileEnv, error) {
	cal, snap, err := h.snapshotFor(ctx, p.CalendarID)
	if err != nil {
		return nil, err
	}

	return &profileEnv{
		profile:  p,
		calendar: cal,
		snap:     snap,
		groups:   toCatalogGroups(storeGroups, snap.Types),
		state:    selection.Restore(p.Selected, p.Subscribed, selection.FilterMode(p.FilterMode), p.SearchTerm),
	}, nil
}

func (env *profileEnv) view() profileView {
	st := env.state

	effective := env.effectiveNames()
	selected := st.SelectedNames()
	if selected == nil {
		selected = []string{}
	}
	subscribed := st.SubscribedIDs()
	if subscribed == nil {
		subscribed = []int64{}
	}

	return profileView{
		ID:                 env.profile.ID,
		CalendarID:         env.profile.CalendarID,
		Name:               env.profile.Name,
		FilterMode:         string(st.Mode()),
		SearchTerm:         st.SearchTerm(),
		Selected:           selected,
		SubscribedGroupIDs: subscribed,
		EffectiveSelected:  effective,
		Summary:            st.Summary(len(env.snap.Types)),
		HasShareToken:      env.profile.TokenHash != nil,
	}
}

func (env *profileEnv) effectiveNames() []string {
	set := env.state.EffectiveSelected(env.groups)
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type profileSummaryView struct {
	ID            int64  `json:"id"`
	Name          string `json:"name,omitempty"`
	FilterMode    string `json:"filter_mode"`
	HasShareToken bool   `json:"has_share_token"`
}

// ListProfiles returns the saved selections of one calendar in summary
// form; the full selection state is loaded per profile.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	calendarID, err := idParam(r, "calendarId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid calendar id")
		return
	}

	if _, err := h.store.Calendars.GetByID(r.Context(), calendarID); err != nil {
		h.respondStoreErr(w, r, err, "get calendar failed")
		return
	}

	profiles, err := h.store.Profiles.ListByCalendar(r.Context(), calendarID)
	if err != nil {
		h.respondStoreErr(w, r, err, "list profiles failed")
		return
	}

	views := make([]profileSummaryView, 0, len(profiles))
	for _, p := range profiles {
		views = append(views, profileSummaryView{
			ID:            p.ID,
			Name:          p.Name,
			FilterMode:    p.FilterMode,
			HasShareToken: p.TokenHash != nil,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": views})
}

type createProfileRequest struct {
	CalendarID int64  `json:"calendar_id"`
	Name       string `json:"name"`
}

func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if _, err := h.store.Calendars.GetByID(r.Context(), req.CalendarID); err != nil {
		h.respondStoreErr(w, r, err, "get calendar failed")
		return
	}

	profile := store.Profile{
		CalendarID: req.CalendarID,
		Name:       strings.TrimSpace(req.Name),
		FilterMode: string(selection.ModeInclude),
		Selected:   []string{},
		Subscribed: []int64{},
	}
	if user, ok := auth.UserFromContext(r.Context()); ok {
		profile.UserID = &user.ID
	}

	created, err := h.store.Profiles.Create(r.Context(), profile)
	if err != nil {
		h.respondStoreErr(w, r, err, "create profile failed")
		return
	}

	env, err := h.loadProfileEnv(r.Context(), created.ID)
	if err != nil {
		h.respondStoreErr(w, r, err, "load profile failed")
		return
	}
	writeJSON(w, http.StatusCreated, env.view())
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "profileId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid profile id")
		return
	}

	env, err := h.loadProfileEnv(r.Context(), id)
	if err != nil {
		h.respondStoreErr(w, r, err, "load profile failed")
		return
	}
	writeJSON(w, http.StatusOK, env.view())
}

func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "profileId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid profile id")
		return
	}

	if err := h.store.Profiles.Delete(r.Context(), id); err != nil {
		h.respondStoreErr(w, r, err, "delete profile failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mutateProfile runs one selection mutation against a restored state and
// persists the result. mutate returns a client error message to abort with
// 400, or empty to continue.
func (h *Handler) mutateProfile(w http.ResponseWriter, r *http.Request, mutate func(env *profileEnv) string) {
	id, err := idParam(r, "profileId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid profile id")
		return
	}

	env, err := h.loadProfileEnv(r.Context(), id)
	if err != nil {
		h.respondStoreErr(w, r, err, "load profile failed")
		return
	}

	if msg := mutate(env); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	p := env.profile
	p.FilterMode = string(env.state.Mode())
	p.SearchTerm = env.state.SearchTerm()
	p.Selected = env.state.SelectedNames()
	p.Subscribed = env.state.SubscribedIDs()
	if p.Selected == nil {
		p.Selected = []string{}
	}
	if p.Subscribed == nil {
		p.Subscribed = []int64{}
	}

	if err := h.store.Profiles.UpdateSelection(r.Context(), *p); err != nil {
		h.respondStoreErr(w, r, err, "update profile failed")
		return
	}
	writeJSON(w, http.StatusOK, env.view())
}

func (h *Handler) ToggleEventType(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	h.mutateProfile(w, r, func(env *profileEnv) string {
		env.state.ToggleEventType(req.Name, env.groups)
		return ""
	})
}

func (h *Handler) ToggleGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GroupID int64 `json:"group_id"`
	}
	if err := decodeBody(r, &req); err != nil || req.GroupID == 0 {
		writeError(w, http.StatusBadRequest, "group_id is required")
		return
	}

	h.mutateProfile(w, r, func(env *profileEnv) string {
		for _, g := range env.groups {
			if g.ID == req.GroupID {
				env.state.ToggleGroupSubscription(g)
				return ""
			}
		}
		return "unknown group"
	})
}

func (h *Handler) SelectAll(w http.ResponseWriter, r *http.Request) {
	h.mutateProfile(w, r, func(env *profileEnv) string {
		names := make([]string, 0, len(env.snap.Types))
		for _, t := range env.snap.Types {
			names = append(names, t.Name)
		}
		env.state.SelectAll(names)
		return ""
	})
}

func (h *Handler) ClearAll(w http.ResponseWriter, r *http.Request) {
	h.mutateProfile(w, r, func(env *profileEnv) string {
		env.state.ClearAll()
		return ""
	})
}

func (h *Handler) SwitchFilterMode(w http.ResponseWriter, r *http.Request) {
	h.mutateProfile(w, r, func(env *profileEnv) string {
		env.state.SwitchMode()
		return ""
	})
}

func (h *Handler) SetSearchTerm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Term string `json:"term"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	h.mutateProfile(w, r, func(env *profileEnv) string {
		env.state.SetSearchTerm(req.Term)
		return ""
	})
}

// ShareProfile issues a fresh subscription token for the profile. The raw
// token is returned exactly once; only its digest is stored.
func (h *Handler) ShareProfile(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "profileId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid profile id")
		return
	}

	if _, err := h.store.Profiles.GetByID(r.Context(), id); err != nil {
		h.respondStoreErr(w, r, err, "get profile failed")
		return
	}

	token, digest := auth.NewShareToken()
	if err := h.store.Profiles.SetTokenHash(r.Context(), id, &digest); err != nil {
		h.respondStoreErr(w, r, err, "store share token failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"token": token,
		"url":   strings.TrimRight(h.cfg.BaseURL, "/") + "/calendar/" + token + ".ics",
	})
}
