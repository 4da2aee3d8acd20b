package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/calsift/calsift/internal/auth"
	"github.com/calsift/calsift/internal/export"
	"github.com/calsift/calsift/internal/metrics"
)

// ExportProfile serves the filtered calendar as a one-time download.
func (h *Handler) ExportProfile(w http.ResponseWriter, r *http.Request) {
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

	body := h.buildExport(env, 0)
	filename := exportFilename(env.calendar.Name)
	export.WriteDownload(w, filename, body)
	metrics.ObserveExport("download")
}

// Subscription serves the filtered calendar for a share token. No session
// is required; the token is the credential.
func (h *Handler) Subscription(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	p, err := h.store.Profiles.GetByTokenHash(r.Context(), auth.HashShareToken(token))
	if err != nil {
		h.respondStoreErr(w, r, err, "get profile by token failed")
		return
	}

	env, err := h.loadSubscriptionEnv(r.Context(), p)
	if err != nil {
		h.respondStoreErr(w, r, err, "load profile failed")
		return
	}

	ttl := time.Duration(h.cfg.Export.TTLMinutes) * time.Minute
	body := h.buildExport(env, ttl)
	export.WriteSubscription(w, body)
	metrics.ObserveExport("subscription")
}

func (h *Handler) buildExport(env *profileEnv, ttl time.Duration) string {
	events := export.FilterEvents(env.snap.Events, env.state, env.groups)
	return export.BuildCalendar(events, export.BuildOptions{
		Name: env.calendar.Name,
		TTL:  ttl,
	})
}

func exportFilename(calendarName string) string {
	name := strings.TrimSpace(strings.ToLower(calendarName))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, name)
	if name == "" {
		name = "calendar"
	}
	return fmt.Sprintf("%s-filtered.ics", name)
}
