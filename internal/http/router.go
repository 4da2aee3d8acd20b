package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/calsift/calsift/internal/api"
	"github.com/calsift/calsift/internal/auth"
	"github.com/calsift/calsift/internal/config"
	"github.com/calsift/calsift/internal/http/csrf"
	"github.com/calsift/calsift/internal/http/ratelimit"
	"github.com/calsift/calsift/internal/metrics"
	"github.com/calsift/calsift/internal/store"
)

// NewRouter wires all HTTP routes: the JSON API, auth, and the public
// subscription endpoint.
func NewRouter(cfg *config.Config, st *store.Store, authService *auth.Service, apiHandler *api.Handler) http.Handler {
	r := chi.NewRouter()

	// Auth endpoints: 5 requests per second, burst of 10
	authRateLimiter := ratelimit.New(rate.Limit(5), 10, 5*time.Minute, cfg.TrustedProxies)
	// Subscription endpoint: 20 requests per second, burst of 50 (calendar
	// clients poll aggressively)
	exportRateLimiter := ratelimit.New(rate.Limit(20), 50, 5*time.Minute, cfg.TrustedProxies)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := st.HealthCheck(ctx); err != nil {
			http.Error(w, "unready", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.PrometheusEnabled {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			metrics.Handler().ServeHTTP(w, r)
		})
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(authRateLimiter.Middleware())
		r.Get("/login", authService.BeginOAuth)
		r.Get("/callback", authService.HandleOAuthCallback)
	})
	r.With(authService.RequireSession, csrf.Middleware(cfg)).Post("/auth/logout", authService.Logout)

	r.Route("/api", func(r chi.Router) {
		r.Use(authService.RequireSession)
		r.Use(csrf.Middleware(cfg))

		r.Route("/calendars", func(r chi.Router) {
			r.Get("/", apiHandler.ListCalendars)
			r.Post("/", apiHandler.CreateCalendar)

			r.Route("/{calendarId}", func(r chi.Router) {
				r.Get("/", apiHandler.GetCalendar)
				r.Put("/", apiHandler.UpdateCalendar)
				r.Delete("/", apiHandler.DeleteCalendar)
				r.Post("/refresh", apiHandler.RefreshCalendar)

				r.Get("/events", apiHandler.CalendarEvents)
				r.Get("/types", apiHandler.CalendarTypes)
				r.Get("/types/{eventType}/events", apiHandler.TypeEvents)

				r.Get("/profiles", apiHandler.ListProfiles)

				r.Get("/groups", apiHandler.ListGroups)
				r.Post("/groups", apiHandler.CreateGroup)
				r.Put("/groups/{groupId}", apiHandler.UpdateGroup)
				r.Delete("/groups/{groupId}", apiHandler.DeleteGroup)
			})
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Post("/", apiHandler.CreateProfile)

			r.Route("/{profileId}", func(r chi.Router) {
				r.Get("/", apiHandler.GetProfile)
				r.Delete("/", apiHandler.DeleteProfile)

				r.Post("/toggle-event-type", apiHandler.ToggleEventType)
				r.Post("/toggle-group", apiHandler.ToggleGroup)
				r.Post("/select-all", apiHandler.SelectAll)
				r.Post("/clear-all", apiHandler.ClearAll)
				r.Post("/switch-filter-mode", apiHandler.SwitchFilterMode)
				r.Post("/search", apiHandler.SetSearchTerm)
				r.Post("/share", apiHandler.ShareProfile)

				r.Get("/export.ics", apiHandler.ExportProfile)
			})
		})
	})

	// Tokened subscription feed: the token is the credential, calendar
	// clients cannot carry a session.
	r.With(exportRateLimiter.Middleware()).Get("/calendar/{token}.ics", apiHandler.Subscription)

	return r
}
