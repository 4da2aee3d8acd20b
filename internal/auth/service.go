package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/calsift/calsift/internal/config"
	httperrors "github.com/calsift/calsift/internal/http/errors"
	"github.com/calsift/calsift/internal/store"
)

const stateCookieName = "calsift_oauth_state"

// Service encapsulates the OAuth/OIDC login flow and session checks.
type Service struct {
	cfg      *config.Config
	store    *store.Store
	sessions *SessionManager
	verifier *oidc.IDTokenVerifier
	oauth    oauth2.Config
	secure   bool
}

func NewService(ctx context.Context, cfg *config.Config, st *store.Store, sessions *SessionManager) (*Service, error) {
	provider, err := oidc.NewProvider(ctx, cfg.OAuth.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover oidc provider: %w", err)
	}

	redirectURL := strings.TrimRight(cfg.BaseURL, "/") + cfg.OAuth.RedirectPath

	secure := true
	if base, err := url.Parse(cfg.BaseURL); err == nil && base.Scheme != "https" {
		secure = false
	}

	return &Service{
		cfg:      cfg,
		store:    st,
		sessions: sessions,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.OAuth.ClientID}),
		oauth: oauth2.Config{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  redirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		secure: secure,
	}, nil
}

// BeginOAuth starts the authorization flow with a state nonce cookie.
func (s *Service) BeginOAuth(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, s.oauth.AuthCodeURL(state), http.StatusFound)
}

// HandleOAuthCallback validates the state, exchanges the code, verifies the
// ID token, and starts a session for the upserted user.
func (s *Service) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		httperrors.BadRequestError(w, r, errors.New("state mismatch"), "invalid oauth state")
		return
	}

	// The nonce is single use.
	http.SetCookie(w, &http.Cookie{
		Name:    stateCookieName,
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
		Secure:  s.secure,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		httperrors.BadRequestError(w, r, errors.New("missing code"), "missing authorization code")
		return
	}

	token, err := s.oauth.Exchange(r.Context(), code)
	if err != nil {
		httperrors.InternalError(w, r, err, "oauth code exchange failed")
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		httperrors.InternalError(w, r, errors.New("token response missing id_token"), "oauth provider response invalid")
		return
	}

	idToken, err := s.verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		httperrors.InternalError(w, r, err, "id token verification failed")
		return
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		httperrors.InternalError(w, r, err, "id token claims unreadable")
		return
	}

	user, err := s.store.Users.UpsertOAuthUser(r.Context(), idToken.Subject, claims.Email)
	if err != nil {
		httperrors.InternalError(w, r, err, "persist user failed")
		return
	}

	if err := s.sessions.Issue(w, user.ID); err != nil {
		httperrors.InternalError(w, r, err, "issue session failed")
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout clears the session cookie.
func (s *Service) Logout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// RequireSession loads the current user into the request context or rejects
// the request.
func (s *Service) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.sessions.CurrentUserID(r)
		if !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		user, err := s.store.Users.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.sessions.Clear(w)
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			httperrors.InternalError(w, r, err, "load session user failed")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}
