package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/calsift/calsift/internal/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{BaseURL: "http://localhost:8080"}
	cfg.Session.Secret = strings.Repeat("k", 32)
	return cfg
}

func TestSessionRoundTrip(t *testing.T) {
	m := NewSessionManager(testConfig())

	rec := httptest.NewRecorder()
	if err := m.Issue(rec, 42); err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])

	userID, ok := m.CurrentUserID(req)
	if !ok {
		t.Fatal("expected a valid session")
	}
	if userID != 42 {
		t.Errorf("userID = %d, want 42", userID)
	}
}

func TestSessionRejectsTamperedCookie(t *testing.T) {
	m := NewSessionManager(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "calsift_session", Value: "garbage"})

	if _, ok := m.CurrentUserID(req); ok {
		t.Fatal("expected tampered cookie to be rejected")
	}
}

func TestSessionClear(t *testing.T) {
	m := NewSessionManager(testConfig())

	rec := httptest.NewRecorder()
	m.Clear(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "" {
		t.Fatal("expected an expired empty cookie")
	}
}
