package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestFetchCachesWithETag(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
	}))
	defer srv.Close()

	f := NewFetcher()
	ctx := context.Background()

	first, err := f.Fetch(ctx, srv.URL)
	if err != nil {
		t.Fatalf("first fetch error = %v", err)
	}
	if first.FromCache {
		t.Error("first fetch should not come from cache")
	}

	second, err := f.Fetch(ctx, srv.URL)
	if err != nil {
		t.Fatalf("second fetch error = %v", err)
	}
	if !second.FromCache {
		t.Error("second fetch should be served from cache via 304")
	}
	if string(second.Body) != string(first.Body) {
		t.Error("cached body differs from original")
	}
	if hits.Load() != 2 {
		t.Errorf("server hits = %d, want 2", hits.Load())
	}
}

func TestFetchFallsBackToCacheOnServerError(t *testing.T) {
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
	}))
	defer srv.Close()

	f := NewFetcher()
	ctx := context.Background()

	if _, err := f.Fetch(ctx, srv.URL); err != nil {
		t.Fatalf("seed fetch error = %v", err)
	}

	failing.Store(true)
	res, err := f.Fetch(ctx, srv.URL)
	if err != nil {
		t.Fatalf("fetch during outage error = %v", err)
	}
	if !res.FromCache {
		t.Error("outage fetch should fall back to cached body")
	}
	if res.StaleErr == nil {
		t.Error("cache fallback should carry the upstream error as StaleErr")
	}

	failing.Store(false)
	res, err = f.Fetch(ctx, srv.URL)
	if err != nil {
		t.Fatalf("fetch after recovery error = %v", err)
	}
	if res.StaleErr != nil {
		t.Errorf("recovered fetch StaleErr = %v, want nil", res.StaleErr)
	}
}

func TestFetchErrorsWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewFetcher()
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Error("fetch with no cache and failing upstream should error")
	}
	if _, err := f.Fetch(context.Background(), ""); err == nil {
		t.Error("empty URL should error")
	}
}
