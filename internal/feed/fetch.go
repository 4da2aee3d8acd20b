package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const maxFeedBytes = 20 << 20 // 20 MiB, more than any sane feed

// FetchResult is the outcome of fetching one feed URL. StaleErr is set when
// the body was served from cache because the upstream request failed; the
// data is usable but out of date, and callers should surface the error.
type FetchResult struct {
	Body      []byte
	FromCache bool
	StaleErr  error
}

type cacheEntry struct {
	etag         string
	lastModified string
	body         []byte
}

// Fetcher downloads ICS feeds with conditional requests. Validators and the
// last good body are kept in memory per URL, so a 304 or a transient upstream
// failure reuses the previous payload.
type Fetcher struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewFetcher returns a Fetcher with a sane request timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: 15 * time.Second},
		cache:  make(map[string]cacheEntry),
	}
}

// Fetch retrieves a single feed URL, honoring ETag and Last-Modified.
func (f *Fetcher) Fetch(ctx context.Context, url string) (FetchResult, error) {
	if url == "" {
		return FetchResult{}, errors.New("feed URL is empty")
	}

	f.mu.Lock()
	cached := f.cache[url]
	f.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if cached.etag != "" {
		req.Header.Set("If-None-Match", cached.etag)
	}
	if cached.lastModified != "" {
		req.Header.Set("If-Modified-Since", cached.lastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cached.body) > 0 {
			return FetchResult{Body: cached.body, FromCache: true, StaleErr: err}, nil
		}
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
		if readErr != nil {
			return FetchResult{}, readErr
		}
		f.mu.Lock()
		f.cache[url] = cacheEntry{
			etag:         resp.Header.Get("ETag"),
			lastModified: resp.Header.Get("Last-Modified"),
			body:         body,
		}
		f.mu.Unlock()
		return FetchResult{Body: body}, nil

	case http.StatusNotModified:
		if len(cached.body) == 0 {
			return FetchResult{}, errors.New("304 Not Modified without a cached body")
		}
		return FetchResult{Body: cached.body, FromCache: true}, nil

	default:
		err := fmt.Errorf("feed fetch failed: %s", resp.Status)
		if len(cached.body) > 0 {
			return FetchResult{Body: cached.body, FromCache: true, StaleErr: err}, nil
		}
		return FetchResult{}, err
	}
}
