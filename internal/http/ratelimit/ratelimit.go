// Package ratelimit provides per-client-IP token buckets for HTTP routes.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Cap on tracked IPs; the oldest bucket is evicted past this.
const maxBuckets = 10000

// PerIP rate-limits requests by client IP. The client IP comes from
// X-Forwarded-For / X-Real-IP only when the peer is a trusted proxy,
// otherwise from the connection's remote address.
type PerIP struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	proxies []*net.IPNet

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// New returns a PerIP limiter allowing limit requests per second with the
// given burst. Buckets idle longer than idleTTL are swept in the background.
// trustedProxies holds CIDR ranges or single IPs; empty trusts all peers'
// forwarding headers.
func New(limit rate.Limit, burst int, idleTTL time.Duration, trustedProxies []string) *PerIP {
	l := &PerIP{
		limit:   limit,
		burst:   burst,
		idleTTL: idleTTL,
		proxies: parseProxies(trustedProxies),
		buckets: make(map[string]*bucket),
	}
	go l.sweep()
	return l
}

// Middleware rejects requests over the limit with 429.
func (l *PerIP) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(l.ClientIP(r)) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Allow reports whether one more request from ip fits its bucket.
func (l *PerIP) Allow(ip string) bool {
	l.mu.Lock()
	b, ok := l.buckets[ip]
	if !ok {
		if len(l.buckets) >= maxBuckets {
			l.evictOldestLocked()
		}
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.lastSeen = time.Now()
	l.mu.Unlock()

	return b.lim.Allow()
}

func (l *PerIP) evictOldestLocked() {
	var oldestIP string
	var oldest time.Time
	for ip, b := range l.buckets {
		if oldestIP == "" || b.lastSeen.Before(oldest) {
			oldestIP = ip
			oldest = b.lastSeen
		}
	}
	delete(l.buckets, oldestIP)
}

func (l *PerIP) sweep() {
	ticker := time.NewTicker(l.idleTTL)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-2 * l.idleTTL)
		l.mu.Lock()
		for ip, b := range l.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(l.buckets, ip)
			}
		}
		l.mu.Unlock()
	}
}

// ClientIP resolves the IP a request is limited by. Forwarding headers are
// honored only when the peer is a trusted proxy (or no proxy list is set);
// X-Forwarded-For yields its leftmost entry.
func (l *PerIP) ClientIP(r *http.Request) string {
	remote := parseAddr(r.RemoteAddr)

	if len(l.proxies) > 0 && !l.trusted(remote) {
		return remote.String()
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip.String()
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return ip.String()
		}
	}
	return remote.String()
}

func (l *PerIP) trusted(ip net.IP) bool {
	for _, n := range l.proxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func parseProxies(entries []string) []*net.IPNet {
	var out []*net.IPNet
	for _, entry := range entries {
		if _, ipnet, err := net.ParseCIDR(entry); err == nil {
			out = append(out, ipnet)
			continue
		}
		// Single IPs become host routes.
		if ip := net.ParseIP(entry); ip != nil {
			suffix := "/32"
			if ip.To4() == nil {
				suffix = "/128"
			}
			if _, ipnet, err := net.ParseCIDR(entry + suffix); err == nil {
				out = append(out, ipnet)
			}
		}
	}
	return out
}

func parseAddr(addr string) net.IP {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}
