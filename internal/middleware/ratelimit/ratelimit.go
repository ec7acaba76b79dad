// Package ratelimit throttles refresh requests per client. A refresh
// re-reads the whole ledger source, so one client hammering the endpoint
// must not turn into a read storm against Sheets or disk.
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"
)

type window struct {
	start    time.Time
	requests int
}

// Limiter counts requests per client over a fixed one-minute window.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*window
	limit   int

	now func() time.Time
}

func New(requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &Limiter{
		clients: make(map[string]*window),
		limit:   requestsPerMinute,
		now:     time.Now,
	}
}

// Allow reports whether a request from clientID fits in its current
// window. Stale windows are pruned inline so no cleanup goroutine is
// needed.
func (l *Limiter) Allow(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, w := range l.clients {
		if now.Sub(w.start) > 10*time.Minute {
			delete(l.clients, id)
		}
	}

	w, ok := l.clients[clientID]
	if !ok || now.Sub(w.start) > time.Minute {
		l.clients[clientID] = &window{start: now, requests: 1}
		return true
	}

	w.requests++
	return w.requests <= l.limit
}

// Wrap guards a handler, answering 429 with a Retry-After once a client
// exhausts its window.
func (l *Limiter) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientAddr(r)) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
