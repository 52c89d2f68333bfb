// cmd/api/middleware.go
// This file contains HTTP middleware used to wrap the router.
// Middleware functions intercept every request before it reaches a handler.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// recoverPanic catches any runtime panic that occurs in a downstream handler.
// Without this, a panic would cause the goroutine to terminate and the client's
// connection to be dropped silently. With this middleware the client receives a
// clean 500 Internal Server Error instead.
func (app *applicationDependencies) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// defer runs when the surrounding goroutine unwinds, even after a panic.
		defer func() {
			if err := recover(); err != nil {
				// Tell the HTTP server to close the connection after this response.
				w.Header().Set("Connection", "close")
				// Convert the recovered panic value to an error and send a 500.
				app.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// client holds a per-IP rate limiter and the time it was last seen.
// lastSeen lets us evict old entries so the map does not grow forever.
type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter is the per-client-address rate-limiting state. It is created
// once at startup and passed in explicitly rather than living in a
// package-level map. Stale entries are pruned lazily on check, so the map
// stays bounded without a background goroutine. The check is best-effort:
// two concurrent requests racing on the same new address may each get a
// token, which is acceptable.
type ipLimiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	rps       rate.Limit
	burst     int
	lastPrune time.Time
}

// How long an address may sit idle before its limiter is evicted, and how
// often at most the eviction sweep runs.
const (
	limiterIdleTTL       = 3 * time.Minute
	limiterPruneInterval = time.Minute
)

// newIPLimiter creates the rate-limiting state for the process lifetime.
func newIPLimiter(rps float64, burst int) *ipLimiter {
	return &ipLimiter{
		clients:   make(map[string]*client),
		rps:       rate.Limit(rps),
		burst:     burst,
		lastPrune: time.Now(),
	}
}

// allow consumes one token from the limiter for ip, creating it on first
// sight, and reports whether the request may proceed.
func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	// Prune stale addresses, at most once per interval.
	if now.Sub(l.lastPrune) > limiterPruneInterval {
		for addr, c := range l.clients {
			if now.Sub(c.lastSeen) > limiterIdleTTL {
				delete(l.clients, addr)
			}
		}
		l.lastPrune = now
	}

	c, found := l.clients[ip]
	if !found {
		c = &client{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now

	// Allow() consumes one token; returns false if the bucket is empty.
	return c.limiter.Allow()
}

// rateLimit applies per-IP token-bucket rate limiting using the injected
// ipLimiter state.
func (app *applicationDependencies) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !app.config.limiter.enabled {
			next.ServeHTTP(w, r)
			return
		}

		// Extract just the IP from the RemoteAddr (strips the port).
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}

		if !app.limiter.allow(ip) {
			app.rateLimitExceededResponse(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// contextKey is a private type for request-context values set by middleware.
type contextKey string

const principalContextKey = contextKey("principal")

// authenticate resolves the opaque principal identity from the request
// credentials and stores it in the request context. Token verification is
// the identity collaborator's job and happens upstream; by the time a
// request reaches this API the bearer token is the opaque principal id it
// resolved to. Requests without credentials proceed anonymously and only
// touch membership-guarded operations through the 403 path.
func (app *applicationDependencies) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := ""
		if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
			principal = strings.TrimSpace(after)
		}

		ctx := context.WithValue(r.Context(), principalContextKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// principal returns the principal id resolved by authenticate, or
// "anonymous" when the request carried no credentials.
func (app *applicationDependencies) principal(r *http.Request) string {
	p, _ := r.Context().Value(principalContextKey).(string)
	if p == "" {
		return "anonymous"
	}
	return p
}
