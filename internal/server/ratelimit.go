package server

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Daytona2026/Warmano-webseite/internal/domain"
	"github.com/Daytona2026/Warmano-webseite/internal/telemetry"
)

const defaultIdleTTL = 10 * time.Minute

// RateLimiter applies a token bucket per client key and periodically evicts
// idle entries.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu    sync.Mutex
	byKey map[string]*limiterEntry
	hits  uint64
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows requestsPerMinute per key with the given burst. It
// returns nil, which allows everything, when either value is not positive.
func NewRateLimiter(requestsPerMinute float64, burst int, idleTTL time.Duration) *RateLimiter {
	if requestsPerMinute <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}
	return &RateLimiter{
		limit:   rate.Limit(requestsPerMinute / 60),
		burst:   burst,
		idleTTL: idleTTL,
		byKey:   make(map[string]*limiterEntry),
	}
}

// Allow reports whether one request for key is allowed at now, and how
// many requests remain in the bucket afterwards.
func (l *RateLimiter) Allow(key string, now time.Time) (bool, int) {
	if l == nil {
		return true, 0
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.byKey[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byKey[key] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)
	remaining := int(e.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.byKey {
			if v.lastSeen.Before(cutoff) {
				delete(l.byKey, k)
			}
		}
	}

	return allowed, remaining
}

// Len returns the number of tracked keys.
func (l *RateLimiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byKey)
}

// RateLimitMiddleware rejects clients that exceed the limiter with 429 and
// writes x-ratelimit-* headers on every response it lets through.
func RateLimitMiddleware(l *RateLimiter, metrics *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining := l.Allow(ClientIP(r), time.Now())
			h := w.Header()
			h.Set("x-ratelimit-limit-requests", strconv.Itoa(l.burst))
			h.Set("x-ratelimit-remaining-requests", strconv.Itoa(remaining))
			if !allowed {
				metrics.RateLimited()
				h.Set("Retry-After", strconv.Itoa(retryAfterSeconds(l.limit)))
				WriteError(w, r, domain.ErrRateLimit("Zu viele Anfragen. Bitte versuchen Sie es später erneut."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(limit rate.Limit) int {
	if limit <= 0 {
		return 60
	}
	secs := int(1/float64(limit) + 0.999)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// ClientIP returns the host part of the request's remote address. The
// router runs chi's RealIP first, so proxies' forwarding headers are
// already applied.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
