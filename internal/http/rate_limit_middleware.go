package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter throttles requests by an opaque key within a fixed window.
// Implementations fail open: a broken backend must not take the API down.
type RateLimiter interface {
	Allow(key string, limit int, window time.Duration) rateDecision
	Close()
}

type rateDecision struct {
	allowed   bool
	count     int
	windowEnd time.Time
}

const bucketSweepEvery = 5 * time.Minute

// bucket tracks one key's hits inside its current window.
type bucket struct {
	hits    int
	resetAt time.Time
}

type memoryRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	done    chan struct{}
	once    sync.Once
}

// NewMemoryRateLimiter returns a per-process limiter suitable for single
// instance deployments. A janitor goroutine drops expired buckets; callers
// must Close it when the server shuts down.
func NewMemoryRateLimiter() RateLimiter {
	rl := &memoryRateLimiter{
		buckets: make(map[string]*bucket),
		done:    make(chan struct{}),
	}
	go rl.janitor()
	return rl
}

func (rl *memoryRateLimiter) Allow(key string, limit int, window time.Duration) rateDecision {
	if limit <= 0 {
		return rateDecision{allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b := rl.buckets[key]
	if b == nil || now.After(b.resetAt) {
		b = &bucket{hits: 1, resetAt: now.Add(window)}
		rl.buckets[key] = b
		return rateDecision{allowed: true, count: 1, windowEnd: b.resetAt}
	}
	if b.hits >= limit {
		return rateDecision{allowed: false, count: b.hits, windowEnd: b.resetAt}
	}
	b.hits++
	return rateDecision{allowed: true, count: b.hits, windowEnd: b.resetAt}
}

func (rl *memoryRateLimiter) janitor() {
	ticker := time.NewTicker(bucketSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			rl.mu.Lock()
			for key, b := range rl.buckets {
				if now.After(b.resetAt) {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.done:
			return
		}
	}
}

func (rl *memoryRateLimiter) Close() {
	rl.once.Do(func() { close(rl.done) })
}

func (r *Router) withRateLimit(route string, limit int, window time.Duration, keyFn func(*http.Request) string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if limit <= 0 || r.limiter == nil {
			next(w, req)
			return
		}
		key := keyFn(req)
		if key == "" {
			key = rateLimitKeyIP(req)
		}
		decision := r.limiter.Allow(key, limit, window)
		setRateHeaders(w, limit, decision)
		if decision.allowed {
			next(w, req)
			return
		}
		label := route
		if label == "" {
			label = req.URL.Path
		}
		r.recordRateLimitHit(label, rateMetricKey(key))
		if wait := time.Until(decision.windowEnd); wait > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(wait/time.Second)+1))
		}
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	}
}

// setRateHeaders advertises the window state so well-behaved clients can
// back off before hitting the limit.
func setRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

func (r *Router) handlerAuthRate(route string, limit int, window time.Duration, next http.HandlerFunc) http.HandlerFunc {
	return r.requireAuth(r.withRateLimit(route, limit, window, r.rateLimitKeyUser, next))
}

// rateLimitKeyUser buckets authenticated traffic per account so one user
// cannot starve others behind the same NAT.
func (r *Router) rateLimitKeyUser(req *http.Request) string {
	if who, ok := identityFromContext(req.Context()); ok && who.UserID != "" {
		return "user:" + who.UserID
	}
	return ""
}

func rateLimitKeyIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	if host == "" {
		host = "unknown"
	}
	return "ip:" + host
}

// rateMetricKey strips the key's identifier so metric labels stay low
// cardinality: "user:123" counts as "user", "ip:10.0.0.1" as "ip".
func rateMetricKey(key string) string {
	if key == "" {
		return "unknown"
	}
	if idx := strings.IndexRune(key, ':'); idx > 0 {
		return key[:idx]
	}
	return key
}
