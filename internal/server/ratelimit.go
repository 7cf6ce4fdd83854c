package server

import (
	"math"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"skillgap/internal/config"
	"skillgap/internal/errors"

	"golang.org/x/time/rate"
)

// limiterEvictionAge is how long a caller may stay idle before its bucket is dropped
const limiterEvictionAge = 10 * time.Minute

// clientLimiter is one caller's token bucket
type clientLimiter struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps a token bucket per caller key (API key or client IP)
// and forgets callers that have been idle for limiterEvictionAge.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter

	perSecond rate.Limit
	burst     int
	idleTTL   time.Duration
	rejected  atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
	logger   *errors.Logger
}

// NewRateLimiter allows requestsPerMin sustained requests per caller with bursts of burstCapacity
func NewRateLimiter(requestsPerMin, burstCapacity int, logger *errors.Logger) *RateLimiter {
	rl := &RateLimiter{
		clients:   make(map[string]*clientLimiter),
		perSecond: rate.Limit(float64(requestsPerMin) / 60.0),
		burst:     burstCapacity,
		idleTTL:   limiterEvictionAge,
		stop:      make(chan struct{}),
		logger:    logger,
	}
	go rl.evictLoop()
	return rl
}

// Allow takes a token from key's bucket. When the bucket is empty it reports
// how long the caller has to wait for the next token.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	now := time.Now()

	rl.mu.Lock()
	client, ok := rl.clients[key]
	if !ok {
		client = &clientLimiter{bucket: rate.NewLimiter(rl.perSecond, rl.burst)}
		rl.clients[key] = client
	}
	client.lastSeen = now
	rl.mu.Unlock()

	res := client.bucket.ReserveN(now, 1)
	if !res.OK() {
		rl.rejected.Add(1)
		return false, time.Minute
	}
	if wait := res.DelayFrom(now); wait > 0 {
		res.CancelAt(now)
		rl.rejected.Add(1)
		return false, wait
	}
	return true, 0
}

// GetStats reports the limiter settings and counters for /stats
func (rl *RateLimiter) GetStats() map[string]any {
	rl.mu.Lock()
	active := len(rl.clients)
	rl.mu.Unlock()

	return map[string]any{
		"enabled":           true,
		"active_limiters":   active,
		"rate_per_minute":   float64(rl.perSecond) * 60,
		"burst_capacity":    rl.burst,
		"rejected_requests": rl.rejected.Load(),
	}
}

// Close stops the eviction goroutine. It is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(rl.idleTTL)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			if removed := rl.evictIdle(now); removed > 0 && rl.logger != nil {
				rl.logger.Debug("Evicted idle rate limiters", "removed", removed)
			}
		case <-rl.stop:
			return
		}
	}
}

// evictIdle drops callers not seen within idleTTL of now and returns how many were dropped
func (rl *RateLimiter) evictIdle(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, client := range rl.clients {
		if now.Sub(client.lastSeen) > rl.idleTTL {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

// rateLimitMiddleware rejects callers whose bucket is empty with 429 and a Retry-After hint
func (s *Server) rateLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimiter == nil || s.RateLimit == nil || !s.RateLimit.Enabled {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r, s.RateLimit)
			if key == "" {
				next(w, r)
				return
			}

			allowed, wait := s.RateLimiter.Allow(key)
			if !allowed {
				retryAfter := retryAfterSeconds(wait)
				s.Logger.Info("Rate limit exceeded",
					"key", loggableKey(key),
					"endpoint", r.URL.Path,
					"retry_after_seconds", retryAfter)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeErrorResponse(w, "Rate limit exceeded", "Too many requests", http.StatusTooManyRequests)
				return
			}

			next(w, r)
		}
	}
}

// retryAfterSeconds rounds a wait up to whole seconds, never below one
func retryAfterSeconds(wait time.Duration) int {
	return max(1, int(math.Ceil(wait.Seconds())))
}

// rateLimitKey prefers the caller's API key and falls back to its IP.
// An empty key means the request is not limited.
func rateLimitKey(r *http.Request, cfg *config.RateLimitConfig) string {
	if cfg.ByAPIKey {
		if apiKey := requestAPIKey(r); apiKey != "" {
			return "api:" + apiKey
		}
	}
	if cfg.ByIP {
		return "ip:" + getClientIP(r)
	}
	return ""
}

func loggableKey(key string) string {
	if apiKey, ok := strings.CutPrefix(key, "api:"); ok {
		return "api:" + maskAPIKey(apiKey)
	}
	return key
}

// requestAPIKey reads X-API-Key, falling back to an Authorization bearer token
func requestAPIKey(r *http.Request) string {
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		return apiKey
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	return ""
}

// getClientIP returns the first valid address from X-Forwarded-For, then X-Real-IP,
// then the connection's remote address
func getClientIP(r *http.Request) string {
	for candidate := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		if addr, err := netip.ParseAddr(strings.TrimSpace(candidate)); err == nil {
			return addr.String()
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.String()
	}
	if addrPort, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return addrPort.Addr().String()
	}
	return r.RemoteAddr
}
