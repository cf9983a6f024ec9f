package httpmiddleware

import (
	"context"
	"hash/fnv"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per window. Zero disables limiting.
	Max int
	// Window is the length of one window.
	Window time.Duration
	// KeyFunc groups requests. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
}

// window counts requests in the current and previous fixed windows; the
// effective rate weights the previous count by its overlap with the sliding
// window ending now.
type window struct {
	prevCount float64
	prevStart time.Time
	currCount float64
	currStart time.Time
}

type rateLimiter struct {
	max    int
	period time.Duration
	key    func(*http.Request) string

	mu      sync.Mutex
	windows map[string]*window
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	key := cfg.KeyFunc
	if key == nil {
		key = ClientIP
	}
	return &rateLimiter{
		max:     cfg.Max,
		period:  cfg.Window,
		key:     key,
		windows: make(map[string]*window),
	}
}

// take records a request for key at now. It reports the remaining budget, the
// end of the current window and whether the request fits.
func (rl *rateLimiter) take(key string, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, found := rl.windows[key]
	if !found {
		w = &window{currStart: now}
		rl.windows[key] = w
	}
	if now.Sub(w.currStart) >= rl.period {
		w.prevCount, w.prevStart = w.currCount, w.currStart
		w.currCount, w.currStart = 0, now.Truncate(rl.period)
		if now.Sub(w.prevStart) >= 2*rl.period {
			w.prevCount = 0
		}
	}

	overlap := 1 - now.Sub(w.currStart).Seconds()/rl.period.Seconds()
	if overlap < 0 {
		overlap = 0
	}
	used := w.prevCount*overlap + w.currCount
	resetAt = w.currStart.Add(rl.period)

	if used >= float64(rl.max) {
		return 0, resetAt, false
	}
	w.currCount++
	return max(rl.max-int(math.Ceil(used+1)), 0), resetAt, true
}

// evict drops keys idle for two full windows.
func (rl *rateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, w := range rl.windows {
		if now.Sub(w.currStart) >= 2*rl.period {
			delete(rl.windows, key)
		}
	}
}

func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

func (rl *rateLimiter) runEviction(ctx context.Context) {
	ticker := time.NewTicker(2 * rl.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.evict(now)
		}
	}
}

// RateLimit enforces a per-key sliding window limit. Rejected requests get
// 429 with Retry-After and the error envelope. Every response carries the
// X-RateLimit-* headers.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newRateLimiter(cfg).middleware
}

// RateLimitWithCleanup is RateLimit plus a goroutine that evicts idle keys
// until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	rl := newRateLimiter(cfg)
	if rl.max > 0 && rl.period > 0 {
		go rl.runEviction(ctx)
	}
	return rl.middleware
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	if rl.max <= 0 || rl.period <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, resetAt, ok := rl.take(rl.key(r), time.Now())

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.max))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !ok {
			retry := max(time.Until(resetAt), 0)
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			WriteError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP keys requests by client address: the first X-Forwarded-For hop,
// then X-Real-IP, then RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ClientCredential keys authenticated requests by a hash of their api_key or
// bearer token and falls back to ClientIP, so clients behind one NAT keep
// separate budgets.
func ClientCredential(r *http.Request) string {
	cred := r.Header.Get("api_key")
	if cred == "" {
		if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
			cred = token
		}
	}
	if cred == "" {
		return "ip:" + ClientIP(r)
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(cred))
	return "cred:" + strconv.FormatUint(h.Sum64(), 16)
}
