// Package health serves liveness and readiness checks.
//
// Every check runs on its own ticker. A check turns unhealthy only after
// FailureThreshold consecutive failures and healthy again after
// SuccessThreshold consecutive passes, so a single slow ping does not flap
// the check.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"go.uber.org/zap"
)

// CheckFunc reports a problem with a dependency, or nil.
type CheckFunc func(ctx context.Context) error

// CheckOption tunes a registered check.
type CheckOption func(*check)

// WithFailureThreshold sets how many consecutive failures mark a check
// unhealthy. Defaults to 3.
func WithFailureThreshold(n int) CheckOption {
	return func(c *check) { c.failureThreshold = max(n, 1) }
}

// WithSuccessThreshold sets how many consecutive passes mark a check healthy
// again. Defaults to 1.
func WithSuccessThreshold(n int) CheckOption {
	return func(c *check) { c.successThreshold = max(n, 1) }
}

// check is one registered readiness check. run is only ever called from a single
// goroutine, so the streak counters need no locking; healthy and lastErr are
// read by HTTP handlers and are atomic.
type check struct {
	name             string
	timeout          time.Duration
	fn               CheckFunc
	failureThreshold int
	successThreshold int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	failStreak int
	okStreak   int
}

func newCheck(name string, timeout time.Duration, fn CheckFunc, opts []CheckOption) *check {
	c := &check{
		name:             name,
		timeout:          timeout,
		fn:               fn,
		failureThreshold: 3,
		successThreshold: 1,
	}
	for _, o := range opts {
		o(c)
	}
	c.healthy.Store(true)
	return c
}

func (c *check) err() error {
	if p := c.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// run executes the check once and returns true when the health state flipped.
func (c *check) run(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(ctx)
	c.lastErr.Store(&err)

	was := c.healthy.Load()
	if err != nil {
		c.okStreak = 0
		c.failStreak++
		if c.failStreak >= c.failureThreshold {
			c.healthy.Store(false)
		}
	} else {
		c.failStreak = 0
		c.okStreak++
		if c.okStreak >= c.successThreshold {
			c.healthy.Store(true)
		}
	}
	return was != c.healthy.Load()
}

// Health holds the registered checks and the manual readiness switch.
type Health struct {
	lg    *zap.Logger
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
}

// New creates a Health that starts not ready. Check state transitions are
// logged to lg.
func New(lg *zap.Logger) *Health {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Health{lg: lg}
}

// AddLivenessCheck registers a check that decides whether the process should
// be restarted.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc, opts ...CheckOption) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newCheck(name, timeout, fn, opts))
}

// AddReadinessCheck registers a check that decides whether the instance should
// receive traffic, typically a storage ping.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc, opts ...CheckOption) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newCheck(name, timeout, fn, opts))
}

// Start runs every registered check immediately and then every interval until
// Stop is called or ctx is done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
	}
	h.cancel = cancel
	all := append(append([]*check{}, h.liveness...), h.readiness...)
	h.mu.Unlock()

	for _, c := range all {
		go h.loop(ctx, c, interval)
	}
}

func (h *Health) loop(ctx context.Context, c *check, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if c.run(ctx) {
			h.logTransition(c)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *Health) logTransition(c *check) {
	if c.healthy.Load() {
		h.lg.Info("Health check recovered", zap.String("check", c.name))
		return
	}
	h.lg.Warn("Health check failing", zap.String("check", c.name), zap.Error(c.err()))
}

// Stop cancels the check goroutines. It is idempotent.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness switch, used at startup and during
// graceful shutdown.
func (h *Health) SetReady(ready bool) { h.ready.Store(ready) }

// IsReady reports the switch AND every readiness check.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	for _, c := range h.snapshot(false) {
		if !c.healthy.Load() {
			return false
		}
	}
	return true
}

func (h *Health) snapshot(liveness bool) []*check {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if liveness {
		return append([]*check(nil), h.liveness...)
	}
	return append([]*check(nil), h.readiness...)
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, r, h.snapshot(true), nil)
}

// ReadyEndpoint serves /readyz. It fails while the readiness switch is off.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	extra := map[string]string{}
	if !h.ready.Load() {
		extra["_readiness"] = "service is not ready"
	}
	writeStatus(w, r, h.snapshot(false), extra)
}

// writeStatus renders {"status":"ok"|"unhealthy","checks":{name:reason}}.
// Only failing checks are listed unless the query has ?verbose.
func writeStatus(w http.ResponseWriter, r *http.Request, checks []*check, extra map[string]string) {
	verbose := r.URL.Query().Has("verbose")

	results := make(map[string]string, len(checks)+len(extra))
	for k, v := range extra {
		results[k] = v
	}
	healthy := len(extra) == 0
	for _, c := range checks {
		if c.healthy.Load() {
			if verbose {
				results[c.name] = "ok"
			}
			continue
		}
		healthy = false
		results[c.name] = "check is unhealthy"
		if err := c.err(); err != nil {
			results[c.name] = err.Error()
		}
	}

	names := make([]string, 0, len(results))
	for k := range results {
		names = append(names, k)
	}
	sort.Strings(names)

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	status := http.StatusOK
	if healthy {
		e.Str("ok")
	} else {
		e.Str("unhealthy")
		status = http.StatusServiceUnavailable
	}
	if len(names) > 0 {
		e.FieldStart("checks")
		e.ObjStart()
		for _, k := range names {
			e.FieldStart(k)
			e.Str(results[k])
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
