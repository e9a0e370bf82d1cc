// Package health serves liveness and readiness probes.
//
// All registered checks are evaluated together on every tick. A check is
// reported as failing only after FailureThreshold consecutive failures, so a
// single slow ping does not take the instance out of rotation.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"
)

// CheckFunc reports nil when the checked dependency is usable.
type CheckFunc func(ctx context.Context) error

// Kind selects the probe a check contributes to.
type Kind int

const (
	Liveness Kind = iota
	Readiness
)

// FailureThreshold is the number of consecutive failures after which a
// check is reported as failing.
const FailureThreshold = 2

type check struct {
	name    string
	kind    Kind
	timeout time.Duration
	fn      CheckFunc
}

// Result is the latest outcome of one check.
type Result struct {
	Name      string
	Healthy   bool
	Err       string
	Latency   time.Duration
	CheckedAt time.Time
	failures  int
}

// Health runs checks and exposes their aggregated state.
type Health struct {
	ready atomic.Bool

	mu      sync.RWMutex
	checks  []check
	results map[string]*Result
	stop    context.CancelFunc
	done    chan struct{}
}

// New creates a Health that is not ready until SetReady(true) is called.
func New() *Health {
	return &Health{results: make(map[string]*Result)}
}

// Add registers a check. Checks are assumed healthy until they fail.
func (h *Health) Add(kind Kind, name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.checks = append(h.checks, check{name: name, kind: kind, timeout: timeout, fn: fn})
	h.results[name] = &Result{Name: name, Healthy: true}
}

// RunOnce evaluates every check concurrently and records the outcomes.
func (h *Health) RunOnce(ctx context.Context) {
	h.mu.RLock()
	checks := append([]check(nil), h.checks...)
	h.mu.RUnlock()

	type outcome struct {
		err     error
		latency time.Duration
	}
	out := make([]outcome, len(checks))

	var g errgroup.Group
	for i, c := range checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			start := time.Now()
			err := c.fn(cctx)
			out[i] = outcome{err: err, latency: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()

	now := time.Now()
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, c := range checks {
		r := h.results[c.name]
		r.Latency = out[i].latency
		r.CheckedAt = now
		if err := out[i].err; err != nil {
			r.failures++
			r.Err = err.Error()
			if r.failures >= FailureThreshold {
				r.Healthy = false
			}
			continue
		}
		r.failures = 0
		r.Err = ""
		r.Healthy = true
	}
}

// Start evaluates checks immediately and then every interval until Stop is
// called or ctx is done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	h.mu.Lock()
	h.stop = cancel
	h.done = done
	h.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		h.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.RunOnce(ctx)
			}
		}
	}()
}

// Stop halts background evaluation and waits for it to exit.
func (h *Health) Stop() {
	h.mu.Lock()
	stop, done := h.stop, h.done
	h.stop, h.done = nil, nil
	h.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
}

// SetReady marks the service as accepting traffic. Readiness also requires
// every readiness check to pass.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Results returns the latest results of checks of the given kind, sorted
// by name.
func (h *Health) Results(kind Kind) []Result {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []Result
	for _, c := range h.checks {
		if c.kind == kind {
			out = append(out, *h.results[c.name])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IsReady reports whether the service was marked ready and all readiness
// checks pass.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	for _, r := range h.Results(Readiness) {
		if !r.Healthy {
			return false
		}
	}
	return true
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	results := h.Results(Liveness)
	write(w, healthy(results), results, "")
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	results := h.Results(Readiness)
	ready := h.ready.Load()
	reason := ""
	if !ready {
		reason = "service is not ready"
	}
	write(w, ready && healthy(results), results, reason)
}

func healthy(results []Result) bool {
	for _, r := range results {
		if !r.Healthy {
			return false
		}
	}
	return true
}

func write(w http.ResponseWriter, ok bool, results []Result, reason string) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("status")
	if ok {
		e.Str("ok")
	} else {
		e.Str("unhealthy")
	}
	if reason != "" {
		e.FieldStart("reason")
		e.Str(reason)
	}
	if len(results) > 0 {
		e.FieldStart("checks")
		e.ObjStart()
		for _, r := range results {
			e.FieldStart(r.Name)
			e.ObjStart()
			e.FieldStart("healthy")
			e.Bool(r.Healthy)
			if r.Err != "" {
				e.FieldStart("error")
				e.Str(r.Err)
			}
			e.FieldStart("latencyMs")
			e.Int64(r.Latency.Milliseconds())
			e.ObjEnd()
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
