// Package health provides HTTP health and readiness check handlers for the
// admin listener.
//
// The package exposes two endpoints:
//
//   - /healthz: liveness probe; always returns 200 OK and reports the
//     current job phase.
//   - /readyz: readiness probe; returns 200 only when all registered
//     [Checker] functions pass.
//
// Responses are JSON objects with a top-level "status" field ("ok" or "fail")
// and a "checks" map containing the result of each named checker.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// checkTimeout is the maximum time a single readiness check may take before
// the context is cancelled.
const checkTimeout = 5 * time.Second

// Job phases reported by /healthz.
const (
	PhaseStarting     = "starting"
	PhaseTranscribing = "transcribing"
	PhaseRendering    = "rendering"
	PhaseDone         = "done"
	PhaseFailed       = "failed"
)

// Checker is a named health check function. The Check function should return
// nil when the dependency is healthy and a non-nil error describing the
// failure otherwise.
type Checker struct {
	// Name is a short, human-readable label for this check (e.g. "provider",
	// "output_dir"). It appears as a key in the JSON response.
	Name string

	// Check probes the dependency. It must respect context cancellation.
	Check func(ctx context.Context) error
}

// DirWritable returns a Checker that passes when a file can be created in
// dir. The probe file is removed again.
func DirWritable(name, dir string) Checker {
	return Checker{Name: name, Check: func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := os.CreateTemp(dir, ".scribecast-probe-*")
		if err != nil {
			return err
		}
		path := f.Name()
		return errors.Join(f.Close(), os.Remove(path))
	}}
}

// Configured returns a Checker that fails when value is empty. Use it for
// settings without which the job cannot run, such as a provider API key.
func Configured(name, value string) Checker {
	return Checker{Name: name, Check: func(context.Context) error {
		if value == "" {
			return fmt.Errorf("%s is not configured", name)
		}
		return nil
	}}
}

// result is the JSON response body for health endpoints.
type result struct {
	Status string            `json:"status"`
	Phase  string            `json:"phase,omitempty"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves /healthz and /readyz endpoints. It is safe for concurrent
// use; the checker list is fixed at construction time.
type Handler struct {
	checkers []Checker

	mu    sync.RWMutex
	phase string
}

// New creates a [Handler] that evaluates the given checkers on each /readyz
// request. The checkers run concurrently; results are keyed by name.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c, phase: PhaseStarting}
}

// SetPhase records the current job phase reported by /healthz.
func (h *Handler) SetPhase(phase string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.phase = phase
}

// Phase returns the current job phase.
func (h *Handler) Phase() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.phase
}

// Healthz is a liveness probe that always returns 200 OK. A running process
// that can serve HTTP is considered alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok", Phase: h.Phase()})
}

// Readyz is a readiness probe that returns 200 only when every registered
// [Checker] passes. Each checker is given a context with a [checkTimeout]
// deadline derived from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	errs := make([]error, len(h.checkers))

	var g errgroup.Group
	for i, c := range h.checkers {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()
			errs[i] = c.Check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	checks := make(map[string]string, len(h.checkers))
	allOK := true
	for i, c := range h.checkers {
		if errs[i] != nil {
			checks[c.Name] = "fail: " + errs[i].Error()
			allOK = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	res := result{
		Status: "ok",
		Checks: checks,
	}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, res)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// writeJSON encodes v as JSON and writes it with the given status code. On
// encoding failure it falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
