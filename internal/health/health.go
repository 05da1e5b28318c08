// Package health serves the ops probes: /healthz (liveness), /readyz
// (readiness over the tool catalog and the provider chain), and /statusz
// (runtime snapshot for humans). Probe bodies are JSON with a top-level
// "status" of "ok" or "fail" plus a per-check map.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// checkTimeout bounds each readiness check.
const checkTimeout = 5 * time.Second

// Checker is one named readiness probe. Check returns nil when the
// dependency can serve queries.
type Checker struct {
	// Name keys the check in the /readyz response ("providers",
	// "tool_servers").
	Name string

	// Check probes the dependency and must respect ctx.
	Check func(ctx context.Context) error
}

type probeResult struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the probe endpoints. The checker list and status source are
// fixed after construction; requests may run concurrently.
type Handler struct {
	checkers []Checker
	status   func() StatusSnapshot
}

// New builds a Handler over the given checkers.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz always answers 200: a process that can serve HTTP is alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, probeResult{Status: "ok"})
}

// Readyz answers 200 only when every checker passes. Checkers probe
// independent dependencies, so they run concurrently, each under its own
// timeout.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	outcomes := make([]error, len(h.checkers))
	g, ctx := errgroup.WithContext(r.Context())
	for i, c := range h.checkers {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			outcomes[i] = c.Check(checkCtx)
			// Failures are reported per check, never aborting the group.
			return nil
		})
	}
	_ = g.Wait()

	res := probeResult{Status: "ok", Checks: make(map[string]string, len(h.checkers))}
	code := http.StatusOK
	for i, c := range h.checkers {
		if outcomes[i] != nil {
			res.Checks[c.Name] = "fail: " + outcomes[i].Error()
			res.Status = "fail"
			code = http.StatusServiceUnavailable
		} else {
			res.Checks[c.Name] = "ok"
		}
	}
	writeJSON(w, code, res)
}

// Register mounts the probe routes on mux. /statusz appears only when a
// status source was set.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if h.status != nil {
		mux.HandleFunc("GET /statusz", h.Statusz)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
