package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gazolla/chatcli/internal/config"
	"github.com/gazolla/chatcli/internal/engine"
	"github.com/gazolla/chatcli/internal/health"
	"github.com/gazolla/chatcli/internal/mcp"
	"github.com/gazolla/chatcli/internal/mcp/catalog"
	"github.com/gazolla/chatcli/internal/observe"
	"github.com/gazolla/chatcli/internal/resilience"
)

// startOpsServer serves /metrics, /healthz, /readyz, and /statusz on addr.
// The server runs until ctx is cancelled; startup failures are logged, not
// fatal — the console works without the ops surface.
func startOpsServer(ctx context.Context, addr string, metrics *observe.Metrics, cfg *config.Config, cat *catalog.Catalog, eng *engine.Engine, fb *resilience.LLMFallback) {
	h := health.New(
		health.Checker{Name: "providers", Check: providerCheck(fb)},
		health.Checker{Name: "tool_servers", Check: toolServerCheck(cfg, cat)},
	)
	h.SetStatusSource(statusSource(cfg, cat, eng, fb))

	mux := http.NewServeMux()
	h.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    addr,
		Handler: observe.Middleware(metrics)(mux),
	}

	go func() {
		slog.Info("ops server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ops server failed", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("ops server shutdown error", "err", err)
		}
	}()
}

// providerCheck fails when every provider's circuit breaker is open.
func providerCheck(fb *resilience.LLMFallback) func(context.Context) error {
	return func(context.Context) error {
		states := fb.BreakerStates()
		for _, state := range states {
			if state != resilience.StateOpen {
				return nil
			}
		}
		return fmt.Errorf("all %d provider breakers are open", len(states))
	}
}

// toolServerCheck fails when servers are configured and enabled but none is
// connected. A config without tool servers is ready by definition.
func toolServerCheck(cfg *config.Config, cat *catalog.Catalog) func(context.Context) error {
	return func(context.Context) error {
		enabled := 0
		for _, srv := range cfg.MCP.Servers {
			if !srv.IsEnabled() {
				continue
			}
			enabled++
			if cat.Status(srv.Name) == mcp.StatusConnected {
				return nil
			}
		}
		if enabled == 0 {
			return nil
		}
		return fmt.Errorf("none of %d enabled tool servers is connected", enabled)
	}
}

// statusSource snapshots the runtime for /statusz.
func statusSource(cfg *config.Config, cat *catalog.Catalog, eng *engine.Engine, fb *resilience.LLMFallback) func() health.StatusSnapshot {
	return func() health.StatusSnapshot {
		toolCounts := make(map[string]int)
		for _, spec := range cat.Tools() {
			toolCounts[spec.Server]++
		}

		servers := make([]health.ServerInfo, 0, len(cfg.MCP.Servers))
		for _, srv := range cfg.MCP.Servers {
			servers = append(servers, health.ServerInfo{
				Name:   srv.Name,
				Status: cat.Status(srv.Name).String(),
				Tools:  toolCounts[srv.Name],
			})
		}

		breakers := make(map[string]string)
		for name, state := range fb.BreakerStates() {
			breakers[name] = state.String()
		}

		return health.StatusSnapshot{
			Strategy: string(eng.Strategy()),
			Servers:  servers,
			Breakers: breakers,
		}
	}
}
