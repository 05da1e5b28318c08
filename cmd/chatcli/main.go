// Command chatcli is the interactive tool-augmented chat console.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/gazolla/chatcli/internal/config"
	"github.com/gazolla/chatcli/internal/engine"
	"github.com/gazolla/chatcli/internal/mcp"
	"github.com/gazolla/chatcli/internal/mcp/catalog"
	"github.com/gazolla/chatcli/internal/mcp/executor"
	"github.com/gazolla/chatcli/internal/mcp/policy"
	"github.com/gazolla/chatcli/internal/observe"
	"github.com/gazolla/chatcli/internal/reasoning"
	"github.com/gazolla/chatcli/internal/resilience"
	"github.com/gazolla/chatcli/pkg/provider/llm"
	"github.com/gazolla/chatcli/pkg/provider/llm/anyllm"
	openaiprovider "github.com/gazolla/chatcli/pkg/provider/llm/openai"
)

// version is stamped by the release build via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "chatcli: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "chatcli: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	// The level lives in a LevelVar so a config reload can adjust it without
	// replacing the handler.
	level := new(slog.LevelVar)
	level.Set(cfg.Server.LogLevel.Level())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("chatcli starting",
		"version", version,
		"config", *configPath,
		"strategy", cfg.Engine.StrategyKind(),
		"log_level", cfg.Server.LogLevel,
	)

	// ── Requirement pass ──────────────────────────────────────────────────────
	if disabled := config.ApplyRequirements(cfg, config.DefaultChecker()); len(disabled) > 0 {
		slog.Info("servers disabled by unmet requirements", "servers", disabled)
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "chatcli",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── LLM providers ─────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	provider, err := buildProvider(cfg, reg)
	if err != nil {
		slog.Error("failed to build LLM provider", "err", err)
		return 1
	}

	// ── Tool catalog ──────────────────────────────────────────────────────────
	cat := catalog.New()
	defer cat.Close()

	if err := cat.ConnectAll(ctx, cfg.ServerConfigs()); err != nil {
		// Partial availability is the expected steady state.
		slog.Warn("some tool servers failed to connect", "err", err)
	}

	advisor := policy.New(cat)
	exec := executor.New(cat, executor.WithAdvisor(advisor))

	// ── Engine ────────────────────────────────────────────────────────────────
	eng, err := engine.New(engine.Config{
		Provider: provider,
		Catalog:  cat,
		Executor: exec,
		Advisor:  advisor,
		Strategy: cfg.Engine.StrategyKind(),
		Reasoning: reasoning.Options{
			MaxIterations:  cfg.Engine.MaxIterations,
			ScoreThreshold: cfg.Engine.ScoreThreshold,
			Temperature:    cfg.Engine.Temperature,
			MaxTokens:      cfg.Engine.MaxTokens,
		},
		RequestTimeout: cfg.Engine.RequestTimeout,
		Metrics:        metrics,
	})
	if err != nil {
		slog.Error("failed to initialise engine", "err", err)
		return 1
	}

	// ── Ops HTTP server ───────────────────────────────────────────────────────
	if cfg.Server.ListenAddr != "" {
		startOpsServer(ctx, cfg.Server.ListenAddr, metrics, cfg, cat, eng, provider)
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, reloadHandler(ctx, level, eng, cat))
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Console ───────────────────────────────────────────────────────────────
	printStartupSummary(cfg, cat)

	if err := runConsole(ctx, eng, cat, cfg); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("console error", "err", err)
		return 1
	}

	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// anyLLMBackends are the backends served through the any-llm multiplexer.
// "openai" is intentionally absent: it gets the direct SDK implementation.
var anyLLMBackends = []string{
	"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// registerBuiltinProviders wires all built-in LLM factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// openai uses the dedicated SDK-backed provider.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openaiprovider.Option
		if entry.BaseURL != "" {
			opts = append(opts, openaiprovider.WithBaseURL(entry.BaseURL))
		}
		return openaiprovider.New(entry.APIKey, entry.Model, opts...)
	})

	// The remaining hosted backends share the any-llm pattern: optional
	// APIKey plus optional BaseURL.
	for _, providerName := range anyLLMBackends {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})
}

// buildProvider instantiates the primary LLM provider and its fallbacks and
// wraps them in a circuit-breaking fallback group.
func buildProvider(cfg *config.Config, reg *config.Registry) (*resilience.LLMFallback, error) {
	primary, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", cfg.Providers.LLM.Name, "model", cfg.Providers.LLM.Model)

	fb := resilience.NewLLMFallback(primary, cfg.Providers.LLM.Name, resilience.FallbackConfig{})
	for _, entry := range cfg.Providers.Fallbacks {
		p, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("create fallback provider %q: %w", entry.Name, err)
		}
		fb.AddFallback(entry.Name, p)
		slog.Info("fallback provider created", "kind", "llm", "name", entry.Name, "model", entry.Model)
	}
	return fb, nil
}

// ── Config hot reload ─────────────────────────────────────────────────────────

// reloadHandler returns the watcher callback that applies hot-reloadable
// changes: log level, strategy swap, and tool-server additions/removals.
func reloadHandler(ctx context.Context, level *slog.LevelVar, eng *engine.Engine, cat *catalog.Catalog) func(old, new *config.Config) {
	return func(old, new *config.Config) {
		d := config.Diff(old, new)

		if d.LogLevelChanged {
			level.Set(d.NewLogLevel.Level())
			slog.Info("log level updated", "level", d.NewLogLevel)
		}

		if d.StrategyChanged {
			if err := eng.SetStrategy(reasoning.Kind(d.NewStrategy)); err != nil {
				slog.Warn("strategy change rejected", "strategy", d.NewStrategy, "err", err)
			} else {
				slog.Info("strategy updated", "strategy", d.NewStrategy)
			}
		}

		if !d.ServersChanged {
			return
		}
		config.ApplyRequirements(new, config.DefaultChecker())

		var added []mcp.ServerConfig
		for _, sc := range d.ServerChanges {
			switch {
			case sc.Added:
				for _, srv := range new.MCP.Servers {
					if srv.Name == sc.Name {
						added = append(added, srv.ToServerConfig())
					}
				}
			case sc.Removed:
				if err := cat.Disconnect(sc.Name); err != nil {
					slog.Warn("failed to disconnect removed server", "server", sc.Name, "err", err)
				} else {
					slog.Info("server removed", "server", sc.Name)
				}
			case sc.Modified:
				slog.Warn("server modification requires restart to take effect", "server", sc.Name)
			}
		}
		if len(added) > 0 {
			connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			if err := cat.ConnectAll(connectCtx, added); err != nil {
				slog.Warn("some added servers failed to connect", "err", err)
			}
		}
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, cat *catalog.Catalog) {
	connected := 0
	for _, srv := range cfg.MCP.Servers {
		if cat.Status(srv.Name) == mcp.StatusConnected {
			connected++
		}
	}

	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          chatcli — ready              ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printSummaryLine("LLM", cfg.Providers.LLM.Name+" / "+cfg.Providers.LLM.Model)
	printSummaryLine("Fallbacks", fmt.Sprintf("%d", len(cfg.Providers.Fallbacks)))
	printSummaryLine("Strategy", string(cfg.Engine.StrategyKind()))
	printSummaryLine("Tool servers", fmt.Sprintf("%d/%d connected", connected, len(cfg.MCP.Servers)))
	printSummaryLine("Tools", fmt.Sprintf("%d", len(cat.Tools())))
	if cfg.Server.ListenAddr != "" {
		printSummaryLine("Ops server", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
	fmt.Println(`Type a query, or /help for commands.`)
}

func printSummaryLine(key, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", key, value)
}
