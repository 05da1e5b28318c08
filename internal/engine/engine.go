// Package engine ties the tool catalog, executor, policy advisor, and a
// reasoning strategy together into the per-query processing entry point.
//
// One Engine serves any number of sequential or concurrent queries. Each
// ProcessQuery call is self-contained: a failure inside one query — a
// provider outage, an exhausted tool retry budget, a reflection-phase error —
// is returned to that caller and never poisons the engine for the next query.
//
// The engine also keeps the in-memory ordered conversation log surfaced by
// the console's /history command. The log is bookkeeping only; strategies
// receive the query and build their own prompt state per call.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gazolla/chatcli/internal/mcp"
	"github.com/gazolla/chatcli/internal/mcp/executor"
	"github.com/gazolla/chatcli/internal/mcp/policy"
	"github.com/gazolla/chatcli/internal/observe"
	"github.com/gazolla/chatcli/internal/reasoning"
	"github.com/gazolla/chatcli/pkg/provider/llm"
	"github.com/gazolla/chatcli/pkg/types"
)

// DefaultRequestTimeout bounds one full ProcessQuery call when the config
// does not set its own limit.
const DefaultRequestTimeout = 30 * time.Second

// Config carries the collaborators and tuning for a new [Engine].
type Config struct {
	// Provider is the language-model backend, typically a
	// resilience.LLMFallback wrapping the configured providers.
	Provider llm.Provider

	// Catalog is the connected tool-server catalog.
	Catalog mcp.Catalog

	// Executor runs tool calls with retries and availability caching.
	Executor *executor.Executor

	// Advisor tunes retries, chain depth, and tool-need detection. May be
	// nil; strategies then fall back to conservative constants.
	Advisor *policy.Advisor

	// Strategy selects the reasoning variant. Empty defaults to single-shot.
	Strategy reasoning.Kind

	// Reasoning carries strategy tuning (iterations, threshold, temperature).
	Reasoning reasoning.Options

	// RequestTimeout bounds one ProcessQuery call end to end. Zero means
	// [DefaultRequestTimeout]; negative disables the bound.
	RequestTimeout time.Duration

	// Metrics receives query instrumentation. Nil disables recording.
	Metrics *observe.Metrics
}

// Engine is the tool-augmented inference engine. Safe for concurrent
// ProcessQuery calls; the conversation log is guarded by a mutex and entries
// from concurrent queries interleave in completion order.
type Engine struct {
	provider llm.Provider
	catalog  mcp.Catalog
	exec     *executor.Executor
	advisor  *policy.Advisor
	metrics  *observe.Metrics
	timeout  time.Duration
	opts     reasoning.Options

	mu       sync.Mutex
	kind     reasoning.Kind
	strategy reasoning.Strategy
	history  []types.Message

	now func() time.Time
}

// New validates cfg, constructs the configured reasoning strategy, and
// returns a ready engine.
func New(cfg Config) (*Engine, error) {
	kind := cfg.Strategy
	if kind == "" {
		kind = reasoning.KindSingleShot
	}
	strategy, err := reasoning.New(kind, cfg.Provider, cfg.Catalog, cfg.Executor, cfg.Advisor, cfg.Reasoning)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}

	return &Engine{
		provider: cfg.Provider,
		catalog:  cfg.Catalog,
		exec:     cfg.Executor,
		advisor:  cfg.Advisor,
		metrics:  cfg.Metrics,
		timeout:  timeout,
		opts:     cfg.Reasoning,
		kind:     kind,
		strategy: strategy,
		now:      time.Now,
	}, nil
}

// Strategy returns the kind of the currently active reasoning strategy.
func (e *Engine) Strategy() reasoning.Kind {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.kind
}

// SetStrategy swaps the reasoning strategy at runtime, e.g. after a config
// reload. In-flight queries finish on the strategy they started with.
func (e *Engine) SetStrategy(kind reasoning.Kind) error {
	strategy, err := reasoning.New(kind, e.provider, e.catalog, e.exec, e.advisor, e.opts)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	e.mu.Lock()
	e.kind = kind
	e.strategy = strategy
	e.mu.Unlock()
	return nil
}

// ProcessQuery answers one user query with the active strategy, bounded by
// the configured request timeout. The user turn and, on success, the
// assistant turn are appended to the conversation log. Errors describe the
// failed query only; the engine remains usable.
func (e *Engine) ProcessQuery(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("engine: empty query")
	}

	e.mu.Lock()
	kind := e.kind
	strategy := e.strategy
	e.mu.Unlock()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	ctx, span := observe.StartSpan(ctx, "engine.process_query",
		trace.WithAttributes(attribute.String("strategy", string(kind))))
	defer span.End()

	if e.metrics != nil {
		e.metrics.ActiveQueries.Add(ctx, 1)
		defer e.metrics.ActiveQueries.Add(ctx, -1)
	}

	start := e.now()
	answer, err := strategy.ProcessQuery(ctx, query)

	status := "ok"
	if err != nil {
		status = "error"
	}
	if e.metrics != nil {
		e.metrics.RecordQuery(ctx, string(kind), status, e.now().Sub(start).Seconds())
	}

	e.mu.Lock()
	e.history = append(e.history, types.Message{Role: "user", Content: query})
	if err == nil {
		e.history = append(e.history, types.Message{Role: "assistant", Content: answer})
	}
	e.mu.Unlock()

	if err != nil {
		return "", fmt.Errorf("engine: process query: %w", err)
	}
	return answer, nil
}

// History returns a copy of the ordered conversation log.
func (e *Engine) History() []types.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.Message, len(e.history))
	copy(out, e.history)
	return out
}

// Reset clears the conversation log.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.history = nil
	e.mu.Unlock()
}

// SystemPrompt renders the active strategy's system prompt with the current
// ready-tool summary. Used by the console's /tools output.
func (e *Engine) SystemPrompt() string {
	e.mu.Lock()
	strategy := e.strategy
	e.mu.Unlock()
	return strategy.BuildSystemPrompt()
}
