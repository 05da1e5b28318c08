// Package reasoning turns a user query into a final answer by combining an
// LLM provider with the tool catalog and executor.
//
// Three strategy variants share the same two-operation contract:
//
//   - single-shot: one tool-use-capable generation, at most one tool call,
//     one synthesis pass.
//   - reflection: generate → evaluate → improve loop bounded by an iteration
//     budget and a score threshold, with an ordered per-query step log.
//   - stepwise: decompose into a bounded chain of sequential tool calls, then
//     synthesize.
//
// Strategies are selected at construction time through [New]; the set is a
// closed enum, not an open plugin surface.
package reasoning

import (
	"context"
	"fmt"

	"github.com/gazolla/chatcli/internal/mcp"
	"github.com/gazolla/chatcli/internal/mcp/executor"
	"github.com/gazolla/chatcli/internal/mcp/policy"
	"github.com/gazolla/chatcli/pkg/provider/llm"
)

// Default tuning knobs for the reflection loop.
const (
	defaultMaxIterations  = 3
	defaultScoreThreshold = 0.6
)

// Kind selects a reasoning strategy variant.
type Kind string

const (
	// KindSingleShot is one generation with optional single tool use.
	KindSingleShot Kind = "single-shot"

	// KindReflection is the generate → evaluate → improve refinement loop.
	KindReflection Kind = "reflection"

	// KindStepwise chains sequential tool calls before synthesizing.
	KindStepwise Kind = "stepwise"
)

// IsValid reports whether k is a recognised strategy kind.
func (k Kind) IsValid() bool {
	return k == KindSingleShot || k == KindReflection || k == KindStepwise
}

// Strategy is the contract every reasoning variant implements.
//
// ProcessQuery is synchronous: it blocks on one or more sequential LLM round
// trips and tool executions and returns the final answer. Implementations
// must be safe for concurrent ProcessQuery calls only when documented;
// callers normally construct one Strategy per session.
type Strategy interface {
	// ProcessQuery turns the query into a final natural-language answer.
	ProcessQuery(ctx context.Context, query string) (string, error)

	// BuildSystemPrompt renders the system prompt this strategy sends with
	// its generation requests, embedding the current ready-tool summary.
	BuildSystemPrompt() string
}

// Options carries free-form strategy tuning. The zero value selects the
// defaults documented on each field.
type Options struct {
	// MaxIterations bounds the reflection loop. Default 3.
	MaxIterations int

	// ScoreThreshold is the overall evaluation score at which reflection
	// stops improving. Default 0.6.
	ScoreThreshold float64

	// Temperature is passed through to the LLM provider.
	Temperature float64

	// MaxTokens caps completion length. Zero means provider default.
	MaxTokens int
}

// withDefaults fills unset option fields.
func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = defaultMaxIterations
	}
	if o.ScoreThreshold <= 0 {
		o.ScoreThreshold = defaultScoreThreshold
	}
	return o
}

// deps bundles the collaborators every strategy needs.
type deps struct {
	provider llm.Provider
	catalog  mcp.Catalog
	exec     *executor.Executor
	advisor  *policy.Advisor
	opts     Options
}

// New constructs the strategy variant named by kind.
//
// provider, catalog, and exec are required; advisor may be nil, in which case
// complexity-driven behavior (tool-need detection, chain depth) falls back to
// conservative constants.
func New(kind Kind, provider llm.Provider, catalog mcp.Catalog, exec *executor.Executor, advisor *policy.Advisor, opts Options) (Strategy, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("reasoning: unknown strategy kind %q", kind)
	}
	if provider == nil {
		return nil, fmt.Errorf("reasoning: provider must not be nil")
	}
	if catalog == nil {
		return nil, fmt.Errorf("reasoning: catalog must not be nil")
	}
	if exec == nil {
		return nil, fmt.Errorf("reasoning: executor must not be nil")
	}

	d := deps{
		provider: provider,
		catalog:  catalog,
		exec:     exec,
		advisor:  advisor,
		opts:     opts.withDefaults(),
	}

	switch kind {
	case KindSingleShot:
		return &SingleShot{deps: d}, nil
	case KindReflection:
		return &Reflection{deps: d}, nil
	default:
		return &Stepwise{deps: d}, nil
	}
}
