// Package executor provides validated, retried tool execution on top of an
// [mcp.Catalog].
//
// The executor maintains a per-tool availability cache with a fixed TTL so
// that readiness checks do not hammer the catalog, retries execution-time
// failures with linear backoff, and produces alternative-tool suggestions
// when a tool is missing or keeps failing. Availability entries move through
// a small state machine: unknown → cached-available / cached-unavailable →
// expired (back to unknown).
//
// All methods are safe for concurrent use; backoff sleeps block only the
// calling goroutine.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/antzucaro/matchr"

	"github.com/gazolla/chatcli/internal/mcp"
)

const (
	// defaultRetries is the execution attempt budget when no advisor overrides it.
	defaultRetries = 3

	// defaultTimeout bounds a single tool call round trip.
	defaultTimeout = 30 * time.Second

	// availabilityTTL is how long a cached readiness judgment stays live.
	availabilityTTL = 5 * time.Minute

	// maxSuggestions caps the alternative-tool list attached to failures.
	maxSuggestions = 3
)

// Advisor supplies adaptive operating parameters. Implemented by the policy
// package; may be nil, in which case fixed defaults apply.
type Advisor interface {
	// OptimalRetries returns the retry budget for the namespaced tool.
	OptimalRetries(tool string) int

	// IsValidationError reports whether an error message looks like an
	// argument mismatch against the tool's parameter schema.
	IsValidationError(message, tool string) bool
}

// cacheEntry is one availability judgment with its check timestamp.
type cacheEntry struct {
	available bool
	checkedAt time.Time
}

// isExpired reports whether the entry is older than the TTL at the given
// instant. Pure so that expiry is testable without real time.
func (e cacheEntry) isExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.checkedAt) >= ttl
}

// Executor validates, retries, and caches tool execution.
//
// The zero value is NOT usable; create instances with [New].
type Executor struct {
	catalog mcp.Catalog
	advisor Advisor

	retries int
	timeout time.Duration
	ttl     time.Duration

	// now and sleep are injectable for deterministic tests.
	now   func() time.Time
	sleep func(time.Duration)

	mu    sync.Mutex
	cache map[string]cacheEntry // key: namespaced tool identity
}

// Option is a functional option for [New].
type Option func(*Executor)

// WithAdvisor wires a policy advisor for adaptive retry budgets and
// validation-error classification.
func WithAdvisor(a Advisor) Option {
	return func(e *Executor) { e.advisor = a }
}

// WithRetries overrides the default execution attempt budget.
func WithRetries(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.retries = n
		}
	}
}

// WithTimeout overrides the per-call request timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithTTL overrides the availability cache TTL.
func WithTTL(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.ttl = d
		}
	}
}

// WithClock injects the time source used for cache timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// WithSleep injects the backoff sleep function.
func WithSleep(sleep func(time.Duration)) Option {
	return func(e *Executor) { e.sleep = sleep }
}

// New creates an Executor over the given catalog.
func New(catalog mcp.Catalog, opts ...Option) *Executor {
	e := &Executor{
		catalog: catalog,
		retries: defaultRetries,
		timeout: defaultTimeout,
		ttl:     availabilityTTL,
		now:     time.Now,
		sleep:   time.Sleep,
		cache:   make(map[string]cacheEntry),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// IsReady reports whether the named tool is resolvable and its server is
// reachable. A live cache entry is returned as-is; an expired or missing
// entry triggers a fresh catalog check whose result is cached with the
// current timestamp.
func (e *Executor) IsReady(name string) bool {
	ns, ok := e.catalog.Resolve(name)
	if !ok {
		return false
	}

	e.mu.Lock()
	entry, cached := e.cache[ns]
	if cached && !entry.isExpired(e.now(), e.ttl) {
		e.mu.Unlock()
		return entry.available
	}
	e.mu.Unlock()

	available := e.catalog.Available(ns)

	e.mu.Lock()
	e.cache[ns] = cacheEntry{available: available, checkedAt: e.now()}
	e.mu.Unlock()

	return available
}

// Execute runs the named tool with the given arguments.
//
// A tool that cannot be resolved or is not ready fails immediately with a
// [*NotAvailableError] — readiness failures are never retried. Execution-time
// failures are retried up to the budget with linear backoff (attempt index ×
// 1s); when all attempts fail the availability cache entry is invalidated so
// the next IsReady re-checks, and a [*ExecutionError] (or [*ValidationError]
// when the advisor recognises an argument mismatch) is returned.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) (*mcp.ToolResult, error) {
	ns, resolved := e.catalog.Resolve(name)
	if !resolved || !e.IsReady(ns) {
		failed := name
		if resolved {
			failed = ns
		}
		return nil, &NotAvailableError{Tool: failed, Suggestions: e.suggestions(failed)}
	}

	budget := e.retries
	if e.advisor != nil {
		if n := e.advisor.OptimalRetries(ns); n > 0 {
			budget = n
		}
	}

	var lastErr error
	for attempt := 1; attempt <= budget; attempt++ {
		result, err := e.callOnce(ctx, ns, args)
		if err == nil && !result.IsError {
			return result, nil
		}
		if err == nil {
			err = errors.New(result.Content)
		}
		lastErr = err

		slog.Warn("tool attempt failed",
			"tool", ns, "attempt", attempt, "of", budget, "err", err)

		if attempt < budget {
			// Linear backoff: attempt 1 sleeps 1s before attempt 2, etc.
			e.sleep(time.Duration(attempt) * time.Second)
		}
	}

	// Exhausted. Force a fresh readiness check next time.
	e.Invalidate(ns)

	if e.advisor != nil && e.advisor.IsValidationError(lastErr.Error(), ns) {
		return nil, &ValidationError{Tool: ns, Err: lastErr}
	}
	return nil, &ExecutionError{
		Tool:        ns,
		Attempts:    budget,
		Suggestions: e.suggestions(ns),
		Err:         lastErr,
	}
}

// callOnce performs a single bounded catalog call.
func (e *Executor) callOnce(ctx context.Context, ns string, args map[string]any) (*mcp.ToolResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := e.now()
	result, err := e.catalog.Call(callCtx, ns, args)
	if err != nil {
		return nil, err
	}
	result.DurationMs = e.now().Sub(start).Milliseconds()
	return result, nil
}

// suggestions finds up to maxSuggestions alternative tools by running a
// keyword search on the first token of the failed name (the text before the
// first separator), ranked by edit distance to the failed name so the closest
// relatives come first.
func (e *Executor) suggestions(failed string) []string {
	keyword := firstToken(failed)
	if keyword == "" {
		return []string{}
	}

	matches := e.catalog.Search(keyword)
	candidates := make([]string, 0, len(matches))
	for _, spec := range matches {
		if spec.Name == failed {
			continue
		}
		candidates = append(candidates, spec.Name)
	}

	sort.Slice(candidates, func(i, j int) bool {
		di := matchr.Levenshtein(candidates[i], failed)
		dj := matchr.Levenshtein(candidates[j], failed)
		if di != dj {
			return di < dj
		}
		return candidates[i] < candidates[j]
	})

	if len(candidates) > maxSuggestions {
		candidates = candidates[:maxSuggestions]
	}
	return candidates
}

// firstToken returns the text before the first separator ('_' or '-') in
// name, lower-cased. The whole name is returned when it has no separator.
func firstToken(name string) string {
	if i := strings.IndexAny(name, "_-"); i > 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

// Invalidate drops the cached availability entry for the named tool. Safe to
// call at any time; unknown names are a no-op.
func (e *Executor) Invalidate(name string) {
	ns, ok := e.catalog.Resolve(name)
	if !ok {
		ns = name
	}
	e.mu.Lock()
	delete(e.cache, ns)
	e.mu.Unlock()
}

// Clear empties the entire availability cache.
func (e *Executor) Clear() {
	e.mu.Lock()
	e.cache = make(map[string]cacheEntry)
	e.mu.Unlock()
}

// ReadyTools returns the specs of every currently ready tool, sorted by
// namespaced name for stable prompt rendering.
func (e *Executor) ReadyTools() []mcp.ToolSpec {
	all := e.catalog.Tools()
	ready := make([]mcp.ToolSpec, 0, len(all))
	for _, spec := range all {
		if e.IsReady(spec.Name) {
			ready = append(ready, spec)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].Name < ready[j].Name })
	return ready
}

// CatalogSummary renders the name, description, and parameter list (required
// parameters marked) of every currently ready tool. The output is embedded in
// reasoning-strategy prompts.
func (e *Executor) CatalogSummary() string {
	ready := e.ReadyTools()
	if len(ready) == 0 {
		return "No tools are currently available."
	}

	var sb strings.Builder
	for _, spec := range ready {
		fmt.Fprintf(&sb, "- %s: %s\n", spec.Name, spec.Description)
		if len(spec.Parameters) == 0 {
			continue
		}
		names := make([]string, 0, len(spec.Parameters))
		for name := range spec.Parameters {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			p := spec.Parameters[name]
			req := ""
			if p.Required {
				req = ", required"
			}
			fmt.Fprintf(&sb, "    %s (%s%s): %s\n", name, p.Type, req, p.Description)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
