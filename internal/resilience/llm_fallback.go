package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gazolla/chatcli/pkg/provider/llm"
	"github.com/gazolla/chatcli/pkg/types"
)

// ErrAllFailed is returned when every configured backend fails or has an
// open breaker.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig configures the per-backend circuit breaker; the breaker
// Name is overwritten with each backend's name.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

type backend struct {
	name     string
	provider llm.Provider
	breaker  *CircuitBreaker
}

// LLMFallback implements [llm.Provider] over a primary backend and ordered
// fallbacks, each guarded by its own circuit breaker. The reasoning
// strategies see one Provider and never learn which backend answered.
type LLMFallback struct {
	backends []backend
	cfg      FallbackConfig
}

var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback builds a failover provider with primary as the preferred
// backend.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *LLMFallback {
	f := &LLMFallback{cfg: cfg}
	f.add(primaryName, primary)
	return f
}

// AddFallback appends a backend, tried after all earlier ones.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) {
	f.add(name, provider)
}

func (f *LLMFallback) add(name string, provider llm.Provider) {
	cbCfg := f.cfg.CircuitBreaker
	cbCfg.Name = name
	f.backends = append(f.backends, backend{
		name:     name,
		provider: provider,
		breaker:  NewCircuitBreaker(cbCfg),
	})
}

// Complete routes the request to the first backend whose breaker admits it
// and whose call succeeds. Failed backends are logged and skipped; when none
// is left the last error is wrapped in [ErrAllFailed].
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	var lastErr error
	for i := range f.backends {
		b := &f.backends[i]
		var resp *llm.CompletionResponse
		err := b.breaker.Execute(func() error {
			var callErr error
			resp, callErr = b.provider.Complete(ctx, req)
			return callErr
		})
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping provider, breaker open", "provider", b.name)
		} else {
			slog.Warn("provider failed, trying next", "provider", b.name, "error", err)
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}

// Capabilities reports the primary's capabilities. Static metadata does not
// fail over, so fallback backends should be configured with matching
// capabilities.
func (f *LLMFallback) Capabilities() types.ModelCapabilities {
	if len(f.backends) > 0 {
		return f.backends[0].provider.Capabilities()
	}
	return types.ModelCapabilities{}
}

// BreakerStates reports every backend's breaker state keyed by name, for the
// ops status endpoint.
func (f *LLMFallback) BreakerStates() map[string]State {
	out := make(map[string]State, len(f.backends))
	for i := range f.backends {
		out[f.backends[i].name] = f.backends[i].breaker.State()
	}
	return out
}
