// Package mock is a scriptable llm.Provider for tests: fixed or per-call
// responses in, recorded requests out, no live backend.
package mock

import (
	"context"
	"sync"

	"github.com/gazolla/chatcli/pkg/provider/llm"
	"github.com/gazolla/chatcli/pkg/types"
)

var _ llm.Provider = (*Provider)(nil)

// CompleteCall records one invocation of Complete.
type CompleteCall struct {
	Ctx context.Context
	Req llm.CompletionRequest
}

// Provider implements llm.Provider. Configure the response fields before use;
// zero values return zero results with a nil error.
type Provider struct {
	mu sync.Mutex

	// CompleteResponse and CompleteErr are the fixed reply for Complete.
	CompleteResponse *llm.CompletionResponse
	CompleteErr      error

	// CompleteFn overrides the fixed reply entirely when set; use it for
	// per-call scripting.
	CompleteFn func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)

	// ModelCapabilities is returned by Capabilities.
	ModelCapabilities types.ModelCapabilities

	// CompleteCalls records every Complete invocation in order.
	CompleteCalls []CompleteCall

	// CapabilitiesCallCount counts Capabilities invocations.
	CapabilitiesCallCount int
}

// Complete records the call and returns the scripted reply.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})
	fn := p.CompleteFn
	resp, err := p.CompleteResponse, p.CompleteErr
	p.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return resp, err
}

// Capabilities returns ModelCapabilities.
func (p *Provider) Capabilities() types.ModelCapabilities {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CapabilitiesCallCount++
	return p.ModelCapabilities
}

// Reset clears the recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = nil
	p.CapabilitiesCallCount = 0
}
