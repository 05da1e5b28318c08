// Package llm defines the language-model capability the reasoning strategies
// consume. A Provider turns a conversation plus an offered tool set into
// either text, proposed tool invocations, or both; everything about the
// backend's wire format stays behind this interface.
package llm

import (
	"context"

	"github.com/gazolla/chatcli/pkg/types"
)

// Usage holds token accounting reported by the backend for one exchange.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries one generation request. Messages must be
// non-empty; everything else is optional.
type CompletionRequest struct {
	// Messages is the ordered conversation. The last entry drives the
	// response.
	Messages []types.Message

	// Tools is the tool set offered to the model for this request. Backends
	// without tool calling ignore it; callers gate on
	// Capabilities().SupportsToolCalling.
	Tools []types.ToolDefinition

	// Temperature in [0.0, 2.0]; 0.0 requests greedy decoding.
	Temperature float64

	// MaxTokens caps generated tokens. Zero means the backend default.
	MaxTokens int

	// SystemPrompt, when set, is injected ahead of Messages. Backends without
	// a native system slot prepend it as a "system"-role message.
	SystemPrompt string
}

// CompletionResponse is the model's full reply to one request.
type CompletionResponse struct {
	// Content is the assistant text. Empty when the model answered only with
	// tool calls.
	Content string

	// ToolCalls lists the invocations the model proposes. The caller executes
	// them and folds the results back into the conversation.
	ToolCalls []types.ToolCall

	Usage Usage
}

// Provider is the language-model capability. Implementations must be safe
// for concurrent use and must honor context cancellation.
type Provider interface {
	// Complete sends req and waits for the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Capabilities describes what the underlying model supports. Constant for
	// the lifetime of the Provider.
	Capabilities() types.ModelCapabilities
}
