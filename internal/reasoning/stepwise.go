package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gazolla/chatcli/pkg/provider/llm"
	"github.com/gazolla/chatcli/pkg/types"
)

// Stepwise decomposes a query into a bounded chain of sequential tool calls,
// feeding each tool result back into the conversation before the next step,
// then synthesizes a final answer from the accumulated evidence.
//
// The chain bound comes from the advisor's complexity estimate; the loop also
// stops as soon as the model answers in text instead of requesting a tool.
type Stepwise struct {
	deps
}

var _ Strategy = (*Stepwise)(nil)

// ProcessQuery runs the tool chain and returns the synthesized answer.
func (s *Stepwise) ProcessQuery(ctx context.Context, query string) (string, error) {
	maxSteps := s.chainLength(query)

	messages := []types.Message{{Role: "user", Content: query}}
	var evidence []string

	for step := 1; step <= maxSteps; step++ {
		req := llm.CompletionRequest{
			SystemPrompt: s.BuildSystemPrompt(),
			Messages:     messages,
			Temperature:  s.opts.Temperature,
			MaxTokens:    s.opts.MaxTokens,
		}
		if s.provider.Capabilities().SupportsToolCalling {
			req.Tools = s.toolDefinitions()
		}

		resp, err := s.provider.Complete(ctx, req)
		if err != nil {
			return "", fmt.Errorf("stepwise: step %d generation failed: %w", step, err)
		}

		toolName, args, wantsTool := pickToolInvocation(resp)
		if !wantsTool {
			// The model is done chaining; its text is the answer when we
			// have no evidence to fold in yet.
			if len(evidence) == 0 {
				if strings.TrimSpace(resp.Content) == "" {
					return "", fmt.Errorf("stepwise: empty model response at step %d", step)
				}
				return resp.Content, nil
			}
			break
		}

		result, err := s.exec.Execute(ctx, toolName, args)
		if err != nil {
			// A broken link ends the chain; synthesize from what we have.
			slog.Warn("stepwise chain interrupted", "step", step, "tool", toolName, "err", err)
			evidence = append(evidence, fmt.Sprintf("%s failed: %v", toolName, err))
			break
		}

		evidence = append(evidence, fmt.Sprintf("%s returned: %s", toolName, result.Content))
		messages = append(messages,
			assistantToolCall(resp, toolName, args),
			types.Message{Role: "tool", Content: result.Content, Name: toolName},
		)
	}

	if len(evidence) == 0 {
		return "", fmt.Errorf("stepwise: chain produced no evidence and no answer")
	}
	return s.synthesize(ctx, query, "tool chain", strings.Join(evidence, "\n"))
}

// assistantToolCall rebuilds the assistant turn that requested a tool, so the
// next step's context shows the call the result responds to.
func assistantToolCall(resp *llm.CompletionResponse, toolName string, args map[string]any) types.Message {
	if len(resp.ToolCalls) > 0 {
		return types.Message{Role: "assistant", ToolCalls: resp.ToolCalls[:1]}
	}
	raw, _ := json.Marshal(args)
	return types.Message{Role: "assistant", ToolCalls: []types.ToolCall{{Name: toolName, Arguments: string(raw)}}}
}

// BuildSystemPrompt renders the prompt with the live tool summary.
func (s *Stepwise) BuildSystemPrompt() string {
	return s.systemPrompt("Solve multi-part questions one tool call at a time: " +
		"request a single tool, wait for its result, then decide the next step. " +
		"When you have enough information, answer in plain text.")
}
