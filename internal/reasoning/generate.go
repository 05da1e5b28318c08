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

// generation is the outcome of one tool-use-capable answer pass.
type generation struct {
	// answer is the final text of this pass.
	answer string

	// usedTool reports whether a tool execution contributed to the answer.
	usedTool bool

	// toolName is the namespaced identity of the executed tool, if any.
	toolName string
}

// toolDefinitions converts the currently ready tool specs into provider tool
// definitions. The namespaced identity is the name offered to the model so
// that its tool calls come back already resolved.
func (d deps) toolDefinitions() []types.ToolDefinition {
	specs := d.exec.ReadyTools()
	defs := make([]types.ToolDefinition, 0, len(specs))
	for _, spec := range specs {
		defs = append(defs, types.ToolDefinition{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  spec.RawSchema,
		})
	}
	return defs
}

// generateAnswer runs one generation pass: ask the model for a direct answer
// or a tool invocation; when a tool is requested, execute it and issue one
// more call that synthesizes the tool result with the original query.
//
// history carries prior conversation turns to include before the query.
func (d deps) generateAnswer(ctx context.Context, systemPrompt, query string, history []types.Message) (generation, error) {
	messages := make([]types.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, types.Message{Role: "user", Content: query})

	req := llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     messages,
		Temperature:  d.opts.Temperature,
		MaxTokens:    d.opts.MaxTokens,
	}
	if d.provider.Capabilities().SupportsToolCalling {
		req.Tools = d.toolDefinitions()
	}

	resp, err := d.provider.Complete(ctx, req)
	if err != nil {
		return generation{}, fmt.Errorf("generation failed: %w", err)
	}

	toolName, args, wantsTool := pickToolInvocation(resp)
	if !wantsTool {
		if strings.TrimSpace(resp.Content) == "" {
			return generation{}, fmt.Errorf("empty model response")
		}
		return generation{answer: resp.Content}, nil
	}

	result, err := d.exec.Execute(ctx, toolName, args)
	if err != nil {
		return generation{}, fmt.Errorf("tool %q: %w", toolName, err)
	}

	slog.Debug("tool executed", "tool", toolName, "duration_ms", result.DurationMs)

	answer, err := d.synthesize(ctx, query, toolName, result.Content)
	if err != nil {
		return generation{}, err
	}
	return generation{answer: answer, usedTool: true, toolName: toolName}, nil
}

// synthesize issues the follow-up model call that folds a tool result back
// into a natural-language answer to the original query.
func (d deps) synthesize(ctx context.Context, query, toolName, toolResult string) (string, error) {
	prompt := fmt.Sprintf(
		"The user asked: %s\n\nThe tool %q returned:\n%s\n\n"+
			"Answer the user's question in natural language using this result. "+
			"Do not mention the tool mechanics.",
		query, toolName, toolResult)

	resp, err := d.provider.Complete(ctx, llm.CompletionRequest{
		Messages:    []types.Message{{Role: "user", Content: prompt}},
		Temperature: d.opts.Temperature,
		MaxTokens:   d.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("synthesis failed: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("empty synthesis response")
	}
	return resp.Content, nil
}

// pickToolInvocation extracts a tool invocation from a completion: native
// tool calls win; otherwise the text is scanned for the structured JSON form
// {"tool_name": ..., "arguments": {...}} that non-tool-calling models are
// prompted to emit.
func pickToolInvocation(resp *llm.CompletionResponse) (name string, args map[string]any, ok bool) {
	if len(resp.ToolCalls) > 0 {
		tc := resp.ToolCalls[0]
		args = map[string]any{}
		if tc.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
				slog.Warn("malformed tool call arguments", "tool", tc.Name, "err", err)
				args = map[string]any{}
			}
		}
		return tc.Name, args, true
	}
	return parseToolInvocation(resp.Content)
}

// parseToolInvocation scans text for an embedded JSON tool invocation.
func parseToolInvocation(text string) (string, map[string]any, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", nil, false
	}

	var inv struct {
		ToolName  string         `json:"tool_name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &inv); err != nil {
		return "", nil, false
	}
	if inv.ToolName == "" {
		return "", nil, false
	}
	if inv.Arguments == nil {
		inv.Arguments = map[string]any{}
	}
	return inv.ToolName, inv.Arguments, true
}

// queryNeedsTool reports whether the advisor believes the query calls for at
// least one tool. Without an advisor the answer is conservatively false.
func (d deps) queryNeedsTool(query string) bool {
	if d.advisor == nil {
		return false
	}
	return d.advisor.QueryComplexity(query).ToolCount > 0
}

// chainLength returns the bound on sequential tool invocations for the query.
func (d deps) chainLength(query string) int {
	if d.advisor == nil {
		return 2
	}
	return d.advisor.OptimalChainLength(query)
}

// ensure context errors surface with the right phase tag in reflection.
func phaseFor(ctx context.Context, fallback Phase) Phase {
	if ctx.Err() != nil {
		return PhaseTimeout
	}
	return fallback
}
