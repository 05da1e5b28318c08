package reasoning

import (
	"fmt"
	"strings"
)

// systemPrompt renders the shared system prompt: role, the live tool summary,
// and the structured invocation format for models without native tool calling.
func (d deps) systemPrompt(extra string) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant with access to external tools.\n\n")
	b.WriteString("Available tools:\n")
	b.WriteString(d.exec.CatalogSummary())
	b.WriteString("\n\n")
	b.WriteString("When a question can be answered from your own knowledge, answer it directly. ")
	b.WriteString("When it requires live data or an external action, invoke the appropriate tool. ")
	b.WriteString("If you cannot emit native tool calls, respond with exactly one JSON object of the form ")
	b.WriteString(`{"tool_name": "<name>", "arguments": {...}} and nothing else.`)
	if extra != "" {
		b.WriteString("\n\n")
		b.WriteString(extra)
	}
	return b.String()
}

// evaluationPrompt asks the model to score an answer as structured JSON.
// toolEvidence tells the evaluator whether any tool result backed the answer.
func evaluationPrompt(query, answer string, toolEvidence bool) string {
	evidence := "No tool was used to produce this answer."
	if toolEvidence {
		evidence = "The answer was produced with the help of a tool result."
	}
	return fmt.Sprintf(
		"Evaluate the following answer to the user's query.\n\n"+
			"Query: %s\n\nAnswer: %s\n\n%s\n\n"+
			"Respond with only a JSON object:\n"+
			`{"overall_score": 0.0, "criteria_scores": {"accuracy": 0.0, "completeness": 0.0, "tool_usage": 0.0, "coherence": 0.0}, `+
			`"feedback": "...", "suggestions": ["..."], "needs_improvement": false}`+
			"\n\nAll scores are in [0.0, 1.0].",
		query, answer, evidence)
}

// improvementPrompt asks the model to revise an answer using evaluator feedback.
func improvementPrompt(query, answer string, eval *EvaluationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Improve the following answer to the user's query.\n\nQuery: %s\n\nCurrent answer: %s\n\n", query, answer)
	fmt.Fprintf(&b, "Evaluator feedback: %s\n", eval.Feedback)
	if len(eval.Suggestions) > 0 {
		b.WriteString("Suggestions:\n")
		for _, s := range eval.Suggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	b.WriteString("\nRespond with only the improved answer.")
	return b.String()
}
