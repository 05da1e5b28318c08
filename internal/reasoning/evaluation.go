package reasoning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CriteriaScores holds the per-criterion evaluation scores, each in [0, 1].
type CriteriaScores struct {
	Accuracy     float64 `json:"accuracy"`
	Completeness float64 `json:"completeness"`
	ToolUsage    float64 `json:"tool_usage"`
	Coherence    float64 `json:"coherence"`
}

// EvaluationResult is the parsed verdict of one evaluation pass. Immutable
// value object; produced only by parseEvaluation (plus the tool-usage hard
// rule applied by the reflection loop).
type EvaluationResult struct {
	// Overall is the aggregate score in [0, 1].
	Overall float64 `json:"overall_score"`

	// Criteria holds the per-criterion scores.
	Criteria CriteriaScores `json:"criteria_scores"`

	// Feedback is the evaluator's free-text assessment.
	Feedback string `json:"feedback"`

	// Suggestions is the ordered list of improvement suggestions.
	Suggestions []string `json:"suggestions"`

	// NeedsImprovement reports whether another improvement cycle is wanted.
	NeedsImprovement bool `json:"needs_improvement"`
}

// parseEvaluation extracts the JSON evaluation object from raw model output.
// Models often wrap the object in prose or code fences, so the parse scans
// from the first '{' to the last '}'. Scores are clamped into [0, 1].
func parseEvaluation(text string) (*EvaluationResult, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in evaluation response")
	}

	var result EvaluationResult
	if err := json.Unmarshal([]byte(text[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("decode evaluation JSON: %w", err)
	}

	result.Overall = clamp01(result.Overall)
	result.Criteria.Accuracy = clamp01(result.Criteria.Accuracy)
	result.Criteria.Completeness = clamp01(result.Criteria.Completeness)
	result.Criteria.ToolUsage = clamp01(result.Criteria.ToolUsage)
	result.Criteria.Coherence = clamp01(result.Criteria.Coherence)
	return &result, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
