package reasoning

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gazolla/chatcli/pkg/provider/llm"
	"github.com/gazolla/chatcli/pkg/types"
)

// Reflection runs the generate → evaluate → improve refinement loop.
//
// Each query starts a fresh step log; Steps returns the log of the most
// recent ProcessQuery call. Unlike SingleShot, reflection failures surface as
// *PhaseError rather than degrading to error text: the caller opted into the
// expensive loop and deserves to know exactly where it broke.
//
// Not safe for concurrent ProcessQuery calls; the step log is per-instance.
type Reflection struct {
	deps

	steps []ReflectionStep
	now   func() time.Time
}

var _ Strategy = (*Reflection)(nil)

// Steps returns the ordered step log of the most recent query.
func (r *Reflection) Steps() []ReflectionStep {
	out := make([]ReflectionStep, len(r.steps))
	copy(out, r.steps)
	return out
}

func (r *Reflection) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func (r *Reflection) record(kind StepKind, iteration int, content string, eval *EvaluationResult) {
	r.steps = append(r.steps, ReflectionStep{
		Kind:       kind,
		Iteration:  iteration,
		Content:    content,
		Evaluation: eval,
		At:         r.clock(),
	})
}

// ProcessQuery runs the refinement loop and returns the final answer.
//
// Termination: the loop stops when the evaluation score reaches the
// threshold, when the evaluator reports no improvement is needed, or when the
// iteration budget is exhausted — whichever comes first. The budget bounds
// the number of evaluation passes, so total LLM round trips are bounded even
// when every evaluation demands improvement.
func (r *Reflection) ProcessQuery(ctx context.Context, query string) (string, error) {
	r.steps = r.steps[:0]

	needsTool := r.queryNeedsTool(query)

	gen, err := r.generateAnswer(ctx, r.BuildSystemPrompt(), query, nil)
	if err != nil {
		return "", &PhaseError{Phase: phaseFor(ctx, PhaseInitial), Query: query, Err: err}
	}
	answer := gen.answer
	toolEvidence := gen.usedTool
	r.record(StepInitial, 1, answer, nil)

	lastIteration := 0
	for iteration := 1; iteration <= r.opts.MaxIterations; iteration++ {
		lastIteration = iteration
		eval, err := r.evaluate(ctx, query, answer, toolEvidence)
		if err != nil {
			var perr *PhaseError
			if errors.As(err, &perr) {
				perr.Iteration = iteration
				return "", perr
			}
			return "", &PhaseError{Phase: phaseFor(ctx, PhaseEvaluation), Iteration: iteration, Query: query, Err: err}
		}

		// Hard rule: an answer to a tool-requiring query with no tool
		// evidence cannot score well, whatever the evaluator said.
		if needsTool && !toolEvidence {
			eval.Criteria.ToolUsage = 0
			if eval.Overall > 0.5 {
				eval.Overall = 0.5
			}
			eval.NeedsImprovement = true
		}
		r.record(StepEvaluation, iteration, "", eval)

		if eval.Overall >= r.opts.ScoreThreshold || !eval.NeedsImprovement {
			slog.Debug("reflection converged", "iteration", iteration, "score", eval.Overall)
			break
		}
		if iteration == r.opts.MaxIterations {
			slog.Debug("reflection budget exhausted", "iterations", iteration, "score", eval.Overall)
			break
		}

		improved, improvedEvidence, err := r.improve(ctx, query, answer, eval)
		if err != nil {
			return "", &PhaseError{Phase: phaseFor(ctx, PhaseImprovement), Iteration: iteration, Query: query, Err: err}
		}
		answer = improved
		toolEvidence = toolEvidence || improvedEvidence
		r.record(StepImprovement, iteration+1, answer, nil)
	}

	r.record(StepFinal, lastIteration, answer, nil)
	return answer, nil
}

// evaluate runs one evaluation pass and parses its structured verdict.
func (r *Reflection) evaluate(ctx context.Context, query, answer string, toolEvidence bool) (*EvaluationResult, error) {
	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		Messages:    []types.Message{{Role: "user", Content: evaluationPrompt(query, answer, toolEvidence)}},
		Temperature: r.opts.Temperature,
		MaxTokens:   r.opts.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	eval, err := parseEvaluation(resp.Content)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseParsing, Query: query, Err: err}
	}
	return eval, nil
}

// improve runs one improvement pass. The improvement prompt goes through the
// tool-use-capable generation path so a revision can pull in tool results the
// initial answer skipped.
func (r *Reflection) improve(ctx context.Context, query, answer string, eval *EvaluationResult) (string, bool, error) {
	gen, err := r.generateAnswer(ctx, r.BuildSystemPrompt(), improvementPrompt(query, answer, eval), nil)
	if err != nil {
		return "", false, err
	}
	return gen.answer, gen.usedTool, nil
}

// BuildSystemPrompt renders the prompt with the live tool summary.
func (r *Reflection) BuildSystemPrompt() string {
	return r.systemPrompt("Prefer to ground factual claims in tool results when a relevant tool is available.")
}
