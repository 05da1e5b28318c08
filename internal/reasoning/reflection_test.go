package reasoning

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gazolla/chatcli/pkg/provider/llm"
)

// evalJSON builds an evaluation response body with the given score and flag.
func evalJSON(score string, needsImprovement bool) string {
	flag := "false"
	if needsImprovement {
		flag = "true"
	}
	return `{"overall_score": ` + score + `, "criteria_scores": {"accuracy": ` + score +
		`, "completeness": ` + score + `, "tool_usage": ` + score + `, "coherence": ` + score +
		`}, "feedback": "needs more detail", "suggestions": ["expand"], "needs_improvement": ` + flag + `}`
}

func isEvaluationRequest(req llm.CompletionRequest) bool {
	return len(req.Messages) == 1 && strings.Contains(req.Messages[0].Content, "overall_score")
}

func TestReflectionConvergesOnThreshold(t *testing.T) {
	provider, catalog, exec, advisor := newFixture(t)

	var evals int
	provider.CompleteFn = func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if isEvaluationRequest(req) {
			evals++
			if evals == 1 {
				return &llm.CompletionResponse{Content: evalJSON("0.4", true)}, nil
			}
			return &llm.CompletionResponse{Content: evalJSON("0.75", false)}, nil
		}
		if strings.Contains(req.Messages[0].Content, "Improve the following answer") {
			return &llm.CompletionResponse{Content: "Paris is the capital of France, population about 2.1 million."}, nil
		}
		return &llm.CompletionResponse{Content: "Paris."}, nil
	}

	strat, err := New(KindReflection, provider, catalog, exec, advisor, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	answer, err := strat.ProcessQuery(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("ProcessQuery() error = %v", err)
	}
	if !strings.Contains(answer, "2.1 million") {
		t.Errorf("final answer is not the improved one: %q", answer)
	}
	if evals != 2 {
		t.Errorf("evaluations = %d, want 2 (second one crossed the threshold)", evals)
	}

	refl := strat.(*Reflection)
	steps := refl.Steps()
	wantKinds := []StepKind{StepInitial, StepEvaluation, StepImprovement, StepEvaluation, StepFinal}
	if len(steps) != len(wantKinds) {
		t.Fatalf("step count = %d, want %d", len(steps), len(wantKinds))
	}
	for i, want := range wantKinds {
		if steps[i].Kind != want {
			t.Errorf("step[%d].Kind = %q, want %q", i, steps[i].Kind, want)
		}
	}
	if steps[3].Evaluation == nil || steps[3].Evaluation.Overall != 0.75 {
		t.Errorf("final evaluation step = %+v", steps[3].Evaluation)
	}
}

func TestReflectionHaltsOnThresholdDespiteImprovementFlag(t *testing.T) {
	provider, catalog, exec, advisor := newFixture(t)

	var improvements int
	provider.CompleteFn = func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if isEvaluationRequest(req) {
			// Score clears the threshold but the evaluator still asks
			// for another pass; the score wins.
			return &llm.CompletionResponse{Content: evalJSON("0.9", true)}, nil
		}
		if strings.Contains(req.Messages[0].Content, "Improve the following answer") {
			improvements++
			return &llm.CompletionResponse{Content: "revised answer"}, nil
		}
		return &llm.CompletionResponse{Content: "first answer"}, nil
	}

	strat, err := New(KindReflection, provider, catalog, exec, advisor, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	answer, err := strat.ProcessQuery(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("ProcessQuery() error = %v", err)
	}
	if answer != "first answer" {
		t.Errorf("answer = %q, want the initial answer", answer)
	}
	if improvements != 0 {
		t.Errorf("improvement cycles = %d, want 0 (overall 0.9 >= threshold 0.6 must halt)", improvements)
	}
}

func TestReflectionHaltsWhenNoImprovementWanted(t *testing.T) {
	provider, catalog, exec, advisor := newFixture(t)

	var improvements int
	provider.CompleteFn = func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if isEvaluationRequest(req) {
			// Low score, but the evaluator sees nothing left to improve.
			return &llm.CompletionResponse{Content: evalJSON("0.4", false)}, nil
		}
		if strings.Contains(req.Messages[0].Content, "Improve the following answer") {
			improvements++
			return &llm.CompletionResponse{Content: "revised answer"}, nil
		}
		return &llm.CompletionResponse{Content: "first answer"}, nil
	}

	strat, err := New(KindReflection, provider, catalog, exec, advisor, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	answer, err := strat.ProcessQuery(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("ProcessQuery() error = %v", err)
	}
	if answer != "first answer" {
		t.Errorf("answer = %q, want the initial answer", answer)
	}
	if improvements != 0 {
		t.Errorf("improvement cycles = %d, want 0 (needs_improvement=false must halt)", improvements)
	}
}

func TestReflectionStopsAtIterationBudget(t *testing.T) {
	provider, catalog, exec, advisor := newFixture(t)

	var evals, improvements int
	provider.CompleteFn = func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if isEvaluationRequest(req) {
			evals++
			// Never satisfied.
			return &llm.CompletionResponse{Content: evalJSON("0.3", true)}, nil
		}
		if strings.Contains(req.Messages[0].Content, "Improve the following answer") {
			improvements++
			return &llm.CompletionResponse{Content: "slightly better answer"}, nil
		}
		return &llm.CompletionResponse{Content: "first answer"}, nil
	}

	strat, err := New(KindReflection, provider, catalog, exec, advisor, Options{MaxIterations: 3})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	answer, err := strat.ProcessQuery(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("ProcessQuery() error = %v", err)
	}
	if answer == "" {
		t.Error("exhausted budget must still return the best answer so far")
	}
	if evals != 3 {
		t.Errorf("evaluations = %d, want exactly MaxIterations (3)", evals)
	}
	if improvements != 2 {
		t.Errorf("improvements = %d, want 2 (no improvement after the last evaluation)", improvements)
	}
}

func TestReflectionToolUsageHardRule(t *testing.T) {
	provider, catalog, exec, advisor := newFixture(t)

	provider.CompleteFn = func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if isEvaluationRequest(req) {
			// Evaluator is overly generous despite the missing tool call.
			return &llm.CompletionResponse{Content: evalJSON("0.9", false)}, nil
		}
		return &llm.CompletionResponse{Content: "It is probably sunny."}, nil
	}

	strat, err := New(KindReflection, provider, catalog, exec, advisor, Options{MaxIterations: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// "forecast" matches the weather tool's description, so the advisor
	// reports the query as tool-requiring; no tool was actually called.
	if _, err := strat.ProcessQuery(context.Background(), "What is the forecast for Tokyo tomorrow?"); err != nil {
		t.Fatalf("ProcessQuery() error = %v", err)
	}

	steps := strat.(*Reflection).Steps()
	var sawOverride bool
	for _, step := range steps {
		if step.Kind != StepEvaluation {
			continue
		}
		sawOverride = true
		if step.Evaluation.Criteria.ToolUsage != 0 {
			t.Errorf("ToolUsage = %v, want 0 when no tool evidence exists", step.Evaluation.Criteria.ToolUsage)
		}
		if step.Evaluation.Overall > 0.5 {
			t.Errorf("Overall = %v, want capped at 0.5", step.Evaluation.Overall)
		}
		if !step.Evaluation.NeedsImprovement {
			t.Error("NeedsImprovement = false, want forced true")
		}
	}
	if !sawOverride {
		t.Fatal("no evaluation steps recorded")
	}
}

func TestReflectionStepLogClearedPerQuery(t *testing.T) {
	provider, catalog, exec, advisor := newFixture(t)
	provider.CompleteFn = func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if isEvaluationRequest(req) {
			return &llm.CompletionResponse{Content: evalJSON("0.9", false)}, nil
		}
		return &llm.CompletionResponse{Content: "fine answer"}, nil
	}

	strat, err := New(KindReflection, provider, catalog, exec, advisor, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	refl := strat.(*Reflection)

	if _, err := refl.ProcessQuery(context.Background(), "first question"); err != nil {
		t.Fatal(err)
	}
	first := len(refl.Steps())

	if _, err := refl.ProcessQuery(context.Background(), "second question"); err != nil {
		t.Fatal(err)
	}
	if got := len(refl.Steps()); got != first {
		t.Errorf("second query log length = %d, want %d (log must reset per query)", got, first)
	}
}

func TestReflectionInitialPhaseError(t *testing.T) {
	provider, catalog, exec, advisor := newFixture(t)
	provider.CompleteErr = errors.New("backend down")

	strat, err := New(KindReflection, provider, catalog, exec, advisor, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = strat.ProcessQuery(context.Background(), "anything")
	var perr *PhaseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *PhaseError", err)
	}
	if perr.Phase != PhaseInitial {
		t.Errorf("Phase = %q, want %q", perr.Phase, PhaseInitial)
	}
	if perr.Query != "anything" {
		t.Errorf("Query = %q", perr.Query)
	}
}

func TestReflectionParsingPhaseError(t *testing.T) {
	provider, catalog, exec, advisor := newFixture(t)
	provider.CompleteFn = func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if isEvaluationRequest(req) {
			return &llm.CompletionResponse{Content: "looks good to me!"}, nil
		}
		return &llm.CompletionResponse{Content: "some answer"}, nil
	}

	strat, err := New(KindReflection, provider, catalog, exec, advisor, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = strat.ProcessQuery(context.Background(), "anything")
	var perr *PhaseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *PhaseError", err)
	}
	if perr.Phase != PhaseParsing {
		t.Errorf("Phase = %q, want %q", perr.Phase, PhaseParsing)
	}
	if perr.Iteration != 1 {
		t.Errorf("Iteration = %d, want 1", perr.Iteration)
	}
}
