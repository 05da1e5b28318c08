package reasoning

import "fmt"

// Phase names where in the reflection cycle a failure occurred.
type Phase string

const (
	PhaseInitial     Phase = "initial"
	PhaseEvaluation  Phase = "evaluation"
	PhaseImprovement Phase = "improvement"
	PhaseParsing     Phase = "parsing"
	PhaseTimeout     Phase = "timeout"
)

// PhaseError is a tagged reflection failure carrying the phase, iteration,
// and originating query, so callers can report precisely where the cycle
// broke instead of seeing a generic error.
type PhaseError struct {
	// Phase is the reflection phase that failed.
	Phase Phase

	// Iteration is the loop iteration (1-based) during which the failure
	// occurred. Zero for failures before the first evaluation.
	Iteration int

	// Query is the originating user query.
	Query string

	// Err is the underlying failure.
	Err error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("reasoning: %s phase failed (iteration %d, query %q): %v",
		e.Phase, e.Iteration, e.Query, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }
