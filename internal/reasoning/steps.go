package reasoning

import "time"

// StepKind labels one entry in the reflection step log.
type StepKind string

const (
	StepInitial     StepKind = "initial"
	StepEvaluation  StepKind = "evaluation"
	StepImprovement StepKind = "improvement"
	StepFinal       StepKind = "final"
)

// ReflectionStep is one ordered log entry of a reflection run. The log is
// append-only within a query and cleared at the start of the next one.
type ReflectionStep struct {
	// Kind is the step type.
	Kind StepKind

	// Iteration is the loop iteration this step belongs to (1-based).
	Iteration int

	// Content holds the generated answer for initial/improvement/final steps.
	Content string

	// Evaluation holds the parsed evaluation payload for evaluation steps.
	Evaluation *EvaluationResult

	// At is when the step was recorded.
	At time.Time
}
