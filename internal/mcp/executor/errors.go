package executor

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is checks across the failure taxonomy.
var (
	// ErrToolNotAvailable marks a resolution or readiness failure. Never
	// retried.
	ErrToolNotAvailable = errors.New("tool not available")

	// ErrExecutionFailed marks an execution that exhausted its retry budget.
	ErrExecutionFailed = errors.New("tool execution failed")

	// ErrSchemaValidation marks an argument mismatch against the tool's
	// parameter schema, recognised via the policy advisor's pattern match.
	ErrSchemaValidation = errors.New("tool argument validation failed")
)

// NotAvailableError is returned when a tool cannot be resolved or its server
// is not ready. It carries up to three alternative tools the caller may offer
// instead.
type NotAvailableError struct {
	// Tool is the name the caller asked for (possibly unresolved).
	Tool string

	// Suggestions holds namespaced identities of alternative tools.
	Suggestions []string
}

func (e *NotAvailableError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("executor: tool %q is not available", e.Tool)
	}
	return fmt.Sprintf("executor: tool %q is not available; alternatives: %s",
		e.Tool, strings.Join(e.Suggestions, ", "))
}

func (e *NotAvailableError) Unwrap() error { return ErrToolNotAvailable }

// ExecutionError is returned when every retry attempt failed. The tool's
// availability cache entry has been invalidated by the time the caller sees
// this error.
type ExecutionError struct {
	// Tool is the namespaced identity of the failed tool.
	Tool string

	// Attempts is the number of execution attempts made.
	Attempts int

	// Suggestions holds namespaced identities of alternative tools.
	Suggestions []string

	// Err is the error from the final attempt.
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("executor: tool %q failed after %d attempts: %v", e.Tool, e.Attempts, e.Err)
}

func (e *ExecutionError) Unwrap() error { return ErrExecutionFailed }

// ValidationError is an ExecutionError whose final failure matched the tool's
// parameter schema, indicating the arguments (not the tool) are at fault.
type ValidationError struct {
	// Tool is the namespaced identity of the tool.
	Tool string

	// Err is the underlying execution error.
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("executor: invalid arguments for tool %q: %v", e.Tool, e.Err)
}

func (e *ValidationError) Unwrap() error { return ErrSchemaValidation }
