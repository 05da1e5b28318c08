package reasoning

import (
	"context"
	"log/slog"
)

// SingleShot performs one generation pass with at most one tool call.
//
// It never fails hard on tool or model trouble after the first generation
// succeeds partially: failures degrade to returning the error text as the
// answer so an interactive session keeps flowing.
type SingleShot struct {
	deps
}

var _ Strategy = (*SingleShot)(nil)

// ProcessQuery runs the single pass and returns the answer.
func (s *SingleShot) ProcessQuery(ctx context.Context, query string) (string, error) {
	gen, err := s.generateAnswer(ctx, s.BuildSystemPrompt(), query, nil)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		// Degrade to the error text instead of killing the session.
		slog.Warn("single-shot degraded to error answer", "err", err)
		return "I ran into a problem answering that: " + err.Error(), nil
	}
	return gen.answer, nil
}

// BuildSystemPrompt renders the prompt with the live tool summary.
func (s *SingleShot) BuildSystemPrompt() string {
	return s.systemPrompt("")
}
