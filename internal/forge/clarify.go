package forge

import (
	"context"

	"go.uber.org/zap"

	"idea-forge/internal/logging"
	"idea-forge/internal/metrics"
)

// Clarify asks the model for a small set of follow-up questions about the
// idea. The clarifying status is emitted before the remote call completes
// so callers can render a loading state immediately. Question content is
// passed through as-is; only the shape is normalized.
func Clarify(ctx context.Context, e *Engine, state SessionState, emit Emitter) ([]Question, error) {
	emit(statusUpdate(StatusClarifying, "The scoping expert is analyzing your idea..."))

	text, err := e.generate(ctx, e.flashModel, promptClarify(state.Idea), true)
	if err != nil {
		return nil, err
	}

	questions := decodeQuestions(ExtractJSON(text))
	metrics.Get().QuestionsReturned.Observe(float64(len(questions)))
	logging.WithSession(state.ID).Info("clarification questions ready",
		zap.Int("count", len(questions)))

	emit(Update{Questions: questions})
	return questions, nil
}
