package forge

import (
	"context"

	"go.uber.org/zap"

	"idea-forge/internal/logging"
	"idea-forge/internal/metrics"
)

// Refine rewrites one artifact according to a free-text instruction and
// replaces it in the session's artifact sequence, matched by id with its
// position preserved. Only fields present in the response overwrite the
// original; a response the extractor cannot parse leaves the artifact
// unchanged. Remote failure propagates to the caller instead of flipping
// the whole session to an error status.
func Refine(ctx context.Context, e *Engine, artifact Artifact, instruction string, state SessionState, emit Emitter) (Artifact, error) {
	emit(stepUpdate("Updating %s...", artifact.Title))

	text, err := e.generate(ctx, e.flashModel, promptRefine(artifact, instruction), true)
	if err != nil {
		metrics.Get().RefinementsTotal.WithLabelValues("error").Inc()
		return Artifact{}, err
	}

	updated := applyRefinement(artifact, ExtractJSON(text))

	artifacts := make([]Artifact, len(state.Artifacts))
	copy(artifacts, state.Artifacts)
	for i := range artifacts {
		if artifacts[i].ID == updated.ID {
			artifacts[i] = updated
			break
		}
	}

	metrics.Get().RefinementsTotal.WithLabelValues("success").Inc()
	logging.WithSession(state.ID).Info("artifact refined",
		zap.String("artifact_id", updated.ID),
		zap.String("role", string(updated.Role)))

	emit(Update{Artifacts: artifacts})
	return updated, nil
}
