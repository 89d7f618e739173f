package forge

import (
	"context"

	"go.uber.org/zap"

	"idea-forge/internal/logging"
)

// BuildFoundations converts the idea plus clarification answers into a
// structured Intent and ModuleMap via two remote calls. The intent is
// emitted on its own after the first call so callers can show partial
// progress. Shape problems in either response degrade to defaults; only a
// remote failure that exhausts retries propagates.
func BuildFoundations(ctx context.Context, e *Engine, state SessionState, emit Emitter) (Intent, ModuleMap, error) {
	log := logging.WithSession(state.ID)

	emit(stepUpdate("Extracting the project intent..."))
	text, err := e.generate(ctx, e.flashModel, promptIntent(state.Idea, state.Answers), true)
	if err != nil {
		return Intent{}, ModuleMap{}, err
	}
	intent := decodeIntent(ExtractJSON(text))
	emit(Update{Intent: &intent})
	log.Info("intent extracted", zap.String("goal", intent.Goal))

	emit(stepUpdate("Mapping the key modules..."))
	text, err = e.generate(ctx, e.flashModel, promptModuleMap(intent), true)
	if err != nil {
		return Intent{}, ModuleMap{}, err
	}
	appMap := decodeModuleMap(ExtractJSON(text))
	emit(Update{Intent: &intent, AppMap: &appMap})
	log.Info("module map ready", zap.Int("modules", len(appMap.Modules)))

	return intent, appMap, nil
}
