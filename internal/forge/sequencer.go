package forge

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"idea-forge/internal/logging"
	"idea-forge/internal/metrics"
)

// RunForge executes a full forge run: foundations, one expert call per
// role in strict order, then prototype synthesis. Every state change is
// emitted as it happens; the terminal emission carries status=ready or
// status=error. Artifacts emitted before a failure stay emitted — there
// is no rollback.
//
// Calls are strictly sequential. The engine's limiter paces them to stay
// under the provider's shared quota. Cancelling ctx between steps ends
// the run with status=error.
func RunForge(ctx context.Context, e *Engine, state SessionState, emit Emitter) {
	log := logging.WithSession(state.ID)
	m := metrics.Get()
	m.ActiveForgeRuns.Inc()
	defer m.ActiveForgeRuns.Dec()
	started := time.Now()

	if err := runForge(ctx, e, state, emit); err != nil {
		// Single top-level catch: any failure in the sequence maps to a
		// terminal error status with the message as the progress label.
		msg := err.Error()
		if errors.Is(err, context.Canceled) {
			msg = "run cancelled"
		}
		log.Warn("forge run failed", zap.Error(err), zap.Duration("elapsed", time.Since(started)))
		emit(statusUpdate(StatusError, "Error: "+msg))
		m.ObserveForgeRun(string(StatusError), time.Since(started))
		return
	}

	log.Info("forge run complete", zap.Duration("elapsed", time.Since(started)))
	m.ObserveForgeRun(string(StatusReady), time.Since(started))
}

func runForge(ctx context.Context, e *Engine, state SessionState, emit Emitter) error {
	emit(statusUpdate(StatusGenerating, "Extracting the project intent..."))

	intent, appMap, err := BuildFoundations(ctx, e, state, emit)
	if err != nil {
		return err
	}
	// Work on a local snapshot; the session store owns the canonical state.
	state.Intent = &intent
	state.AppMap = &appMap

	artifacts := make([]Artifact, 0, len(e.roles)+1)
	for _, role := range e.roles {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}
		emit(stepUpdate("The %s is forging their part...", role.Label()))

		text, err := e.generate(ctx, e.flashModel, promptExpert(role, state), true)
		if err != nil {
			return err
		}

		artifact := decodeArtifact(role, ExtractJSON(text), text)
		artifacts = append(artifacts, artifact)
		state.Artifacts = artifacts
		metrics.Get().ArtifactsTotal.WithLabelValues(string(role)).Inc()

		emit(Update{Artifacts: snapshot(artifacts)})
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return err
	}
	emit(stepUpdate("Generating the interactive prototype..."))

	// The synthesis call returns raw markup, not JSON.
	text, err := e.generate(ctx, e.proModel, promptSynthesis(state), false)
	if err != nil {
		return err
	}

	prototype := Artifact{
		ID:         newArtifactID(RoleSynthesis),
		Role:       RoleSynthesis,
		Title:      "Master Prototype",
		Summary:    "Functional generated interface.",
		Content:    StripCodeFences(text),
		Kind:       KindPrototype,
		Confidence: 1.0,
	}
	artifacts = append(artifacts, prototype)
	metrics.Get().ArtifactsTotal.WithLabelValues(string(RoleSynthesis)).Inc()

	ready := StatusReady
	step := "Forge complete"
	emit(Update{Artifacts: snapshot(artifacts), Status: &ready, CurrentStep: &step})
	return nil
}

// snapshot copies the artifact slice so later appends cannot mutate what
// an earlier emission handed to the caller.
func snapshot(artifacts []Artifact) []Artifact {
	out := make([]Artifact, len(artifacts))
	copy(out, artifacts)
	return out
}
