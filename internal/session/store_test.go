package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idea-forge/internal/cache"
	"idea-forge/internal/database"
	"idea-forge/internal/forge"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.ConnectTest()
	require.NoError(t, err)
	return NewStore(db, cache.New("", time.Minute), nil)
}

func TestStoreCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "a recipe sharing app")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, forge.StatusIdle, created.Status)

	loaded, err := store.GetState(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)
	assert.Equal(t, "a recipe sharing app", loaded.Idea)
	assert.NotNil(t, loaded.Questions)
	assert.NotNil(t, loaded.Artifacts)
}

func TestStoreGetUnknownSession(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetState(context.Background(), "missing")
	require.Error(t, err)
}

func TestApplyMergesPartialUpdates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "a recipe app")
	require.NoError(t, err)

	generating := forge.StatusGenerating
	step := "Extracting the project intent..."
	state, err := store.Apply(created.ID, forge.Update{Status: &generating, CurrentStep: &step})
	require.NoError(t, err)
	assert.Equal(t, forge.StatusGenerating, state.Status)
	assert.Equal(t, step, state.CurrentStep)

	// A later update with only artifacts leaves status and step alone.
	artifacts := []forge.Artifact{{ID: "market_1", Role: forge.RoleMarket, Title: "Market Study"}}
	state, err = store.Apply(created.ID, forge.Update{Artifacts: artifacts})
	require.NoError(t, err)
	assert.Equal(t, forge.StatusGenerating, state.Status)
	assert.Equal(t, step, state.CurrentStep)
	require.Len(t, state.Artifacts, 1)

	// Artifact slices replace wholesale.
	artifacts = append(artifacts, forge.Artifact{ID: "architect_1", Role: forge.RoleArchitect})
	state, err = store.Apply(created.ID, forge.Update{Artifacts: artifacts})
	require.NoError(t, err)
	require.Len(t, state.Artifacts, 2)
	assert.Equal(t, "market_1", state.Artifacts[0].ID)

	// The merged state survives a fresh read.
	loaded, err := store.GetState(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, state.Artifacts, loaded.Artifacts)
}

func TestEmitterAppliesUpdatesInOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "a recipe app")
	require.NoError(t, err)

	emit := store.Emitter(created.ID)
	intent := forge.Intent{Goal: "share recipes", Target: "parents", Constraints: []string{}}
	emit(forge.Update{Intent: &intent})
	ready := forge.StatusReady
	emit(forge.Update{Status: &ready})

	state, err := store.GetState(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, state.Intent)
	assert.Equal(t, "share recipes", state.Intent.Goal)
	assert.Equal(t, forge.StatusReady, state.Status)
}

func TestSetAnswersMergesOverExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "a recipe app")
	require.NoError(t, err)

	_, err = store.SetAnswers(ctx, created.ID, map[string]string{"q1": "web", "q2": "free"})
	require.NoError(t, err)

	state, err := store.SetAnswers(ctx, created.ID, map[string]string{"q2": "paid", "q3": "yes"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"q1": "web", "q2": "paid", "q3": "yes"}, state.Answers)
}

func TestResetKeepsIdeaDropsTheRest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "a recipe app")
	require.NoError(t, err)

	ready := forge.StatusReady
	_, err = store.Apply(created.ID, forge.Update{
		Status:    &ready,
		Questions: []forge.Question{{ID: "q1", Text: "Who?", Kind: "text"}},
		Artifacts: []forge.Artifact{{ID: "market_1", Role: forge.RoleMarket}},
	})
	require.NoError(t, err)

	state, err := store.Reset(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "a recipe app", state.Idea)
	assert.Equal(t, forge.StatusIdle, state.Status)
	assert.Empty(t, state.Questions)
	assert.Empty(t, state.Artifacts)
	assert.Nil(t, state.Intent)
}

func TestStartRunAllowsOneRunPerSession(t *testing.T) {
	store := newTestStore(t)

	ctx, err := store.StartRun("s1", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, ctx)

	_, err = store.StartRun("s1", time.Minute)
	assert.ErrorIs(t, err, ErrRunInProgress)

	// A different session is unaffected.
	_, err = store.StartRun("s2", time.Minute)
	assert.NoError(t, err)

	store.FinishRun("s1")
	_, err = store.StartRun("s1", time.Minute)
	assert.NoError(t, err)
}

func TestCancelRunCancelsContext(t *testing.T) {
	store := newTestStore(t)

	ctx, err := store.StartRun("s1", time.Minute)
	require.NoError(t, err)

	require.NoError(t, store.CancelRun("s1"))
	select {
	case <-ctx.Done():
	default:
		t.Fatal("run context should be cancelled")
	}

	assert.ErrorIs(t, store.CancelRun("s1"), ErrNoActiveRun)
}
