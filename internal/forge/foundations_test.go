package forge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFoundationsHappyPath(t *testing.T) {
	client := (&fakeClient{}).
		on("Extract the core intent", `{"goal": "share recipes", "target": "busy parents", "constraints": ["mobile-first"]}`).
		on("Map the product", `{"modules": [{"name": "Recipes", "description": "CRUD", "features": ["create", "browse"]}]}`)
	e := newTestEngine(client, DefaultRoles, 1)
	cap := &capture{}

	intent, appMap, err := BuildFoundations(context.Background(), e,
		SessionState{ID: "s1", Idea: "a recipe app", Answers: map[string]string{"q1": "parents"}}, cap.emit)
	require.NoError(t, err)

	assert.Equal(t, "share recipes", intent.Goal)
	assert.Equal(t, "busy parents", intent.Target)
	require.Len(t, appMap.Modules, 1)
	assert.Equal(t, "Recipes", appMap.Modules[0].Name)

	// The intent is emitted on its own before the module map arrives.
	var intentOnly, both int = -1, -1
	for i, u := range cap.all() {
		if u.Intent != nil && u.AppMap == nil && intentOnly < 0 {
			intentOnly = i
		}
		if u.Intent != nil && u.AppMap != nil {
			both = i
		}
	}
	require.GreaterOrEqual(t, intentOnly, 0, "expected an intent-only update")
	require.Greater(t, both, intentOnly, "module map must follow the intent")
}

func TestBuildFoundationsDefaultsOnGarbage(t *testing.T) {
	client := (&fakeClient{}).
		on("Extract the core intent", "sorry, no JSON").
		on("Map the product", `{"modules": null}`)
	e := newTestEngine(client, DefaultRoles, 1)
	cap := &capture{}

	intent, appMap, err := BuildFoundations(context.Background(), e,
		SessionState{ID: "s1", Idea: "a recipe app"}, cap.emit)
	require.NoError(t, err)

	// Shape problems degrade to placeholders, never to errors.
	assert.NotEmpty(t, intent.Goal)
	assert.NotEmpty(t, intent.Target)
	require.NotNil(t, intent.Constraints)
	assert.Empty(t, intent.Constraints)
	require.NotNil(t, appMap.Modules)
	assert.Empty(t, appMap.Modules)
}

func TestBuildFoundationsRemoteFailurePropagates(t *testing.T) {
	boom := errors.New("SERVICE_ERROR: upstream down")
	client := (&fakeClient{}).
		on("Extract the core intent", `{"goal": "g", "target": "t"}`).
		failOn("Map the product", boom)
	e := newTestEngine(client, DefaultRoles, 2)
	cap := &capture{}

	_, _, err := BuildFoundations(context.Background(), e,
		SessionState{ID: "s1", Idea: "a recipe app"}, cap.emit)
	require.Error(t, err)
	assert.Equal(t, boom, err)
}
