package forge

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeQuestionsShapes(t *testing.T) {
	t.Run("envelope with object items", func(t *testing.T) {
		raw := json.RawMessage(`{"questions": [
			{"id": "who", "text": "Who is it for?", "kind": "choice", "options": ["teams", "individuals"]},
			{"text": "What is the core feature?"}
		]}`)
		questions := decodeQuestions(raw)

		assert.Len(t, questions, 2)
		assert.Equal(t, "who", questions[0].ID)
		assert.Equal(t, "choice", questions[0].Kind)
		assert.Equal(t, []string{"teams", "individuals"}, questions[0].Options)
		// Missing id and kind get filled in.
		assert.Equal(t, "q2", questions[1].ID)
		assert.Equal(t, "text", questions[1].Kind)
	})

	t.Run("bare array of strings", func(t *testing.T) {
		raw := json.RawMessage(`["Who is it for?", "What platform?"]`)
		questions := decodeQuestions(raw)

		assert.Len(t, questions, 2)
		assert.Equal(t, "q1", questions[0].ID)
		assert.Equal(t, "Who is it for?", questions[0].Text)
		assert.Equal(t, "text", questions[1].Kind)
	})

	t.Run("blank and malformed items are skipped", func(t *testing.T) {
		raw := json.RawMessage(`{"questions": [{"text": "  "}, 42, {"text": "Real question?"}]}`)
		questions := decodeQuestions(raw)

		assert.Len(t, questions, 1)
		assert.Equal(t, "Real question?", questions[0].Text)
	})

	t.Run("unknown kind normalizes to text", func(t *testing.T) {
		raw := json.RawMessage(`{"questions": [{"text": "Scale?", "kind": "slider"}]}`)
		questions := decodeQuestions(raw)
		assert.Equal(t, "text", questions[0].Kind)
	})

	t.Run("garbage degrades to empty list", func(t *testing.T) {
		assert.Empty(t, decodeQuestions(json.RawMessage(`{}`)))
		assert.Empty(t, decodeQuestions(json.RawMessage(`"nope"`)))
	})
}

func TestDecodeIntentDefaults(t *testing.T) {
	t.Run("missing fields get placeholders", func(t *testing.T) {
		intent := decodeIntent(json.RawMessage(`{}`))
		assert.Equal(t, defaultGoal, intent.Goal)
		assert.Equal(t, defaultTarget, intent.Target)
		assert.NotNil(t, intent.Constraints)
		assert.Empty(t, intent.Constraints)
	})

	t.Run("present fields survive", func(t *testing.T) {
		intent := decodeIntent(json.RawMessage(`{"goal": "meal planning", "target": "parents", "constraints": ["mobile-first"]}`))
		assert.Equal(t, "meal planning", intent.Goal)
		assert.Equal(t, "parents", intent.Target)
		assert.Equal(t, []string{"mobile-first"}, intent.Constraints)
	})

	t.Run("single-element list unwraps", func(t *testing.T) {
		intent := decodeIntent(json.RawMessage(`[{"goal": "meal planning"}]`))
		assert.Equal(t, "meal planning", intent.Goal)
		assert.Equal(t, defaultTarget, intent.Target)
	})
}

func TestDecodeModuleMapDefaults(t *testing.T) {
	appMap := decodeModuleMap(json.RawMessage(`{}`))
	assert.NotNil(t, appMap.Modules)
	assert.Empty(t, appMap.Modules)

	appMap = decodeModuleMap(json.RawMessage(`{"modules": [{"name": "Recipes"}]}`))
	assert.Len(t, appMap.Modules, 1)
	assert.Equal(t, "Recipes", appMap.Modules[0].Name)
	assert.NotNil(t, appMap.Modules[0].Features)
}

func TestDecodeArtifact(t *testing.T) {
	t.Run("full response", func(t *testing.T) {
		raw := json.RawMessage(`{"title": "Market Study", "summary": "TAM is large.", "content": "# Study", "confidence": 0.75}`)
		artifact := decodeArtifact(RoleMarket, raw, "ignored")

		assert.Equal(t, RoleMarket, artifact.Role)
		assert.Equal(t, "Market Study", artifact.Title)
		assert.Equal(t, 0.75, artifact.Confidence)
		assert.Equal(t, KindText, artifact.Kind)
		assert.True(t, strings.HasPrefix(artifact.ID, "market_"), "id %q should carry the role prefix", artifact.ID)
	})

	t.Run("empty response falls back everywhere", func(t *testing.T) {
		artifact := decodeArtifact(RoleData, json.RawMessage(`{}`), "the raw model text")

		assert.Equal(t, RoleData.Label(), artifact.Title)
		assert.Equal(t, defaultSummary, artifact.Summary)
		assert.Equal(t, "the raw model text", artifact.Content)
		assert.Equal(t, 0.9, artifact.Confidence)
		assert.Equal(t, KindDataSchema, artifact.Kind)
	})

	t.Run("confidence is clamped", func(t *testing.T) {
		artifact := decodeArtifact(RoleMarket, json.RawMessage(`{"confidence": 3.5}`), "")
		assert.Equal(t, 1.0, artifact.Confidence)

		artifact = decodeArtifact(RoleMarket, json.RawMessage(`{"confidence": -1}`), "")
		assert.Equal(t, 0.0, artifact.Confidence)
	})
}

func TestApplyRefinement(t *testing.T) {
	original := Artifact{
		ID:      "market_1",
		Role:    RoleMarket,
		Title:   "Market Study",
		Summary: "Old summary.",
		Content: "old content",
	}

	t.Run("present fields overwrite", func(t *testing.T) {
		updated := applyRefinement(original, json.RawMessage(`{"content": "new content"}`))
		assert.Equal(t, "new content", updated.Content)
		assert.Equal(t, "Market Study", updated.Title)
		assert.Equal(t, "Old summary.", updated.Summary)
		assert.Equal(t, "market_1", updated.ID)
	})

	t.Run("empty response is a no-op", func(t *testing.T) {
		updated := applyRefinement(original, json.RawMessage(`{}`))
		assert.Equal(t, original, updated)
	})

	t.Run("blank strings do not erase fields", func(t *testing.T) {
		updated := applyRefinement(original, json.RawMessage(`{"title": "  ", "content": "fresh"}`))
		assert.Equal(t, "Market Study", updated.Title)
		assert.Equal(t, "fresh", updated.Content)
	})
}
