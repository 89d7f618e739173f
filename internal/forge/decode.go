package forge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Decoders in this file never trust the remote shape: they parse into an
// untyped intermediate value and supply defaults per field. Shape problems
// degrade to defaults; they are never errors.

const (
	defaultGoal    = "Deliver a working version of the idea"
	defaultTarget  = "General users"
	defaultSummary = "Expert summary."
)

// decodeQuestions normalizes a clarification response into a question
// list. Accepts {"questions": [...]}, a bare array, and items that are
// either strings or objects. Missing ids become q1, q2, ...
func decodeQuestions(raw json.RawMessage) []Question {
	var envelope struct {
		Questions []json.RawMessage `json:"questions"`
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Questions != nil {
		items = envelope.Questions
	} else {
		// Maybe the model returned a bare array.
		var bare []json.RawMessage
		if err := json.Unmarshal(raw, &bare); err != nil {
			return []Question{}
		}
		items = bare
	}

	questions := make([]Question, 0, len(items))
	for i, item := range items {
		var q Question

		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			q = Question{Text: text}
		} else if err := json.Unmarshal(item, &q); err != nil {
			continue
		}

		if strings.TrimSpace(q.Text) == "" {
			continue
		}
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", i+1)
		}
		if q.Kind != "choice" {
			q.Kind = "text"
		}
		questions = append(questions, q)
	}
	return questions
}

// decodeIntent validates a parsed intent against the Intent shape. A list
// response uses its first element. Missing fields get placeholders.
func decodeIntent(raw json.RawMessage) Intent {
	raw = firstIfList(raw)

	var intent Intent
	_ = json.Unmarshal(raw, &intent)

	if strings.TrimSpace(intent.Goal) == "" {
		intent.Goal = defaultGoal
	}
	if strings.TrimSpace(intent.Target) == "" {
		intent.Target = defaultTarget
	}
	if intent.Constraints == nil {
		intent.Constraints = []string{}
	}
	return intent
}

// decodeModuleMap validates a parsed module map, defaulting to an empty
// module sequence.
func decodeModuleMap(raw json.RawMessage) ModuleMap {
	raw = firstIfList(raw)

	var appMap ModuleMap
	_ = json.Unmarshal(raw, &appMap)

	if appMap.Modules == nil {
		appMap.Modules = []Module{}
	}
	for i := range appMap.Modules {
		if appMap.Modules[i].Features == nil {
			appMap.Modules[i].Features = []string{}
		}
	}
	return appMap
}

// artifactResponse is the shape experts are asked to return. Every field
// is optional; decodeArtifact fills the gaps.
type artifactResponse struct {
	Title      string         `json:"title"`
	Summary    string         `json:"summary"`
	Content    string         `json:"content"`
	Confidence *float64       `json:"confidence"`
	Vitals     map[string]any `json:"vitals"`
	Audit      map[string]any `json:"audit"`
	Variants   []Variant      `json:"variants"`
}

// decodeArtifact builds an Artifact from a parsed expert response.
// rawText is the unparsed model output, used as content of last resort.
func decodeArtifact(role ExpertRole, raw json.RawMessage, rawText string) Artifact {
	var resp artifactResponse
	_ = json.Unmarshal(firstIfList(raw), &resp)

	artifact := Artifact{
		ID:         newArtifactID(role),
		Role:       role,
		Title:      resp.Title,
		Summary:    resp.Summary,
		Content:    resp.Content,
		Kind:       kindForRole(role),
		Confidence: 0.9,
		Vitals:     resp.Vitals,
		Audit:      resp.Audit,
		Variants:   resp.Variants,
	}

	if strings.TrimSpace(artifact.Title) == "" {
		artifact.Title = role.Label()
	}
	if strings.TrimSpace(artifact.Summary) == "" {
		artifact.Summary = defaultSummary
	}
	if strings.TrimSpace(artifact.Content) == "" {
		artifact.Content = rawText
	}
	if resp.Confidence != nil {
		artifact.Confidence = clamp01(*resp.Confidence)
	}
	return artifact
}

// refineResponse is the shape the refinement call returns. Only present
// fields overwrite the original artifact.
type refineResponse struct {
	Title   *string `json:"title"`
	Summary *string `json:"summary"`
	Content *string `json:"content"`
}

// applyRefinement overlays the fields present in raw onto the artifact.
// Unset fields keep their prior values; a fully empty response is a no-op.
func applyRefinement(artifact Artifact, raw json.RawMessage) Artifact {
	var resp refineResponse
	_ = json.Unmarshal(firstIfList(raw), &resp)

	if resp.Title != nil && strings.TrimSpace(*resp.Title) != "" {
		artifact.Title = *resp.Title
	}
	if resp.Summary != nil && strings.TrimSpace(*resp.Summary) != "" {
		artifact.Summary = *resp.Summary
	}
	if resp.Content != nil && strings.TrimSpace(*resp.Content) != "" {
		artifact.Content = *resp.Content
	}
	return artifact
}

// firstIfList unwraps a JSON array to its first element. Models sometimes
// return a single-element list where an object was requested.
func firstIfList(raw json.RawMessage) json.RawMessage {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "[") {
		return raw
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
		return json.RawMessage("{}")
	}
	return list[0]
}

func newArtifactID(role ExpertRole) string {
	return fmt.Sprintf("%s_%s", role, uuid.New().String())
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
