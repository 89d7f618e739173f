// Package forge implements the idea-to-artifacts orchestration pipeline:
// clarification, intent extraction, module mapping, sequential expert
// generation, prototype synthesis, and per-artifact refinement.
//
// The pipeline never holds a reference to shared session state. Each step
// receives a read snapshot and reports partial updates through an Emitter;
// the session store owns merging and persistence.
package forge

import "fmt"

// Status is the lifecycle state of a session.
// Transitions are strictly idle → clarifying → generating → (ready | error).
type Status string

const (
	StatusIdle       Status = "idle"
	StatusClarifying Status = "clarifying"
	StatusGenerating Status = "generating"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// ExpertRole identifies one expert perspective in the pipeline. Role
// identity is this closed identifier, never the human-readable label.
type ExpertRole string

const (
	RoleStrategist ExpertRole = "strategist"
	RoleMarket     ExpertRole = "market"
	RoleProduct    ExpertRole = "product"
	RoleComponents ExpertRole = "components"
	RoleUX         ExpertRole = "ux"
	RoleArchitect  ExpertRole = "architect"
	RoleData       ExpertRole = "data"
	RoleAPI        ExpertRole = "api"
	RoleSecurity   ExpertRole = "security"
	RoleQA         ExpertRole = "qa"
	RoleDelivery   ExpertRole = "delivery"
	RoleAuditor    ExpertRole = "auditor"
	RoleSynthesis  ExpertRole = "synthesis"
)

// roleLabels maps role identifiers to display labels. Kept separate so
// identity comparisons never depend on display text.
var roleLabels = map[ExpertRole]string{
	RoleStrategist: "Strategy Lead",
	RoleMarket:     "Market Analyst",
	RoleProduct:    "Product Manager",
	RoleComponents: "Design System Engineer",
	RoleUX:         "UX Researcher",
	RoleArchitect:  "System Architect",
	RoleData:       "Data Architect",
	RoleAPI:        "API Designer",
	RoleSecurity:   "Security Analyst",
	RoleQA:         "QA Lead",
	RoleDelivery:   "Release Manager",
	RoleAuditor:    "Quality Auditor",
	RoleSynthesis:  "Synthesis Expert",
}

// Label returns the display name for a role.
func (r ExpertRole) Label() string {
	if label, ok := roleLabels[r]; ok {
		return label
	}
	return string(r)
}

// DefaultRoles is the expert sequence of a full forge run, in execution
// order. The synthesis step always follows and is not listed here.
var DefaultRoles = []ExpertRole{
	RoleStrategist,
	RoleMarket,
	RoleProduct,
	RoleComponents,
	RoleUX,
	RoleArchitect,
	RoleData,
	RoleSecurity,
	RoleDelivery,
	RoleAuditor,
}

// ArtifactKind classifies generated artifacts for rendering purposes.
type ArtifactKind string

const (
	KindText         ArtifactKind = "text"
	KindDataSchema   ArtifactKind = "data-schema"
	KindPrototype    ArtifactKind = "prototype"
	KindAudit        ArtifactKind = "audit"
	KindDesignSystem ArtifactKind = "design-system"
	KindAPISpec      ArtifactKind = "api-spec"
)

// kindForRole maps a role to the artifact kind it produces.
func kindForRole(role ExpertRole) ArtifactKind {
	switch role {
	case RoleArchitect, RoleSynthesis:
		return KindPrototype
	case RoleData:
		return KindDataSchema
	case RoleAuditor:
		return KindAudit
	case RoleComponents:
		return KindDesignSystem
	case RoleAPI:
		return KindAPISpec
	default:
		return KindText
	}
}

// Variant is an alternative content block inside an artifact.
type Variant struct {
	Label   string `json:"label"`
	Content string `json:"content"`
}

// Artifact is one generated document attributed to an expert role.
type Artifact struct {
	ID         string         `json:"id"`
	Role       ExpertRole     `json:"role"`
	Title      string         `json:"title"`
	Summary    string         `json:"summary"`
	Content    string         `json:"content"` // markdown or HTML
	Kind       ArtifactKind   `json:"kind"`
	Confidence float64        `json:"confidence"`
	Vitals     map[string]any `json:"vitals,omitempty"`
	Audit      map[string]any `json:"audit,omitempty"`
	Variants   []Variant      `json:"variants,omitempty"`
}

// Question is one clarification question shown to the user.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Kind    string   `json:"kind"` // text or choice
	Options []string `json:"options,omitempty"`
}

// Intent is the normalized goal extracted from the idea and answers.
// Immutable context for every subsequent expert call within a run.
type Intent struct {
	Goal        string   `json:"goal"`
	Target      string   `json:"target"`
	Constraints []string `json:"constraints"`
}

// Module is one functional unit of the mapped product.
type Module struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
}

// ModuleMap decomposes the product into named modules.
type ModuleMap struct {
	Modules []Module `json:"modules"`
}

// SessionState is a read snapshot of one session, passed into pipeline
// operations. The canonical copy lives in the session store.
type SessionState struct {
	ID          string            `json:"id"`
	Idea        string            `json:"idea"`
	Status      Status            `json:"status"`
	CurrentStep string            `json:"current_step"`
	Questions   []Question        `json:"questions"`
	Answers     map[string]string `json:"answers"`
	Intent      *Intent           `json:"intent,omitempty"`
	AppMap      *ModuleMap        `json:"app_map,omitempty"`
	Artifacts   []Artifact        `json:"artifacts"`
}

// Update is a partial patch of session state. Nil fields mean "no change".
type Update struct {
	Status      *Status    `json:"status,omitempty"`
	CurrentStep *string    `json:"current_step,omitempty"`
	Questions   []Question `json:"questions,omitempty"`
	Intent      *Intent    `json:"intent,omitempty"`
	AppMap      *ModuleMap `json:"app_map,omitempty"`
	Artifacts   []Artifact `json:"artifacts,omitempty"`
}

// Emitter receives partial updates as pipeline steps progress. It may be
// called many times per operation; updates arrive in completion order.
type Emitter func(Update)

func statusUpdate(s Status, step string) Update {
	return Update{Status: &s, CurrentStep: &step}
}

func stepUpdate(format string, args ...any) Update {
	step := fmt.Sprintf(format, args...)
	return Update{CurrentStep: &step}
}
