package models

import (
	"encoding/json"
	"time"

	"idea-forge/internal/forge"
)

// Session is the persisted form of one forge session. Structured parts of
// the state are stored as JSON text columns; the status column stays flat
// so it can be filtered in queries.
type Session struct {
	ID        string    `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Idea        string `json:"idea" gorm:"type:text;not null"`
	Status      string `json:"status" gorm:"index;default:'idle'"`
	CurrentStep string `json:"current_step"`

	Questions string `json:"-" gorm:"type:text"`
	Answers   string `json:"-" gorm:"type:text"`
	Intent    string `json:"-" gorm:"type:text"`
	AppMap    string `json:"-" gorm:"type:text"`
	Artifacts string `json:"-" gorm:"type:text"`
}

// State reconstructs the in-memory session state from the stored columns.
// Corrupt or empty JSON columns decode to empty values, never errors.
func (s *Session) State() forge.SessionState {
	state := forge.SessionState{
		ID:          s.ID,
		Idea:        s.Idea,
		Status:      forge.Status(s.Status),
		CurrentStep: s.CurrentStep,
		Questions:   []forge.Question{},
		Answers:     map[string]string{},
		Artifacts:   []forge.Artifact{},
	}
	if s.Questions != "" {
		_ = json.Unmarshal([]byte(s.Questions), &state.Questions)
	}
	if s.Answers != "" {
		_ = json.Unmarshal([]byte(s.Answers), &state.Answers)
	}
	if s.Intent != "" {
		var intent forge.Intent
		if json.Unmarshal([]byte(s.Intent), &intent) == nil {
			state.Intent = &intent
		}
	}
	if s.AppMap != "" {
		var appMap forge.ModuleMap
		if json.Unmarshal([]byte(s.AppMap), &appMap) == nil {
			state.AppMap = &appMap
		}
	}
	if s.Artifacts != "" {
		_ = json.Unmarshal([]byte(s.Artifacts), &state.Artifacts)
	}
	return state
}

// SetState writes the in-memory state back into the stored columns.
func (s *Session) SetState(state forge.SessionState) {
	s.ID = state.ID
	s.Idea = state.Idea
	s.Status = string(state.Status)
	s.CurrentStep = state.CurrentStep
	s.Questions = marshalOrEmpty(state.Questions)
	s.Answers = marshalOrEmpty(state.Answers)
	s.Artifacts = marshalOrEmpty(state.Artifacts)
	if state.Intent != nil {
		s.Intent = marshalOrEmpty(state.Intent)
	} else {
		s.Intent = ""
	}
	if state.AppMap != nil {
		s.AppMap = marshalOrEmpty(state.AppMap)
	} else {
		s.AppMap = ""
	}
}

func marshalOrEmpty(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
