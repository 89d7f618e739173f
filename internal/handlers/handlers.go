// Package handlers wires the HTTP API to the session store and the forge
// pipeline.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"idea-forge/internal/config"
	"idea-forge/internal/forge"
	"idea-forge/internal/logging"
	"idea-forge/internal/session"
)

// Handler serves the session API.
type Handler struct {
	store  *session.Store
	engine *forge.Engine
	cfg    *config.Config
}

// NewHandler creates the API handler.
func NewHandler(store *session.Store, engine *forge.Engine, cfg *config.Config) *Handler {
	return &Handler{store: store, engine: engine, cfg: cfg}
}

// CreateSession starts a new session from a free-text idea.
// POST /api/sessions
func (h *Handler) CreateSession(c *gin.Context) {
	var req struct {
		Idea string `json:"idea" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Idea) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idea is required"})
		return
	}

	state, err := h.store.Create(c.Request.Context(), strings.TrimSpace(req.Idea))
	if err != nil {
		logging.S().Errorf("failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	c.JSON(http.StatusCreated, state)
}

// GetSession returns the current session state.
// GET /api/sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	state, ok := h.loadSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, state)
}

// Clarify launches the clarification step asynchronously.
// POST /api/sessions/:id/clarify
func (h *Handler) Clarify(c *gin.Context) {
	state, ok := h.loadSession(c)
	if !ok {
		return
	}
	if state.Status == forge.StatusGenerating {
		c.JSON(http.StatusConflict, gin.H{"error": "a forge run is in progress"})
		return
	}

	emit := h.store.Emitter(state.ID)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := forge.Clarify(ctx, h.engine, state, emit); err != nil {
			logging.WithSession(state.ID).Warn("clarification failed", zap.Error(err))
			failed := forge.StatusError
			step := "Error: " + err.Error()
			emit(forge.Update{Status: &failed, CurrentStep: &step})
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "clarifying"})
}

// SubmitAnswers records clarification answers.
// POST /api/sessions/:id/answers
func (h *Handler) SubmitAnswers(c *gin.Context) {
	var req struct {
		Answers map[string]string `json:"answers" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "answers object is required"})
		return
	}

	state, err := h.store.SetAnswers(c.Request.Context(), c.Param("id"), req.Answers)
	if err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// StartForge launches a full forge run asynchronously. One run per
// session at a time.
// POST /api/sessions/:id/forge
func (h *Handler) StartForge(c *gin.Context) {
	state, ok := h.loadSession(c)
	if !ok {
		return
	}

	ctx, err := h.store.StartRun(state.ID, h.cfg.ForgeRunTimeout)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	emit := h.store.Emitter(state.ID)
	go func() {
		defer h.store.FinishRun(state.ID)
		forge.RunForge(ctx, h.engine, state, emit)
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "generating"})
}

// CancelForge aborts an active forge run.
// POST /api/sessions/:id/cancel
func (h *Handler) CancelForge(c *gin.Context) {
	if err := h.store.CancelRun(c.Param("id")); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelling"})
}

// ResetSession returns a session to idle.
// POST /api/sessions/:id/reset
func (h *Handler) ResetSession(c *gin.Context) {
	state, err := h.store.Reset(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// RefineArtifact rewrites one artifact per a user instruction. Runs
// synchronously; a remote failure surfaces here as a 502 instead of
// flipping the session status.
// POST /api/sessions/:id/artifacts/:artifactID/refine
func (h *Handler) RefineArtifact(c *gin.Context) {
	var req struct {
		Instruction string `json:"instruction" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Instruction) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "instruction is required"})
		return
	}

	state, ok := h.loadSession(c)
	if !ok {
		return
	}

	artifactID := c.Param("artifactID")
	var target *forge.Artifact
	for i := range state.Artifacts {
		if state.Artifacts[i].ID == artifactID {
			target = &state.Artifacts[i]
			break
		}
	}
	if target == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "artifact not found"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Minute)
	defer cancel()

	updated, err := forge.Refine(ctx, h.engine, *target, req.Instruction, state, h.store.Emitter(state.ID))
	if err != nil {
		logging.WithSession(state.ID).Warn("refinement failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "refinement failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Health reports liveness.
// GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func (h *Handler) loadSession(c *gin.Context) (forge.SessionState, bool) {
	state, err := h.store.GetState(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.sessionError(c, err)
		return forge.SessionState{}, false
	}
	return state, true
}

func (h *Handler) sessionError(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	logging.S().Errorf("session operation failed: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
