// Package session owns the canonical state of every forge session. The
// pipeline in internal/forge only emits partial updates; this store is
// the single writer that merges them, persists them, and fans them out.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"idea-forge/internal/cache"
	"idea-forge/internal/forge"
	"idea-forge/internal/logging"
	"idea-forge/pkg/models"
)

// Broadcaster receives merged state after every applied update.
type Broadcaster interface {
	BroadcastUpdate(sessionID string, update forge.Update)
	BroadcastState(sessionID string, state forge.SessionState)
}

// ErrRunInProgress is returned when a forge run is already active for a
// session.
var ErrRunInProgress = fmt.Errorf("a forge run is already in progress for this session")

// ErrNoActiveRun is returned when cancelling a session with no run.
var ErrNoActiveRun = fmt.Errorf("no active forge run for this session")

// Store merges pipeline updates into canonical session state. Updates
// for one session are applied under a per-session lock, so each emitted
// update lands atomically and in order.
type Store struct {
	db    *gorm.DB
	cache *cache.Cache
	hub   Broadcaster

	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	running map[string]context.CancelFunc
}

// NewStore creates a session store. hub may be nil (tests).
func NewStore(db *gorm.DB, c *cache.Cache, hub Broadcaster) *Store {
	return &Store{
		db:      db,
		cache:   c,
		hub:     hub,
		locks:   make(map[string]*sync.Mutex),
		running: make(map[string]context.CancelFunc),
	}
}

// SetBroadcaster attaches the websocket hub after construction. The hub
// needs the store to serve initial state, so the two are wired in stages.
func (s *Store) SetBroadcaster(hub Broadcaster) {
	s.hub = hub
}

// Create starts a new idle session for an idea.
func (s *Store) Create(ctx context.Context, idea string) (forge.SessionState, error) {
	state := forge.SessionState{
		ID:        uuid.New().String(),
		Idea:      idea,
		Status:    forge.StatusIdle,
		Questions: []forge.Question{},
		Answers:   map[string]string{},
		Artifacts: []forge.Artifact{},
	}

	var record models.Session
	record.SetState(state)
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return forge.SessionState{}, fmt.Errorf("failed to create session: %w", err)
	}

	s.cacheState(ctx, state)
	logging.WithSession(state.ID).Info("session created")
	return state, nil
}

// GetState loads a session's state, cache first.
func (s *Store) GetState(ctx context.Context, sessionID string) (forge.SessionState, error) {
	var state forge.SessionState
	if err := s.cache.GetJSON(ctx, cache.SessionKey(sessionID), &state); err == nil && state.ID == sessionID {
		return state, nil
	}

	var record models.Session
	if err := s.db.WithContext(ctx).First(&record, "id = ?", sessionID).Error; err != nil {
		return forge.SessionState{}, err
	}
	state = record.State()
	s.cacheState(ctx, state)
	return state, nil
}

// Apply merges one partial update into the session and persists the
// result. This is the only write path for pipeline output; the per-session
// lock keeps concurrent emissions from interleaving.
func (s *Store) Apply(sessionID string, update forge.Update) (forge.SessionState, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var record models.Session
	if err := s.db.WithContext(ctx).First(&record, "id = ?", sessionID).Error; err != nil {
		return forge.SessionState{}, err
	}

	state := record.State()
	mergeUpdate(&state, update)
	record.SetState(state)

	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		return forge.SessionState{}, fmt.Errorf("failed to persist session update: %w", err)
	}

	s.cacheState(ctx, state)
	if s.hub != nil {
		s.hub.BroadcastUpdate(sessionID, update)
	}
	return state, nil
}

// Emitter returns a forge.Emitter bound to one session. Merge failures
// are logged, not surfaced — the pipeline must not stall on storage
// hiccups mid-run.
func (s *Store) Emitter(sessionID string) forge.Emitter {
	return func(update forge.Update) {
		if _, err := s.Apply(sessionID, update); err != nil {
			logging.WithSession(sessionID).Warn("failed to apply update", zap.Error(err))
		}
	}
}

// SetAnswers records clarification answers, merging over existing ones.
func (s *Store) SetAnswers(ctx context.Context, sessionID string, answers map[string]string) (forge.SessionState, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	var record models.Session
	if err := s.db.WithContext(ctx).First(&record, "id = ?", sessionID).Error; err != nil {
		return forge.SessionState{}, err
	}

	state := record.State()
	if state.Answers == nil {
		state.Answers = map[string]string{}
	}
	for id, answer := range answers {
		state.Answers[id] = answer
	}
	record.SetState(state)

	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		return forge.SessionState{}, err
	}
	s.cacheState(ctx, state)
	return state, nil
}

// Reset returns a session to idle, discarding questions, foundations and
// artifacts but keeping the original idea.
func (s *Store) Reset(ctx context.Context, sessionID string) (forge.SessionState, error) {
	if cancel := s.takeRun(sessionID); cancel != nil {
		cancel()
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	var record models.Session
	if err := s.db.WithContext(ctx).First(&record, "id = ?", sessionID).Error; err != nil {
		return forge.SessionState{}, err
	}

	state := forge.SessionState{
		ID:        sessionID,
		Idea:      record.Idea,
		Status:    forge.StatusIdle,
		Questions: []forge.Question{},
		Answers:   map[string]string{},
		Artifacts: []forge.Artifact{},
	}
	record.SetState(state)

	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		return forge.SessionState{}, err
	}
	s.cacheState(ctx, state)
	if s.hub != nil {
		s.hub.BroadcastState(sessionID, state)
	}
	return state, nil
}

// StartRun registers a forge run for the session and returns its context.
// Only one run per session may be active.
func (s *Store) StartRun(sessionID string, timeout time.Duration) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, active := s.running[sessionID]; active {
		return nil, ErrRunInProgress
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	s.running[sessionID] = cancel
	return ctx, nil
}

// FinishRun releases the session's run slot.
func (s *Store) FinishRun(sessionID string) {
	if cancel := s.takeRun(sessionID); cancel != nil {
		cancel()
	}
}

// CancelRun aborts an active run. The pipeline observes the cancelled
// context between steps and emits the terminal error status itself.
func (s *Store) CancelRun(sessionID string) error {
	cancel := s.takeRun(sessionID)
	if cancel == nil {
		return ErrNoActiveRun
	}
	cancel()
	logging.WithSession(sessionID).Info("forge run cancelled")
	return nil
}

func (s *Store) takeRun(sessionID string) context.CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancel := s.running[sessionID]
	delete(s.running, sessionID)
	return cancel
}

func (s *Store) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

func (s *Store) cacheState(ctx context.Context, state forge.SessionState) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, cache.SessionKey(state.ID), state); err != nil {
		logging.WithSession(state.ID).Debug("failed to cache session state", zap.Error(err))
	}
}

// mergeUpdate folds a partial update into state. Nil fields are "no
// change"; slices replace wholesale, matching what the pipeline emits.
func mergeUpdate(state *forge.SessionState, update forge.Update) {
	if update.Status != nil {
		state.Status = *update.Status
	}
	if update.CurrentStep != nil {
		state.CurrentStep = *update.CurrentStep
	}
	if update.Questions != nil {
		state.Questions = update.Questions
	}
	if update.Intent != nil {
		state.Intent = update.Intent
	}
	if update.AppMap != nil {
		state.AppMap = update.AppMap
	}
	if update.Artifacts != nil {
		state.Artifacts = update.Artifacts
	}
}
