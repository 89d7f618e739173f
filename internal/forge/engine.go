package forge

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"idea-forge/internal/ai"
)

// defaultPacingInterval spaces expert calls when no limiter is supplied.
const defaultPacingInterval = 800 * time.Millisecond

// Engine runs pipeline steps against a text-generation client. One engine
// serves all sessions; per-run state lives on the stack of each call.
type Engine struct {
	client  ai.Client
	retrier *ai.Retrier
	limiter *rate.Limiter
	roles   []ExpertRole

	flashModel string // per-step generation
	proModel   string // prototype synthesis
}

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	FlashModel string
	ProModel   string
	Retry      ai.RetryConfig
	// Limiter paces expert calls within a run to respect the shared
	// provider quota. Tests pass rate.NewLimiter(rate.Inf, 0).
	Limiter *rate.Limiter
	// Roles overrides the expert sequence. Defaults to DefaultRoles.
	Roles []ExpertRole
}

// NewEngine creates a pipeline engine around the given client.
func NewEngine(client ai.Client, opts Options) *Engine {
	if opts.FlashModel == "" {
		opts.FlashModel = "gemini-2.0-flash"
	}
	if opts.ProModel == "" {
		opts.ProModel = opts.FlashModel
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Every(defaultPacingInterval), 1)
	}
	if opts.Roles == nil {
		opts.Roles = DefaultRoles
	}
	return &Engine{
		client:     client,
		retrier:    ai.NewRetrier(opts.Retry),
		limiter:    opts.Limiter,
		roles:      opts.Roles,
		flashModel: opts.FlashModel,
		proModel:   opts.ProModel,
	}
}

// generate issues one retried remote call and returns the raw text output.
func (e *Engine) generate(ctx context.Context, model, prompt string, jsonMode bool) (string, error) {
	resp, err := e.retrier.Do(ctx, func(ctx context.Context) (*ai.Response, error) {
		return e.client.Generate(ctx, &ai.Request{
			Model:    model,
			Prompt:   prompt,
			JSONMode: jsonMode,
		})
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
