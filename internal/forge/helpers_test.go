package forge

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"idea-forge/internal/ai"
)

// fakeClient routes prompts to canned responses. rules are checked in
// order; the first substring match wins.
type fakeClient struct {
	mu    sync.Mutex
	calls []string
	rules []fakeRule
}

type fakeRule struct {
	match   string
	content string
	err     error
}

func (f *fakeClient) on(match, content string) *fakeClient {
	f.rules = append(f.rules, fakeRule{match: match, content: content})
	return f
}

func (f *fakeClient) failOn(match string, err error) *fakeClient {
	f.rules = append(f.rules, fakeRule{match: match, err: err})
	return f
}

func (f *fakeClient) Generate(ctx context.Context, req *ai.Request) (*ai.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, req.Prompt)
	f.mu.Unlock()

	for _, rule := range f.rules {
		if strings.Contains(req.Prompt, rule.match) {
			if rule.err != nil {
				return nil, rule.err
			}
			return &ai.Response{Model: req.Model, Content: rule.content}, nil
		}
	}
	return &ai.Response{Model: req.Model, Content: "{}"}, nil
}

func (f *fakeClient) Health(ctx context.Context) error { return nil }

func (f *fakeClient) GetProvider() ai.Provider { return "fake" }

// capture is an in-memory emitter recording every update in order.
type capture struct {
	mu      sync.Mutex
	updates []Update
}

func (c *capture) emit(u Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, u)
}

func (c *capture) all() []Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Update, len(c.updates))
	copy(out, c.updates)
	return out
}

// finalStatus returns the last emitted status, or "".
func (c *capture) finalStatus() Status {
	updates := c.all()
	for i := len(updates) - 1; i >= 0; i-- {
		if updates[i].Status != nil {
			return *updates[i].Status
		}
	}
	return ""
}

// finalArtifacts returns the last emitted artifact sequence, or nil.
func (c *capture) finalArtifacts() []Artifact {
	updates := c.all()
	for i := len(updates) - 1; i >= 0; i-- {
		if updates[i].Artifacts != nil {
			return updates[i].Artifacts
		}
	}
	return nil
}

// newTestEngine builds an engine with no pacing and no retry sleeps, so
// tests never wait on real time.
func newTestEngine(client ai.Client, roles []ExpertRole, maxAttempts int) *Engine {
	return NewEngine(client, Options{
		FlashModel: "fake-flash",
		ProModel:   "fake-pro",
		Roles:      roles,
		Limiter:    rate.NewLimiter(rate.Inf, 0),
		Retry: ai.RetryConfig{
			MaxAttempts: maxAttempts,
			Sleep:       func(ctx context.Context, d time.Duration) error { return nil },
		},
	})
}
