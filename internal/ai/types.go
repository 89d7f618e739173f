package ai

import (
	"context"
	"time"
)

// Provider identifies a remote text-generation backend
type Provider string

const (
	ProviderGemini Provider = "gemini"
)

// Request represents a single text-generation call
type Request struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	JSONMode    bool    `json:"json_mode,omitempty"` // hint the model to answer with JSON
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
}

// Response represents the raw result of a text-generation call.
// Content is unvalidated model output; callers parse it defensively.
type Response struct {
	Model     string        `json:"model"`
	Content   string        `json:"content"`
	Usage     *Usage        `json:"usage,omitempty"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// Usage represents token usage for a request
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Client is the interface every text-generation backend implements
type Client interface {
	// Generate issues one generation call and returns the raw text result
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Health checks whether the backend is reachable
	Health(ctx context.Context) error

	// GetProvider returns the backend identifier
	GetProvider() Provider
}
