package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"idea-forge/internal/metrics"
)

// GeminiClient implements the Google Gemini API client
type GeminiClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Gemini API request/response structures
type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature      float32 `json:"temperature,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
			Role string `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// NewGeminiClient creates a new Gemini API client
func NewGeminiClient(apiKey string) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		baseURL: "https://generativelanguage.googleapis.com/v1beta/models",
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// Generate implements the Client interface for Gemini
func (g *GeminiClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	startTime := time.Now()

	genConfig := &geminiGenConfig{
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxTokens,
	}
	if req.JSONMode {
		genConfig.ResponseMimeType = "application/json"
	}

	geminiReq := &geminiRequest{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: req.Prompt}},
			},
		},
		GenerationConfig: genConfig,
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.baseURL, req.Model, g.apiKey)

	resp, err := g.makeRequest(ctx, url, geminiReq)
	if err != nil {
		metrics.Get().ObserveLLMRequest(req.Model, "error", time.Since(startTime))
		return nil, err
	}

	content := ""
	if len(resp.Candidates) > 0 && len(resp.Candidates[0].Content.Parts) > 0 {
		content = resp.Candidates[0].Content.Parts[0].Text
	}

	m := metrics.Get()
	m.ObserveLLMRequest(req.Model, "success", time.Since(startTime))
	m.LLMTokensUsed.WithLabelValues(req.Model, "prompt").Add(float64(resp.UsageMetadata.PromptTokenCount))
	m.LLMTokensUsed.WithLabelValues(req.Model, "completion").Add(float64(resp.UsageMetadata.CandidatesTokenCount))

	return &Response{
		Model:   req.Model,
		Content: content,
		Usage: &Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
		Duration:  time.Since(startTime),
		CreatedAt: time.Now(),
	}, nil
}

// makeRequest sends an HTTP request to the Gemini API
func (g *GeminiClient) makeRequest(ctx context.Context, url string, req *geminiRequest) (*geminiResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// Parse specific error types so the retry layer can tell
		// rate limiting apart from other failures
		switch resp.StatusCode {
		case 429:
			return nil, fmt.Errorf("RATE_LIMIT: Gemini API rate limit exceeded. Please wait before retrying")
		case 403:
			if bytes.Contains(body, []byte("quota")) || bytes.Contains(body, []byte("QUOTA")) {
				return nil, fmt.Errorf("QUOTA_EXCEEDED: Gemini API quota exhausted")
			}
			return nil, fmt.Errorf("FORBIDDEN: Gemini API access denied - check API key permissions")
		case 401:
			return nil, fmt.Errorf("UNAUTHORIZED: Invalid Gemini API key")
		case 500, 502, 503, 504:
			return nil, fmt.Errorf("SERVICE_ERROR: Gemini service temporarily unavailable (status %d)", resp.StatusCode)
		default:
			return nil, fmt.Errorf("API_ERROR: Gemini request failed with status %d: %s", resp.StatusCode, string(body))
		}
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if geminiResp.Error != nil {
		return nil, fmt.Errorf("Gemini API error: %s", geminiResp.Error.Message)
	}

	return &geminiResp, nil
}

// Health checks if the Gemini API is accessible
func (g *GeminiClient) Health(ctx context.Context) error {
	testReq := &geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: "Hello"}}},
		},
		GenerationConfig: &geminiGenConfig{MaxOutputTokens: 5},
	}

	url := fmt.Sprintf("%s/gemini-2.0-flash:generateContent?key=%s", g.baseURL, g.apiKey)
	_, err := g.makeRequest(ctx, url, testReq)
	return err
}

// GetProvider returns the provider identifier
func (g *GeminiClient) GetProvider() Provider {
	return ProviderGemini
}
