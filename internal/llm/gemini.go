package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"mailpilot/config"
	"mailpilot/pkg/circuitbreaker"
	"mailpilot/pkg/metrics"
)

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

// GeminiClient calls the Gemini generateContent REST API. All calls go
// through a circuit breaker; an open breaker surfaces as ErrUnavailable so
// callers degrade the same way as for any other model failure.
type GeminiClient struct {
	apiKey  string
	model   string
	timeout time.Duration
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewGeminiClient(cfg config.GeminiConfig, logger *zap.Logger) *GeminiClient {
	return &GeminiClient{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		client:  &http.Client{},
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig()),
		logger:  logger,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"system_instruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete implements Completer.
func (g *GeminiClient) Complete(ctx context.Context, system, prompt string, opts Options) (string, error) {
	start := time.Now()

	var text string
	err := g.breaker.Execute(func() error {
		var callErr error
		text, callErr = g.call(ctx, system, prompt, opts)
		return callErr
	})

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordModelCallLatency("complete", status, time.Since(start))

	if errors.Is(err, circuitbreaker.ErrOpen) {
		g.logger.Warn("model breaker open, rejecting call")
		return "", fmt.Errorf("%w: circuit open", ErrUnavailable)
	}
	return text, err
}

func (g *GeminiClient) call(ctx context.Context, system, prompt string, opts Options) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: opts.MaxTokens,
			Temperature:     opts.Temperature,
		},
	}
	if system != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf(geminiEndpoint, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		var parsed geminiResponse
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Error != nil {
			return "", fmt.Errorf("%w: api error %d: %s", ErrUnavailable, parsed.Error.Code, parsed.Error.Message)
		}
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrBadResponse, err)
	}
	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrBadResponse)
	}

	candidate := parsed.Candidates[0]
	if len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty candidate (finish: %s)", ErrBadResponse, candidate.FinishReason)
	}

	text := strings.TrimSpace(candidate.Content.Parts[0].Text)
	if text == "" {
		return "", fmt.Errorf("%w: empty text", ErrBadResponse)
	}
	return text, nil
}
