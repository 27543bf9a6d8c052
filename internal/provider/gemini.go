package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"geminibot/internal/domain"
)

const (
	defaultGeminiBase  = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel = "gemini-1.5-pro-002"
	maxResponseBytes   = 8 << 20
)

// Gemini implements domain.Generator against the Gemini generateContent REST API.
// Every call is a single user turn; no conversation history is kept.
type Gemini struct {
	apiKey  string
	apiBase string
	model   string
	policy  retryPolicy
	client  *http.Client
	logger  *slog.Logger
}

type GeminiConfig struct {
	APIKey     string
	APIBase    string
	Model      string
	Timeout    time.Duration // per HTTP attempt
	MaxRetries int
	Logger     *slog.Logger
}

func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultGeminiBase
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Gemini{
		apiKey:  cfg.APIKey,
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		model:   cfg.Model,
		policy:  retryPolicy{maxRetries: cfg.MaxRetries, base: defaultRetryBase},
		client:  newHTTPClient(cfg.Timeout),
		logger:  cfg.Logger,
	}
}

func (g *Gemini) Name() string { return "gemini" }

type geminiRequest struct {
	Contents          []domain.Content  `json:"contents"`
	SystemInstruction *domain.Content   `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	MaxOutputTokens  int    `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	domain.GenerationResponse
	Error *geminiError `json:"error,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type geminiErrorEnvelope struct {
	Error *geminiError `json:"error"`
}

func (g *Gemini) modelURL(model string) string {
	return g.apiBase + "/models/" + url.PathEscape(model)
}

// Generate sends req as one generateContent call.
// Transport and API failures wrap domain.ErrGeneration; unreadable bodies wrap domain.ErrDecode.
func (g *Gemini) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResponse, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}

	body := geminiRequest{
		Contents: []domain.Content{{
			Role:  "user",
			Parts: []domain.Part{{Text: req.Input}},
		}},
		GenerationConfig: &generationConfig{
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if req.Kind == domain.KindText || req.Kind == "" {
		body.GenerationConfig.ResponseMIMEType = "text/plain"
	}
	if req.Instruction != "" {
		body.SystemInstruction = &domain.Content{Parts: []domain.Part{{Text: req.Instruction}}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request: %w", err)
	}

	endpoint := g.modelURL(model) + ":generateContent"
	resp, err := doWithRetry(ctx, g.client, g.policy, func() (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("x-goog-api-key", g.apiKey)
		return r, nil
	}, g.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini request: %w", domain.ErrGeneration, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read gemini response: %w", domain.ErrGeneration, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: gemini returned %d: %s", domain.ErrGeneration, resp.StatusCode, apiMessage(raw))
	}

	var out geminiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("%w: gemini API error (%s): %s", domain.ErrGeneration, out.Error.Status, out.Error.Message)
	}

	g.logger.Debug("gemini response decoded", "model", model, "candidates", len(out.Candidates))
	return &out.GenerationResponse, nil
}

// Healthy checks that the configured model is reachable with the configured key.
func (g *Gemini) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.modelURL(g.model), nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-goog-api-key", g.apiKey)
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gemini not reachable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gemini: invalid API key: %s", apiMessage(raw))
	case http.StatusNotFound:
		return fmt.Errorf("gemini: model %s not found", g.model)
	default:
		return fmt.Errorf("gemini returned %d", resp.StatusCode)
	}
}

// apiMessage extracts error.message from a Gemini error body, falling back to the raw text.
func apiMessage(raw []byte) string {
	var env geminiErrorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil && env.Error.Message != "" {
		return env.Error.Message
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}
