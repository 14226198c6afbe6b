package modelserving

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bpointel/docintel/internal/config"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/pkg/errors"
)

// LLMMetrics tracks fallback round-trips; satisfied by
// prometheus.PipelineMetrics.
type LLMMetrics interface {
	RecordLLMRequest(success bool, duration time.Duration)
}

// LLMProvider calls an OpenAI-compatible chat completion endpoint at zero
// temperature and hands the raw message content back as JSON.  It implements
// extraction.LLMClient for the fallback tier.
type LLMProvider struct {
	http    *httpClient
	model   string
	logger  logging.Logger
	metrics LLMMetrics
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// NewLLMProvider builds an LLM client from config.
func NewLLMProvider(cfg config.LLMConfig, logger logging.Logger) (*LLMProvider, error) {
	hc, err := newHTTPClient(cfg.BaseURL, cfg.APIKey, cfg.RequestTimeout, cfg.MaxRetries, logger)
	if err != nil {
		return nil, err
	}
	return &LLMProvider{http: hc, model: cfg.Model, logger: logger}, nil
}

// WithMetrics records each completion round-trip's outcome and duration.
func (p *LLMProvider) WithMetrics(m LLMMetrics) *LLMProvider {
	p.metrics = m
	return p
}

// Extract sends the prompt and returns the model's message content as raw
// JSON.  Temperature is pinned to zero so identical prompts yield identical
// extractions.
func (p *LLMProvider) Extract(ctx context.Context, prompt string) (json.RawMessage, error) {
	req := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	var resp chatResponse
	start := time.Now()
	err := p.http.post(ctx, "/v1/chat/completions", req, &resp)
	if p.metrics != nil {
		p.metrics.RecordLLMRequest(err == nil, time.Since(start))
	}
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New(errors.ErrCodeExternalService, "modelserving: completion has no choices")
	}
	return json.RawMessage(resp.Choices[0].Message.Content), nil
}
