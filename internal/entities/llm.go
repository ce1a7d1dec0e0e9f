// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package entities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"lexscan/internal/document"
	"lexscan/internal/metrics"
	"lexscan/internal/resilience"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const extractionPrompt = `You extract legal entities from documents.
Return only a JSON array. Each element is an object with the fields
"type" (one of citation, statute, court, entity, date, monetary),
"text" (the exact span from the document) and "confidence" (0 to 1).
Return [] when there are none.`

// defaultServiceConfidence applies when the model omits a confidence
const defaultServiceConfidence = 0.7

// LLMConfig configures an LLMService
type LLMConfig struct {
	BaseURL           string
	APIKey            string
	Model             string
	RequestsPerSecond float64
	Burst             int
	Retry             resilience.RetryConfig
}

// LLMService extracts entities with an OpenAI-compatible chat completion
// endpoint. Calls are rate limited, retried and guarded by a circuit breaker.
type LLMService struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	log     zerolog.Logger
}

// NewLLMService creates an LLMService
func NewLLMService(cfg LLMConfig, log zerolog.Logger) *LLMService {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	retry := cfg.Retry
	if retry.Multiplier == 0 {
		retry = resilience.DefaultRetryConfig()
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &LLMService{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		limiter: rate.NewLimiter(limit, burst),
		retry:   retry,
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("entity-service")),
		log:     log,
	}
}

type extractedEntity struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Extract implements EntityService
func (s *LLMService) Extract(ctx context.Context, text string) ([]document.Entity, error) {
	cfg := s.retry
	cfg.OnRetry = func(attempt int, err error) {
		s.log.Warn().Err(err).Int("attempt", attempt).Msg("retrying entity extraction")
	}

	content, err := resilience.RetryWithResult(ctx, cfg, func(ctx context.Context) (string, error) {
		var out string
		err := s.breaker.Execute(ctx, func(ctx context.Context) error {
			var callErr error
			out, callErr = s.complete(ctx, text)
			return callErr
		})
		return out, err
	})
	if err != nil {
		metrics.IncEntityServiceErrors()
		return nil, err
	}

	entities, err := parseEntities(content)
	if err != nil {
		metrics.IncEntityServiceErrors()
		return nil, err
	}
	return entities, nil
}

func (s *LLMService) complete(ctx context.Context, text string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", resilience.NewPermanentError("rate limiter wait aborted", err)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", resilience.NewPermanentError("entity service returned no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		ce := resilience.ClassifyHTTPStatus("entity service", apiErr.HTTPStatusCode)
		ce.Original = err
		return ce
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		ce := resilience.ClassifyHTTPStatus("entity service", reqErr.HTTPStatusCode)
		ce.Original = err
		return ce
	}
	return err
}

// parseEntities decodes the model output, tolerating a surrounding code fence
func parseEntities(content string) ([]document.Entity, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	var raw []extractedEntity
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, resilience.NewPermanentError(fmt.Sprintf("malformed entity service output: %v", err), err)
	}

	out := make([]document.Entity, 0, len(raw))
	for _, r := range raw {
		if r.Text == "" || r.Type == "" {
			continue
		}
		conf := r.Confidence
		if conf <= 0 || conf > 1 {
			conf = defaultServiceConfidence
		}
		out = append(out, document.Entity{
			EntityType: strings.ToLower(r.Type),
			Text:       r.Text,
			Confidence: conf,
			SourceType: document.SourceOCR,
		})
	}
	return out, nil
}
