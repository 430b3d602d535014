package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"

	"alfredoptarigan/cv-screener/internal/logger"
)

// LLMClient is the scoring model provider.
type LLMClient interface {
	GenerateText(ctx context.Context, model, prompt string, temperature float32) (string, error)
}

// Embedder turns text into a vector for the talent pool.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ModelCatalog lists the models the provider exposes to this key.
type ModelCatalog interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

type ModelInfo struct {
	Name    string
	Actions []string
}

type GeminiService interface {
	LLMClient
	Embedder
	ModelCatalog
}

type geminiService struct {
	client     *genai.Client
	embedModel string
	log        *logger.Logger
}

const maxEmbedChars = 40000

func NewGeminiService(ctx context.Context, apiKey, embedModel string, log *logger.Logger) (GeminiService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	log.Debug("gemini client ready", "api_key", apiKey, "embed_model", embedModel)

	return &geminiService{
		client:     client,
		embedModel: embedModel,
		log:        log,
	}, nil
}

// GenerateText implements LLMClient. Provider failures come back as *ScoringError.
func (g *geminiService) GenerateText(ctx context.Context, model, prompt string, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  4096,
		ResponseMIMEType: "application/json",
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return "", classifyProviderError(ctx, err)
	}
	if resp == nil {
		return "", newScoringError(KindNoStructuredOutput, "nil response from provider", nil)
	}

	text := resp.Text()
	if text == "" {
		reason := "empty"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
			reason = string(resp.Candidates[0].FinishReason)
		}
		g.log.Warn("gemini returned no text", "model", model, "finish_reason", reason)
		return "", newScoringError(KindNoStructuredOutput, "no text content in response ("+reason+")", nil)
	}

	g.log.Debug("gemini response received", "model", model, "chars", len(text))
	return text, nil
}

// Embed implements Embedder.
func (g *geminiService) Embed(ctx context.Context, text string) ([]float32, error) {
	text = truncateRunes(text, maxEmbedChars)

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return result.Embeddings[0].Values, nil
}

// ListModels implements ModelCatalog.
func (g *geminiService) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	page, err := g.client.Models.List(ctx, &genai.ListModelsConfig{})
	for {
		if errors.Is(err, genai.ErrPageDone) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}
		for _, m := range page.Items {
			if m == nil {
				continue
			}
			models = append(models, ModelInfo{
				Name:    strings.TrimPrefix(m.Name, "models/"),
				Actions: m.SupportedActions,
			})
		}
		page, err = page.Next(ctx)
	}
	return models, nil
}

// classifyProviderError maps a provider failure to the scoring taxonomy.
// Rate limits, 5xx and network errors are transient.
func classifyProviderError(ctx context.Context, err error) error {
	var se *ScoringError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return newScoringError(KindTimeout, "model call timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return newScoringError(KindProvider, "model call cancelled", err)
	}

	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code = apiErrPtr.Code
	}
	if code == 429 || code >= 500 {
		return newScoringError(KindTransientProvider, fmt.Sprintf("provider returned %d", code), err)
	}
	if code != 0 {
		return newScoringError(KindProvider, fmt.Sprintf("provider returned %d", code), err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return newScoringError(KindTimeout, "model call timed out", err)
		}
		return newScoringError(KindTransientProvider, "network error", err)
	}
	return newScoringError(KindProvider, "provider request failed", err)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
