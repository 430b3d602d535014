package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"alfredoptarigan/cv-screener/internal/logger"
	"alfredoptarigan/cv-screener/internal/models"
)

// ScoreOutcome is a successful scoring call.
type ScoreOutcome struct {
	Result  models.ScoreResult
	RawJSON string
	Model   string
}

type Scorer interface {
	Score(ctx context.Context, req models.ScoreRequest) (*ScoreOutcome, error)
}

type ScorerConfig struct {
	MaxChars          int
	Timeout           time.Duration
	MaxAttempts       int
	RetryInitialDelay time.Duration
	Temperature       float32
}

type scorer struct {
	llm      LLMClient
	selector ModelSelector
	prompts  *PromptBuilder
	cfg      ScorerConfig
	log      *logger.Logger
}

func NewScorer(llm LLMClient, selector ModelSelector, cfg ScorerConfig, log *logger.Logger) Scorer {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &scorer{
		llm:      llm,
		selector: selector,
		prompts:  NewPromptBuilder(cfg.MaxChars),
		cfg:      cfg,
		log:      log,
	}
}

// Score implements Scorer.
func (s *scorer) Score(ctx context.Context, req models.ScoreRequest) (*ScoreOutcome, error) {
	prompt, err := s.prompts.BuildScoringPrompt(req)
	if err != nil {
		return nil, err
	}

	model, err := s.selector.Select(ctx)
	if err != nil {
		return nil, newScoringError(KindProvider, "failed to select model", err)
	}

	raw, err := s.generate(ctx, model, prompt)
	if err != nil {
		return nil, err
	}

	result, rawJSON, err := ParseScoreResponse(raw)
	if err != nil {
		s.log.Warn("unparseable model response", "model", model, "kind", ScoringErrorKindOf(err), "chars", len(raw))
		return nil, err
	}
	return &ScoreOutcome{Result: result, RawJSON: rawJSON, Model: model}, nil
}

// generate calls the model with a per-attempt timeout and retries transient
// provider failures with jittered exponential backoff.
func (s *scorer) generate(ctx context.Context, model, prompt string) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.RetryInitialDelay
	b.RandomizationFactor = 0.5

	attempt := 0
	op := func() (string, error) {
		attempt++
		callCtx, cancel := s.callContext(ctx)
		defer cancel()

		text, err := s.llm.GenerateText(callCtx, model, prompt, s.cfg.Temperature)
		if err == nil {
			return text, nil
		}
		err = classifyProviderError(callCtx, err)

		var se *ScoringError
		if ctx.Err() == nil && errors.As(err, &se) && se.Retryable() {
			return "", err
		}
		return "", backoff.Permanent(err)
	}

	text, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(s.cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.log.Warn("model call failed, retrying", "model", model, "attempt", attempt, "retry_in", next, "error", err)
		}),
	)
	if err != nil {
		return "", classifyProviderError(ctx, err)
	}
	return text, nil
}

func (s *scorer) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// ParseScoreResponse turns raw model output into a ScoreResult. It returns
// the JSON text that was actually decoded.
func ParseScoreResponse(raw string) (models.ScoreResult, string, error) {
	obj, ok := extractJSONObject(raw)
	if !ok {
		return models.ScoreResult{}, "", newScoringError(KindNoStructuredOutput, "response contains no JSON object", nil)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(obj), &data); err != nil {
		repaired := RepairJSON(obj)
		if rerr := json.Unmarshal([]byte(repaired), &data); rerr != nil {
			return models.ScoreResult{}, "", newScoringError(KindMalformedOutput, "response is not valid JSON", err)
		}
		obj = repaired
	}

	sub := models.SubScores{
		Formation:    coerceScore(lookup(data, "n_form", "formation", "formacion", "formación")),
		Experience:   coerceScore(lookup(data, "n_exp", "experience", "experiencia")),
		Competencies: coerceScore(lookup(data, "n_comp", "competencies", "competencias")),
		Software:     coerceScore(lookup(data, "n_soft", "software")),
	}

	name := coerceString(lookup(data, "nombre", "name", "candidate_name"))
	if name == "" {
		name = "Unnamed candidate"
	}
	summary := coerceString(lookup(data, "comentarios", "resumen", "summary", "comments"))
	if summary == "" {
		summary = coerceString(lookup(data, "razon", "reason"))
	}

	result := models.NewScoreResult(
		name,
		models.ParseFitLevel(coerceString(lookup(data, "ajuste", "fit", "fit_level"))),
		sub,
		summary,
		coerceList(lookup(data, "brechas", "gaps")),
		coerceList(lookup(data, "riesgos", "risks")),
		coerceList(lookup(data, "fortalezas", "strengths")),
	)
	return result, obj, nil
}

func lookup(data map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := data[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// coerceScore never fails: anything that is not a number becomes 0.
func coerceScore(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		return parseScoreString(n)
	default:
		return 0
	}
}

func parseScoreString(s string) float64 {
	s = strings.TrimSpace(s)
	if num, den, ok := strings.Cut(s, "/"); ok {
		n := parseScoreString(num)
		d := parseScoreString(den)
		if d <= 0 {
			return 0
		}
		return n * models.MaxSubScore / d
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}

func coerceString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

func coerceList(v any) []string {
	out := []string{}
	switch items := v.(type) {
	case []any:
		for _, item := range items {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, line := range strings.Split(items, "\n") {
			line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
			if line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}
