package services

import (
	"fmt"
	"strings"

	"alfredoptarigan/cv-screener/internal/models"
)

type PromptBuilder struct {
	maxChars int
}

func NewPromptBuilder(maxChars int) *PromptBuilder {
	return &PromptBuilder{maxChars: maxChars}
}

// BuildScoringPrompt creates the rubric prompt for one CV. The CV text is
// truncated to the configured number of characters.
func (pb *PromptBuilder) BuildScoringPrompt(req models.ScoreRequest) (string, error) {
	rubric, ok := RubricFor(req.Role)
	if !ok {
		return "", &ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q", req.Role)}
	}

	var criteria strings.Builder
	for i, c := range rubric.Criteria {
		fmt.Fprintf(&criteria, "%d. %s (weight %.0f%%): 5 = %s; 3-4 = %s; 1-2 = %s.\n",
			i+1, c.Dimension, c.Weight*100, c.High, c.Mid, c.Low)
	}

	cvText := req.Text
	if pb.maxChars > 0 {
		cvText = truncateRunes(cvText, pb.maxChars)
	}

	return fmt.Sprintf(`You are an expert academic recruiter. Analyse this CV (it may be written in English or Spanish) for the %s position in the %s unit.

SCORING RUBRIC (each dimension scored 0 to 5):
%s
TECHNICAL INSTRUCTIONS (CRITICAL):
- Reply ONLY with one valid JSON object.
- Do NOT use markdown code fences.
- Do NOT write any text before or after the JSON.
- If a value contains double quotes, replace them with single quotes.

REQUIRED JSON STRUCTURE:
{
  "nombre": "First and last name of the candidate",
  "ajuste": "Alto/Medio/Bajo",
  "razon": "Short justification of the fit",
  "n_form": 0.0,
  "n_exp": 0.0,
  "n_comp": 0.0,
  "n_soft": 0.0,
  "comentarios": "Summary of strengths and weaknesses.",
  "fortalezas": ["strength"],
  "brechas": ["gap"],
  "riesgos": ["risk"]
}

CV TO ANALYSE:
%s`,
		req.Role.Label(), req.Unit, criteria.String(), cvText), nil
}
