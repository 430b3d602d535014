package models

import (
	"math"
	"strings"
)

// Role is the target position a batch is screened for.
type Role string

const (
	RoleTeaching           Role = "teaching"
	RoleResearch           Role = "research"
	RoleAcademicManagement Role = "academic_management"
)

// Roles lists the supported roles in display order.
var Roles = []Role{RoleTeaching, RoleResearch, RoleAcademicManagement}

// Label returns the human readable role name.
func (r Role) Label() string {
	switch r {
	case RoleTeaching:
		return "Teaching"
	case RoleResearch:
		return "Research"
	case RoleAcademicManagement:
		return "Academic Management"
	default:
		return string(r)
	}
}

// ParseRole accepts either the role code or its label, case-insensitively.
func ParseRole(s string) (Role, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	for _, r := range Roles {
		if norm == string(r) || norm == strings.ToLower(strings.ReplaceAll(r.Label(), " ", "_")) {
			return r, true
		}
	}
	return "", false
}

// Band is the recommendation derived from the composite score.
type Band string

const (
	BandAdvance         Band = "Advance"
	BandNeedsReferences Band = "Needs References"
	BandNotRecommended  Band = "Not Recommended"
)

// Bands lists every band from best to worst.
var Bands = []Band{BandAdvance, BandNeedsReferences, BandNotRecommended}

const (
	AdvanceThreshold    = 3.75
	ReferencesThreshold = 3.00
)

// BandFor maps a composite score to its band. Both thresholds are inclusive.
func BandFor(composite float64) Band {
	switch {
	case composite >= AdvanceThreshold:
		return BandAdvance
	case composite >= ReferencesThreshold:
		return BandNeedsReferences
	default:
		return BandNotRecommended
	}
}

// FitLevel is the model's qualitative fit judgement.
type FitLevel string

const (
	FitHigh    FitLevel = "High"
	FitMedium  FitLevel = "Medium"
	FitLow     FitLevel = "Low"
	FitUnknown FitLevel = "N/A"
)

// ParseFitLevel normalises English and Spanish fit labels.
func ParseFitLevel(s string) FitLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "alto", "alta":
		return FitHigh
	case "medium", "medio", "media":
		return FitMedium
	case "low", "bajo", "baja":
		return FitLow
	default:
		return FitUnknown
	}
}

// Rubric dimension weights.
const (
	WeightFormation    = 0.35
	WeightExperience   = 0.30
	WeightCompetencies = 0.20
	WeightSoftware     = 0.15
)

const (
	MinSubScore = 0.0
	MaxSubScore = 5.0
)

// SubScores holds the four rubric dimension scores, each in [0, 5].
type SubScores struct {
	Formation    float64 `json:"formation"`
	Experience   float64 `json:"experience"`
	Competencies float64 `json:"competencies"`
	Software     float64 `json:"software"`
}

// Composite returns the weighted score rounded to two decimals.
func (s SubScores) Composite() float64 {
	sum := s.Formation*WeightFormation +
		s.Experience*WeightExperience +
		s.Competencies*WeightCompetencies +
		s.Software*WeightSoftware
	return Round2(sum)
}

// Clamped returns a copy with every score limited to [0, 5].
func (s SubScores) Clamped() SubScores {
	return SubScores{
		Formation:    clamp(s.Formation),
		Experience:   clamp(s.Experience),
		Competencies: clamp(s.Competencies),
		Software:     clamp(s.Software),
	}
}

// Dimension is one row of the rubric table.
type Dimension struct {
	Name   string
	Weight float64
	Score  float64
}

// Weighted is the dimension's contribution to the composite.
func (d Dimension) Weighted() float64 {
	return Round2(d.Score * d.Weight)
}

// Dimensions lists the sub-scores in rubric order.
func (s SubScores) Dimensions() []Dimension {
	return []Dimension{
		{Name: "Formation", Weight: WeightFormation, Score: s.Formation},
		{Name: "Experience", Weight: WeightExperience, Score: s.Experience},
		{Name: "Competencies", Weight: WeightCompetencies, Score: s.Competencies},
		{Name: "Software", Weight: WeightSoftware, Score: s.Software},
	}
}

// ScoreResult is the parsed and aggregated model verdict for one CV.
type ScoreResult struct {
	CandidateName string    `json:"candidate_name"`
	FitLevel      FitLevel  `json:"fit_level"`
	SubScores     SubScores `json:"sub_scores"`
	Composite     float64   `json:"composite"`
	Band          Band      `json:"band"`
	Summary       string    `json:"summary"`
	Gaps          []string  `json:"gaps"`
	Risks         []string  `json:"risks"`
	Strengths     []string  `json:"strengths"`
}

// NewScoreResult computes composite and band from the sub-scores.
func NewScoreResult(name string, fit FitLevel, sub SubScores, summary string, gaps, risks, strengths []string) ScoreResult {
	sub = sub.Clamped()
	composite := sub.Composite()
	return ScoreResult{
		CandidateName: name,
		FitLevel:      fit,
		SubScores:     sub,
		Composite:     composite,
		Band:          BandFor(composite),
		Summary:       summary,
		Gaps:          gaps,
		Risks:         risks,
		Strengths:     strengths,
	}
}

// ScoreRequest is the input of one scoring call.
type ScoreRequest struct {
	Text string
	Role Role
	Unit string
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < MinSubScore {
		return MinSubScore
	}
	if v > MaxSubScore {
		return MaxSubScore
	}
	return v
}
