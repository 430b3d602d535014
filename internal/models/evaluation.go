package models

import (
	"time"

	"gorm.io/datatypes"
)

// Evaluation is the persisted outcome of scoring one unique file. The
// fingerprint of the raw upload bytes is the only key.
type Evaluation struct {
	Fingerprint    string                      `gorm:"type:varchar(64);primaryKey" json:"fingerprint"`
	EvaluatedAt    time.Time                   `gorm:"index" json:"evaluated_at"`
	BatchLabel     string                      `gorm:"type:text" json:"batch_label"`
	Filename       string                      `gorm:"type:text" json:"filename"`
	CandidateName  string                      `gorm:"type:text" json:"candidate_name"`
	Unit           string                      `gorm:"type:text;index" json:"unit"`
	Role           Role                        `gorm:"type:text;index" json:"role"`
	CompositeScore float64                     `json:"composite_score"`
	Band           Band                        `gorm:"type:text;index" json:"band"`
	FitLevel       FitLevel                    `gorm:"type:text" json:"fit_level"`
	Summary        string                      `gorm:"type:text" json:"summary"`
	Formation      float64                     `json:"formation"`
	Experience     float64                     `json:"experience"`
	Competencies   float64                     `json:"competencies"`
	Software       float64                     `json:"software"`
	Gaps           datatypes.JSONSlice[string] `json:"gaps"`
	Risks          datatypes.JSONSlice[string] `json:"risks"`
	Strengths      datatypes.JSONSlice[string] `json:"strengths"`
	RawJSON        string                      `gorm:"type:text" json:"-"`
	ReportPDF      []byte                      `json:"-"`
}

func (Evaluation) TableName() string {
	return "evaluations"
}

// HasReport reports whether a rendered PDF is stored with the record.
func (e *Evaluation) HasReport() bool {
	return len(e.ReportPDF) > 0
}

// ScoreResult rebuilds the score view of a stored record.
func (e *Evaluation) ScoreResult() ScoreResult {
	return ScoreResult{
		CandidateName: e.CandidateName,
		FitLevel:      e.FitLevel,
		SubScores: SubScores{
			Formation:    e.Formation,
			Experience:   e.Experience,
			Competencies: e.Competencies,
			Software:     e.Software,
		},
		Composite: e.CompositeScore,
		Band:      e.Band,
		Summary:   e.Summary,
		Gaps:      []string(e.Gaps),
		Risks:     []string(e.Risks),
		Strengths: []string(e.Strengths),
	}
}
