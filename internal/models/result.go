package models

type RunResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type RunResultResponse struct {
	ID           string       `json:"id"`
	Status       string       `json:"status"`
	Batches      []BatchSpec  `json:"batches"`
	Totals       *RunTotals   `json:"totals,omitempty"`
	Skipped      int          `json:"skipped"`
	Files        []FileStatus `json:"files,omitempty"`
	ErrorMessage *string      `json:"error_message,omitempty"`
}

type EvaluationSummary struct {
	Fingerprint    string   `json:"fingerprint"`
	EvaluatedAt    string   `json:"evaluated_at"`
	BatchLabel     string   `json:"batch_label"`
	Filename       string   `json:"filename"`
	CandidateName  string   `json:"candidate_name"`
	Unit           string   `json:"unit"`
	Role           Role     `json:"role"`
	CompositeScore float64  `json:"composite_score"`
	Band           Band     `json:"band"`
	FitLevel       FitLevel `json:"fit_level"`
	Summary        string   `json:"summary"`
	HasReport      bool     `json:"has_report"`
}

type CatalogResponse struct {
	Roles []RoleOption `json:"roles"`
	Units []string     `json:"units"`
	Bands []Band       `json:"bands"`
}

type RoleOption struct {
	Code  Role   `json:"code"`
	Label string `json:"label"`
}

type SimilarCandidate struct {
	Fingerprint   string  `json:"fingerprint"`
	CandidateName string  `json:"candidate_name"`
	Unit          string  `json:"unit"`
	Role          string  `json:"role"`
	Score         float32 `json:"similarity"`
}
