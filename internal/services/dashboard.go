package services

import (
	"sort"

	"alfredoptarigan/cv-screener/internal/models"
)

const (
	topCandidateThreshold = 4.0
	topCandidateLimit     = 10
	histogramBuckets      = 10
)

type Dashboard struct {
	Total          int                            `json:"total"`
	AverageScore   float64                        `json:"average_score"`
	Approvals      int                            `json:"approvals"`
	MostActiveUnit string                         `json:"most_active_unit"`
	ByBand         map[models.Band]int            `json:"by_band"`
	ByUnitAndBand  map[string]map[models.Band]int `json:"by_unit_and_band"`
	TopCandidates  []TopCandidate                 `json:"top_candidates"`
	ScoreHistogram []HistogramBucket              `json:"score_histogram"`
}

type TopCandidate struct {
	Fingerprint   string      `json:"fingerprint"`
	CandidateName string      `json:"candidate_name"`
	Unit          string      `json:"unit"`
	Role          models.Role `json:"role"`
	Score         float64     `json:"score"`
}

// HistogramBucket counts composites in [From, To); the last bucket includes 5.
type HistogramBucket struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Count int     `json:"count"`
}

// BuildDashboard aggregates stored evaluations for the overview screen.
func BuildDashboard(records []models.Evaluation) Dashboard {
	d := Dashboard{
		Total:          len(records),
		ByBand:         make(map[models.Band]int, len(models.Bands)),
		ByUnitAndBand:  make(map[string]map[models.Band]int),
		TopCandidates:  []TopCandidate{},
		ScoreHistogram: make([]HistogramBucket, histogramBuckets),
	}
	width := models.MaxSubScore / histogramBuckets
	for i := range d.ScoreHistogram {
		d.ScoreHistogram[i] = HistogramBucket{From: models.Round2(float64(i) * width), To: models.Round2(float64(i+1) * width)}
	}
	if len(records) == 0 {
		return d
	}

	var sum float64
	unitCounts := make(map[string]int)
	for _, r := range records {
		sum += r.CompositeScore
		if r.CompositeScore >= models.AdvanceThreshold {
			d.Approvals++
		}
		d.ByBand[r.Band]++
		if d.ByUnitAndBand[r.Unit] == nil {
			d.ByUnitAndBand[r.Unit] = make(map[models.Band]int)
		}
		d.ByUnitAndBand[r.Unit][r.Band]++
		unitCounts[r.Unit]++

		bucket := int(r.CompositeScore / width)
		if bucket >= histogramBuckets {
			bucket = histogramBuckets - 1
		}
		if bucket < 0 {
			bucket = 0
		}
		d.ScoreHistogram[bucket].Count++

		if r.CompositeScore >= topCandidateThreshold {
			d.TopCandidates = append(d.TopCandidates, TopCandidate{
				Fingerprint:   r.Fingerprint,
				CandidateName: r.CandidateName,
				Unit:          r.Unit,
				Role:          r.Role,
				Score:         r.CompositeScore,
			})
		}
	}
	d.AverageScore = models.Round2(sum / float64(len(records)))

	// ties go to the alphabetically first unit
	best := -1
	for unit, n := range unitCounts {
		if n > best || (n == best && unit < d.MostActiveUnit) {
			best, d.MostActiveUnit = n, unit
		}
	}

	sort.SliceStable(d.TopCandidates, func(i, j int) bool {
		return d.TopCandidates[i].Score > d.TopCandidates[j].Score
	})
	if len(d.TopCandidates) > topCandidateLimit {
		d.TopCandidates = d.TopCandidates[:topCandidateLimit]
	}
	return d
}
