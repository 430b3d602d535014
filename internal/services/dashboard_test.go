package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"alfredoptarigan/cv-screener/internal/models"
)

func TestBuildDashboardEmpty(t *testing.T) {
	d := BuildDashboard(nil)
	assert.Zero(t, d.Total)
	assert.Zero(t, d.AverageScore)
	assert.Empty(t, d.MostActiveUnit)
	assert.Len(t, d.ScoreHistogram, 10)
	assert.NotNil(t, d.TopCandidates)
}

func TestBuildDashboard(t *testing.T) {
	var records []models.Evaluation
	add := func(unit string, score float64) {
		records = append(records, models.Evaluation{
			Fingerprint:    fmt.Sprintf("fp%02d", len(records)),
			CandidateName:  fmt.Sprintf("Candidate %d", len(records)),
			Unit:           unit,
			CompositeScore: score,
			Band:           models.BandFor(score),
		})
	}
	add("Engineering", 5.0)
	add("Engineering", 3.75)
	add("Engineering", 2.0)
	add("Economics", 4.2)
	add("Economics", 3.0)
	add("Education", 0)

	d := BuildDashboard(records)

	assert.Equal(t, 6, d.Total)
	assert.Equal(t, 2.99, d.AverageScore)
	assert.Equal(t, 3, d.Approvals)
	assert.Equal(t, "Engineering", d.MostActiveUnit)
	assert.Equal(t, 3, d.ByBand[models.BandAdvance])
	assert.Equal(t, 1, d.ByBand[models.BandNeedsReferences])
	assert.Equal(t, 2, d.ByBand[models.BandNotRecommended])
	assert.Equal(t, 1, d.ByUnitAndBand["Economics"][models.BandAdvance])

	if assert.Len(t, d.TopCandidates, 2) {
		assert.Equal(t, 5.0, d.TopCandidates[0].Score)
		assert.Equal(t, 4.2, d.TopCandidates[1].Score)
	}

	assert.Equal(t, 1, d.ScoreHistogram[0].Count)
	assert.Equal(t, 1, d.ScoreHistogram[9].Count, "5.0 lands in the last bucket")
	assert.Equal(t, 1, d.ScoreHistogram[8].Count, "4.2")
	assert.Equal(t, 1, d.ScoreHistogram[7].Count, "3.75")
	assert.Equal(t, 1, d.ScoreHistogram[6].Count, "3.0")
	assert.Equal(t, 1, d.ScoreHistogram[4].Count, "2.0")
}

func TestBuildDashboardTopCandidatesCapped(t *testing.T) {
	var records []models.Evaluation
	for i := 0; i < 15; i++ {
		records = append(records, models.Evaluation{CompositeScore: 4.0 + float64(i)/100, Unit: "Education"})
	}
	d := BuildDashboard(records)
	assert.Len(t, d.TopCandidates, 10)
	assert.InDelta(t, 4.14, d.TopCandidates[0].Score, 1e-9)
}
