package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBandFor(t *testing.T) {
	tests := []struct {
		composite float64
		want      Band
	}{
		{5.00, BandAdvance},
		{3.75, BandAdvance},
		{3.749, BandNeedsReferences},
		{3.00, BandNeedsReferences},
		{2.999, BandNotRecommended},
		{0, BandNotRecommended},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BandFor(tt.composite), "composite %.3f", tt.composite)
	}
}

func TestComposite(t *testing.T) {
	tests := []struct {
		name string
		sub  SubScores
		want float64
	}{
		{"teaching scenario", SubScores{4, 3, 5, 2}, 3.60},
		{"all max", SubScores{5, 5, 5, 5}, 5.00},
		{"all zero", SubScores{}, 0},
		{"rounds to two decimals", SubScores{3.3, 3.3, 3.3, 3.3}, 3.30},
		{"exact advance boundary", SubScores{3.75, 3.75, 3.75, 3.75}, 3.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sub.Composite())
			// deterministic across calls
			assert.Equal(t, tt.sub.Composite(), tt.sub.Composite())
		})
	}
}

func TestCompositeAcrossScoreGrid(t *testing.T) {
	var steps []float64
	for v := 0.0; v <= MaxSubScore; v += 0.5 {
		steps = append(steps, v)
	}

	for _, f := range steps {
		for _, e := range steps {
			for _, c := range steps {
				for _, s := range steps {
					sub := SubScores{Formation: f, Experience: e, Competencies: c, Software: s}
					want := Round2(0.35*f + 0.30*e + 0.20*c + 0.15*s)
					got := sub.Composite()
					if !assert.Equal(t, want, got, "sub-scores %v", sub) {
						return
					}
					assert.GreaterOrEqual(t, got, MinSubScore)
					assert.LessOrEqual(t, got, MaxSubScore)

					r := NewScoreResult("", FitHigh, sub, "", nil, nil, nil)
					assert.Equal(t, got, r.Composite)
					assert.Equal(t, BandFor(got), r.Band)
				}
			}
		}
	}
}

func TestNewScoreResultClampsAndBands(t *testing.T) {
	r := NewScoreResult("Ana", FitHigh, SubScores{Formation: 7, Experience: -2, Competencies: 5, Software: 5}, "", nil, nil, nil)

	assert.Equal(t, SubScores{Formation: 5, Experience: 0, Competencies: 5, Software: 5}, r.SubScores)
	assert.Equal(t, 3.50, r.Composite)
	assert.Equal(t, BandNeedsReferences, r.Band)
}

func TestParseFitLevel(t *testing.T) {
	assert.Equal(t, FitHigh, ParseFitLevel("Alto"))
	assert.Equal(t, FitMedium, ParseFitLevel(" medium "))
	assert.Equal(t, FitLow, ParseFitLevel("BAJO"))
	assert.Equal(t, FitUnknown, ParseFitLevel("Alto/Medio"))
	assert.Equal(t, FitUnknown, ParseFitLevel(""))
}

func TestParseRole(t *testing.T) {
	for input, want := range map[string]Role{
		"teaching":            RoleTeaching,
		"Research":            RoleResearch,
		"Academic Management": RoleAcademicManagement,
		"academic-management": RoleAcademicManagement,
	} {
		got, ok := ParseRole(input)
		assert.True(t, ok, input)
		assert.Equal(t, want, got, input)
	}
	_, ok := ParseRole("janitor")
	assert.False(t, ok)
}

func TestRunTotals(t *testing.T) {
	var totals RunTotals
	for _, s := range []FileState{StateScored, StateScored, StateDuplicate, StateUnreadable, StateScoringFailed, StateStoreFailed} {
		totals.Add(FileStatus{State: s})
	}
	assert.Equal(t, RunTotals{Total: 6, Processed: 2, Duplicates: 1, Unreadable: 1, Errors: 2}, totals)
	assert.Equal(t, 2, totals.Skipped())
	assert.False(t, StatePending.Terminal())
	assert.True(t, StateDuplicate.Terminal())
}
