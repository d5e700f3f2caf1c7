package risk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magerisk/pkg/models"
)

func TestInherentRisk_Formula(t *testing.T) {
	tests := []struct {
		likelihood float64
		impact     float64
		expected   float64
	}{
		{1, 1, 0.1},
		{7, 8, 5.6},
		{10, 10, 10},
		{5, 5, 2.5},
	}

	for _, tc := range tests {
		got, err := InherentRisk(tc.likelihood, tc.impact)
		require.NoError(t, err)
		assert.InDelta(t, tc.expected, got, 1e-9)
	}
}

func TestInherentRisk_Monotonic(t *testing.T) {
	// Non-decreasing in each argument over the whole [1,10] grid.
	for l := 1.0; l < 10; l++ {
		for i := 1.0; i < 10; i++ {
			base, err := InherentRisk(l, i)
			require.NoError(t, err)
			upL, err := InherentRisk(l+1, i)
			require.NoError(t, err)
			upI, err := InherentRisk(l, i+1)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, upL, base)
			assert.GreaterOrEqual(t, upI, base)
		}
	}
}

func TestInherentRisk_RejectsOutOfRange(t *testing.T) {
	for _, pair := range [][2]float64{{0.5, 5}, {11, 5}, {5, 0}, {5, 10.1}} {
		_, err := InherentRisk(pair[0], pair[1])
		assert.True(t, errors.Is(err, models.ErrInvalidRange), "likelihood=%g impact=%g", pair[0], pair[1])
	}
}

func TestCombineEffectiveness(t *testing.T) {
	combined, err := CombineEffectiveness([]float64{0.6, 0.4})
	require.NoError(t, err)
	assert.InDelta(t, 0.76, combined, 1e-9)

	combined, err = CombineEffectiveness(nil)
	require.NoError(t, err)
	assert.Zero(t, combined)

	combined, err = CombineEffectiveness([]float64{1, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 1, combined, 1e-9)
}

func TestCombineEffectiveness_BoundedByMaxAndOne(t *testing.T) {
	lists := [][]float64{
		{0.3},
		{0.5, 0.5},
		{0.9, 0.9, 0.9},
		{0.1, 0.2, 0.3, 0.4},
	}
	for _, list := range lists {
		combined, err := CombineEffectiveness(list)
		require.NoError(t, err)

		maxE := 0.0
		for _, e := range list {
			if e > maxE {
				maxE = e
			}
		}
		assert.Less(t, combined, 1.0)
		assert.Greater(t, combined, maxE*(1-1e-12))
		if len(list) > 1 {
			assert.Greater(t, combined, maxE)
		}
	}
}

func TestCombineEffectiveness_RejectsOutOfRange(t *testing.T) {
	_, err := CombineEffectiveness([]float64{0.5, 1.2})
	assert.True(t, errors.Is(err, models.ErrInvalidRange))

	_, err = CombineEffectiveness([]float64{-0.1})
	assert.True(t, errors.Is(err, models.ErrInvalidRange))
}

func TestResidualRisk(t *testing.T) {
	assert.InDelta(t, 5.6, ResidualRisk(5.6, 0), 1e-9)
	assert.InDelta(t, 1.344, ResidualRisk(5.6, 0.76), 1e-9)
	assert.Zero(t, ResidualRisk(5.6, 1))
}

func TestScoreRecord_NoSafeguards(t *testing.T) {
	scorer := NewScorer(models.DefaultThresholds())

	// likelihood=7, impact=8 with zero mitigation: 5.6 in [4,6) is medium.
	score, err := scorer.ScoreRecord(7, 8, nil)
	require.NoError(t, err)

	assert.InDelta(t, 5.6, score.InherentRisk, 1e-9)
	assert.InDelta(t, 5.6, score.ResidualRisk, 1e-9)
	assert.Equal(t, models.RiskLevelMedium, score.ResidualLevel)
	assert.Equal(t, models.RiskLevelMedium, score.InherentLevel)
}

func TestScoreRecord_TwoOperationalSafeguards(t *testing.T) {
	scorer := NewScorer(models.DefaultThresholds())

	safeguards := []models.Safeguard{
		{Code: "SG-001", Effectiveness: 60, Status: models.SafeguardStatusOperational},
		{Code: "SG-002", Effectiveness: 40, Status: models.SafeguardStatusOperational},
	}

	score, err := scorer.ScoreRecord(7, 8, safeguards)
	require.NoError(t, err)

	assert.InDelta(t, 0.76, score.CombinedEffectiveness, 1e-9)
	assert.InDelta(t, 1.344, score.ResidualRisk, 1e-9)
	assert.Equal(t, models.RiskLevelLow, score.ResidualLevel)
	assert.Equal(t, models.RiskLevelMedium, score.InherentLevel)
}

func TestScoreRecord_NonMitigatingStatusesIgnored(t *testing.T) {
	scorer := NewScorer(models.DefaultThresholds())

	safeguards := []models.Safeguard{
		{Code: "SG-001", Effectiveness: 90, Status: models.SafeguardStatusPlanned},
		{Code: "SG-002", Effectiveness: 90, Status: models.SafeguardStatusInImplementation},
		{Code: "SG-003", Effectiveness: 90, Status: models.SafeguardStatusObsolete},
	}

	score, err := scorer.ScoreRecord(7, 8, safeguards)
	require.NoError(t, err)

	assert.Zero(t, score.CombinedEffectiveness)
	assert.InDelta(t, 5.6, score.ResidualRisk, 1e-9)
}

func TestScoreRecord_InvalidSafeguardEffectiveness(t *testing.T) {
	scorer := NewScorer(models.DefaultThresholds())

	_, err := scorer.ScoreRecord(7, 8, []models.Safeguard{
		{Code: "SG-001", Effectiveness: 130, Status: models.SafeguardStatusOperational},
	})
	assert.True(t, errors.Is(err, models.ErrInvalidRange))
}
