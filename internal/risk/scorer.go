package risk

import (
	"math"

	"github.com/magerisk/pkg/models"
)

// InherentRisk computes pre-mitigation risk from likelihood and impact,
// both in [1, 10]. The product ranges [1, 100], so dividing by 10 maps the
// result onto the 0-10 classification scale.
func InherentRisk(likelihood, impact float64) (float64, error) {
	if likelihood < 1 || likelihood > 10 {
		return 0, &models.InvalidRangeError{Field: "likelihood", Value: likelihood, Min: 1, Max: 10}
	}
	if impact < 1 || impact > 10 {
		return 0, &models.InvalidRangeError{Field: "impact", Value: impact, Min: 1, Max: 10}
	}
	return likelihood * impact / 10, nil
}

// CombineEffectiveness combines independent safeguard effectiveness
// fractions via 1 - prod(1 - e). Stacked controls therefore show
// diminishing marginal benefit and the result stays strictly below 1
// unless some control is fully effective. Naive summation would exceed
// 100% with two strong controls; redundant controls reduce exposure but
// never eliminate it.
func CombineEffectiveness(fractions []float64) (float64, error) {
	remaining := 1.0
	for _, e := range fractions {
		if e < 0 || e > 1 {
			return 0, &models.InvalidRangeError{Field: "effectiveness", Value: e, Min: 0, Max: 1}
		}
		remaining *= 1 - e
	}
	return 1 - remaining, nil
}

// ResidualRisk applies combined mitigation to inherent risk, floored at 0
func ResidualRisk(inherent, combinedEffectiveness float64) float64 {
	return math.Max(0, inherent*(1-combinedEffectiveness))
}

// Score represents one scored risk record
type Score struct {
	InherentRisk          float64          `json:"inherent_risk"`
	ResidualRisk          float64          `json:"residual_risk"`
	CombinedEffectiveness float64          `json:"combined_effectiveness"`
	InherentLevel         models.RiskLevel `json:"inherent_level"`
	ResidualLevel         models.RiskLevel `json:"residual_level"`
}

// Scorer computes risk scores under a fixed set of classification
// thresholds. It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	thresholds models.Thresholds
}

// NewScorer creates a scorer with the given thresholds
func NewScorer(thresholds models.Thresholds) *Scorer {
	return &Scorer{thresholds: thresholds}
}

// Thresholds returns the scorer's classification thresholds
func (s *Scorer) Thresholds() models.Thresholds {
	return s.thresholds
}

// ScoreRecord computes inherent and residual risk for a record given its
// resolved safeguards. Only safeguards whose status mitigates contribute;
// an empty safeguard list is the valid zero-mitigation case. The risk
// level classifies residual risk, the operationally meaningful exposure.
func (s *Scorer) ScoreRecord(likelihood, impact float64, safeguards []models.Safeguard) (Score, error) {
	inherent, err := InherentRisk(likelihood, impact)
	if err != nil {
		return Score{}, err
	}

	fractions := make([]float64, 0, len(safeguards))
	for _, sg := range safeguards {
		if err := sg.Validate(); err != nil {
			return Score{}, err
		}
		if sg.Status.Mitigates() {
			fractions = append(fractions, sg.EffectiveFraction())
		}
	}

	combined, err := CombineEffectiveness(fractions)
	if err != nil {
		return Score{}, err
	}
	residual := ResidualRisk(inherent, combined)

	return Score{
		InherentRisk:          inherent,
		ResidualRisk:          residual,
		CombinedEffectiveness: combined,
		InherentLevel:         s.thresholds.Classify(inherent),
		ResidualLevel:         s.thresholds.Classify(residual),
	}, nil
}
