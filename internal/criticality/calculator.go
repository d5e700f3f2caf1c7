package criticality

import (
	"math"

	"github.com/magerisk/pkg/models"
)

// Level represents the four-level criticality classification of an asset
type Level string

const (
	LevelCritical Level = "critical"
	LevelHigh     Level = "high"
	LevelMedium   Level = "medium"
	LevelLow      Level = "low"
)

// Config represents criticality calculator configuration
type Config struct {
	// DimensionWeight and EconomicWeight split the blend between the
	// security-dimension average and the normalized economic factor.
	// They must sum to 1.
	DimensionWeight float64 `json:"dimension_weight" yaml:"dimension_weight"`
	EconomicWeight  float64 `json:"economic_weight" yaml:"economic_weight"`
	// EconomicCeiling caps the economic value during normalization so no
	// single asset's monetary value alone can force maximum criticality.
	EconomicCeiling float64 `json:"economic_ceiling" yaml:"economic_ceiling"`
}

// DefaultConfig returns the documented default weight split and ceiling
func DefaultConfig() Config {
	return Config{
		DimensionWeight: 0.7,
		EconomicWeight:  0.3,
		EconomicCeiling: 50000,
	}
}

// Result represents a computed criticality
type Result struct {
	Score            float64 `json:"score"` // 0-10
	Level            Level   `json:"level"`
	AverageValuation float64 `json:"average_valuation"`
	EconomicFactor   float64 `json:"economic_factor"`
}

// Calculator derives asset criticality from security valuation and
// economic value. Compute is a pure function: no state is touched and the
// same input always yields the same result.
type Calculator struct {
	config Config
}

// NewCalculator creates a calculator with the given configuration
func NewCalculator(config Config) *Calculator {
	return &Calculator{config: config}
}

// Compute derives the criticality score and level for an asset
func (c *Calculator) Compute(asset models.Asset) (Result, error) {
	if err := c.validateConfig(); err != nil {
		return Result{}, err
	}
	if err := asset.Valuation.Validate(); err != nil {
		return Result{}, err
	}
	if asset.EconomicValue < 0 {
		return Result{}, &models.InvalidRangeError{Field: "economic_value", Value: asset.EconomicValue, Min: 0, Max: math.Inf(1)}
	}

	avg := asset.Valuation.Average()
	economicFactor := c.normalizeEconomicValue(asset.EconomicValue)

	score := avg*c.config.DimensionWeight + economicFactor*c.config.EconomicWeight
	score = math.Min(10, math.Max(0, score))

	return Result{
		Score:            score,
		Level:            classify(score),
		AverageValuation: avg,
		EconomicFactor:   economicFactor,
	}, nil
}

// normalizeEconomicValue maps economic value onto the 0-10 scale, capped
// at the configured ceiling.
func (c *Calculator) normalizeEconomicValue(value float64) float64 {
	capped := math.Min(value, c.config.EconomicCeiling)
	return capped / c.config.EconomicCeiling * 10
}

func (c *Calculator) validateConfig() error {
	if c.config.EconomicCeiling <= 0 {
		return &models.InvalidRangeError{Field: "economic_ceiling", Value: c.config.EconomicCeiling, Min: 0, Max: math.Inf(1)}
	}
	sum := c.config.DimensionWeight + c.config.EconomicWeight
	if c.config.DimensionWeight < 0 || c.config.EconomicWeight < 0 || math.Abs(sum-1) > 1e-9 {
		return &models.InvalidRangeError{Field: "weights", Value: sum, Min: 1, Max: 1}
	}
	return nil
}

// classify maps a clamped 0-10 score onto the criticality levels
func classify(score float64) Level {
	switch {
	case score >= 8:
		return LevelCritical
	case score >= 6:
		return LevelHigh
	case score >= 4:
		return LevelMedium
	default:
		return LevelLow
	}
}
