package models

import (
	"time"

	"github.com/google/uuid"
)

// SecurityDimension represents a MAGERIT security valuation dimension
type SecurityDimension string

const (
	DimensionConfidentiality SecurityDimension = "confidentiality"
	DimensionIntegrity       SecurityDimension = "integrity"
	DimensionAvailability    SecurityDimension = "availability"
	DimensionAuthenticity    SecurityDimension = "authenticity"
	DimensionTraceability    SecurityDimension = "traceability"
)

// Valuation holds the five independent security-dimension scores of an
// asset, each in [0, 10]
type Valuation struct {
	Confidentiality float64 `json:"confidentiality" yaml:"confidentiality"`
	Integrity       float64 `json:"integrity" yaml:"integrity"`
	Availability    float64 `json:"availability" yaml:"availability"`
	Authenticity    float64 `json:"authenticity" yaml:"authenticity"`
	Traceability    float64 `json:"traceability" yaml:"traceability"`
}

// Average returns the arithmetic mean of the five dimension scores
func (v Valuation) Average() float64 {
	return (v.Confidentiality + v.Integrity + v.Availability + v.Authenticity + v.Traceability) / 5
}

// Validate checks every dimension score against its [0, 10] domain
func (v Valuation) Validate() error {
	dims := []struct {
		name  string
		value float64
	}{
		{"valuation.confidentiality", v.Confidentiality},
		{"valuation.integrity", v.Integrity},
		{"valuation.availability", v.Availability},
		{"valuation.authenticity", v.Authenticity},
		{"valuation.traceability", v.Traceability},
	}
	for _, d := range dims {
		if d.value < 0 || d.value > 10 {
			return &InvalidRangeError{Field: d.name, Value: d.value, Min: 0, Max: 10}
		}
	}
	return nil
}

// Asset represents an information asset in the MAGERIT inventory.
// Criticality and AverageValuation are read-through projections: they are
// recomputed by the criticality calculator and never edited directly.
type Asset struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	Category      string    `json:"category,omitempty"`
	Owner         string    `json:"owner,omitempty"`
	Custodian     string    `json:"custodian,omitempty"`
	Location      string    `json:"location,omitempty"`
	Valuation     Valuation `json:"valuation"`
	EconomicValue float64   `json:"economic_value"`
	// Dependencies holds ids of assets this asset depends on. Edges are
	// weak references: deleting a dependency never cascades to dependents.
	Dependencies []string  `json:"dependencies,omitempty"`
	Services     []string  `json:"services,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Criticality      float64 `json:"criticality,omitempty"`
	AverageValuation float64 `json:"average_valuation,omitempty"`
}

// CreateAssetRequest represents a validated asset creation request
type CreateAssetRequest struct {
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	Category      string    `json:"category,omitempty"`
	Owner         string    `json:"owner,omitempty"`
	Custodian     string    `json:"custodian,omitempty"`
	Location      string    `json:"location,omitempty"`
	Valuation     Valuation `json:"valuation"`
	EconomicValue float64   `json:"economic_value"`
	Dependencies  []string  `json:"dependencies,omitempty"`
	Services      []string  `json:"services,omitempty"`
}

// NewAsset creates a new asset from a creation request
func NewAsset(req CreateAssetRequest) (Asset, error) {
	if err := req.Valuation.Validate(); err != nil {
		return Asset{}, err
	}
	if req.EconomicValue < 0 {
		return Asset{}, &InvalidRangeError{Field: "economic_value", Value: req.EconomicValue, Min: 0, Max: maxEconomicValue}
	}

	now := time.Now()
	return Asset{
		ID:            uuid.New().String(),
		Code:          req.Code,
		Name:          req.Name,
		Type:          req.Type,
		Category:      req.Category,
		Owner:         req.Owner,
		Custodian:     req.Custodian,
		Location:      req.Location,
		Valuation:     req.Valuation,
		EconomicValue: req.EconomicValue,
		Dependencies:  req.Dependencies,
		Services:      req.Services,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// maxEconomicValue is only used for range error reporting; economic value
// has no upper bound, the normalization ceiling caps its influence instead.
const maxEconomicValue = 1e15

// AssetStats represents aggregate statistics over the asset inventory
type AssetStats struct {
	TotalAssets        int            `json:"total_assets"`
	TotalEconomicValue float64        `json:"total_economic_value"`
	AverageCriticality float64        `json:"average_criticality"`
	ByType             map[string]int `json:"by_type,omitempty"`
	ByCriticality      map[string]int `json:"by_criticality,omitempty"`
}
