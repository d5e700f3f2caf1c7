package models

import (
	"time"

	"github.com/google/uuid"
)

// ThreatCategory represents the MAGERIT threat taxonomy
type ThreatCategory string

const (
	ThreatCategoryNatural       ThreatCategory = "natural"
	ThreatCategoryHuman         ThreatCategory = "human"
	ThreatCategoryTechnological ThreatCategory = "technological"
	ThreatCategoryEnvironmental ThreatCategory = "environmental"
)

// ThreatOrigin represents where a threat originates
type ThreatOrigin string

const (
	ThreatOriginInternal ThreatOrigin = "internal"
	ThreatOriginExternal ThreatOrigin = "external"
	ThreatOriginMixed    ThreatOrigin = "mixed"
)

// Threat represents a catalogued threat
type Threat struct {
	ID          string         `json:"id"`
	Code        string         `json:"code"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Category    ThreatCategory `json:"category"`
	Origin      ThreatOrigin   `json:"origin"`
	Likelihood  float64        `json:"likelihood"` // 0-10
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Validate checks the threat's numeric domains
func (t Threat) Validate() error {
	if t.Likelihood < 0 || t.Likelihood > 10 {
		return &InvalidRangeError{Field: "likelihood", Value: t.Likelihood, Min: 0, Max: 10}
	}
	return nil
}

// NewThreat creates a new threat
func NewThreat(code, name string, category ThreatCategory, origin ThreatOrigin, likelihood float64) (Threat, error) {
	now := time.Now()
	t := Threat{
		ID:         uuid.New().String(),
		Code:       code,
		Name:       name,
		Category:   category,
		Origin:     origin,
		Likelihood: likelihood,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := t.Validate(); err != nil {
		return Threat{}, err
	}
	return t, nil
}
