package models

import (
	"time"

	"github.com/google/uuid"
)

// SafeguardKind represents the control type of a safeguard
type SafeguardKind string

const (
	SafeguardKindPreventive SafeguardKind = "preventive"
	SafeguardKindDetective  SafeguardKind = "detective"
	SafeguardKindCorrective SafeguardKind = "corrective"
	SafeguardKindDeterrent  SafeguardKind = "deterrent"
)

// SafeguardStatus represents the implementation lifecycle of a safeguard
type SafeguardStatus string

const (
	SafeguardStatusPlanned          SafeguardStatus = "planned"
	SafeguardStatusInImplementation SafeguardStatus = "in_implementation"
	SafeguardStatusImplemented      SafeguardStatus = "implemented"
	SafeguardStatusOperational      SafeguardStatus = "operational"
	SafeguardStatusObsolete         SafeguardStatus = "obsolete"
)

// Mitigates reports whether a safeguard in this status contributes to
// residual-risk reduction and threat coverage. Planned, in-implementation
// and obsolete safeguards contribute nothing regardless of their stated
// effectiveness.
func (s SafeguardStatus) Mitigates() bool {
	return s == SafeguardStatusImplemented || s == SafeguardStatusOperational
}

// Safeguard represents a control protecting assets against threats
type Safeguard struct {
	ID                 string              `json:"id"`
	Code               string              `json:"code"`
	Name               string              `json:"name"`
	Kind               SafeguardKind       `json:"kind"`
	Category           string              `json:"category,omitempty"`
	Description        string              `json:"description,omitempty"`
	Dimensions         []SecurityDimension `json:"dimensions,omitempty"`
	ControlsThreats    []string            `json:"controls_threats,omitempty"` // threat ids
	ProtectsAssets     []string            `json:"protects_assets,omitempty"`  // asset ids
	Effectiveness      float64             `json:"effectiveness"`              // 0-100 percent
	Status             SafeguardStatus     `json:"status"`
	ImplementationCost float64             `json:"implementation_cost,omitempty"`
	MaintenanceCost    float64             `json:"maintenance_cost,omitempty"`
	ImplementedAt      *time.Time          `json:"implemented_at,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// Validate checks the safeguard's numeric domains
func (s Safeguard) Validate() error {
	if s.Effectiveness < 0 || s.Effectiveness > 100 {
		return &InvalidRangeError{Field: "effectiveness", Value: s.Effectiveness, Min: 0, Max: 100}
	}
	return nil
}

// EffectiveFraction returns the safeguard's contribution to mitigation as
// a fraction in [0, 1]. Safeguards whose status does not mitigate return 0.
func (s Safeguard) EffectiveFraction() float64 {
	if !s.Status.Mitigates() {
		return 0
	}
	return s.Effectiveness / 100
}

// ControlsThreat reports whether the safeguard lists the threat among the
// threats it controls.
func (s Safeguard) ControlsThreat(threatID string) bool {
	for _, id := range s.ControlsThreats {
		if id == threatID {
			return true
		}
	}
	return false
}

// NewSafeguard creates a new safeguard in the planned state
func NewSafeguard(code, name string, kind SafeguardKind, effectiveness float64) (Safeguard, error) {
	now := time.Now()
	s := Safeguard{
		ID:            uuid.New().String(),
		Code:          code,
		Name:          name,
		Kind:          kind,
		Effectiveness: effectiveness,
		Status:        SafeguardStatusPlanned,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Validate(); err != nil {
		return Safeguard{}, err
	}
	return s, nil
}

// SafeguardStats represents aggregate statistics over safeguards
type SafeguardStats struct {
	TotalSafeguards       int            `json:"total_safeguards"`
	ImplementedSafeguards int            `json:"implemented_safeguards"`
	AverageEffectiveness  float64        `json:"average_effectiveness"`
	ByKind                map[string]int `json:"by_kind,omitempty"`
	ByStatus              map[string]int `json:"by_status,omitempty"`
}
