package models

import (
	"time"

	"github.com/google/uuid"
)

// VulnerabilityStatus represents the lifecycle of a vulnerability
type VulnerabilityStatus string

const (
	VulnerabilityStatusActive      VulnerabilityStatus = "active"
	VulnerabilityStatusMitigated   VulnerabilityStatus = "mitigated"
	VulnerabilityStatusAccepted    VulnerabilityStatus = "accepted"
	VulnerabilityStatusInTreatment VulnerabilityStatus = "in_treatment"
)

// Vulnerability represents a weakness that threats can exploit
type Vulnerability struct {
	ID             string              `json:"id"`
	Code           string              `json:"code"`
	Name           string              `json:"name"`
	Category       string              `json:"category,omitempty"`
	Description    string              `json:"description,omitempty"`
	Exploitability float64             `json:"exploitability"` // 0-10
	AttackVectors  []string            `json:"attack_vectors,omitempty"`
	AffectedAssets []string            `json:"affected_assets,omitempty"` // asset ids
	RelatedThreats []string            `json:"related_threats,omitempty"` // threat ids
	Status         VulnerabilityStatus `json:"status"`
	DetectedAt     time.Time           `json:"detected_at"`
	MitigatedAt    *time.Time          `json:"mitigated_at,omitempty"`
}

// Validate checks the vulnerability's numeric domains
func (v Vulnerability) Validate() error {
	if v.Exploitability < 0 || v.Exploitability > 10 {
		return &InvalidRangeError{Field: "exploitability", Value: v.Exploitability, Min: 0, Max: 10}
	}
	return nil
}

// NewVulnerability creates a new vulnerability in the active state
func NewVulnerability(code, name string, exploitability float64) (Vulnerability, error) {
	v := Vulnerability{
		ID:             uuid.New().String(),
		Code:           code,
		Name:           name,
		Exploitability: exploitability,
		Status:         VulnerabilityStatusActive,
		DetectedAt:     time.Now(),
	}
	if err := v.Validate(); err != nil {
		return Vulnerability{}, err
	}
	return v, nil
}

// VulnerabilityStats represents aggregate statistics over vulnerabilities
type VulnerabilityStats struct {
	TotalVulnerabilities  int            `json:"total_vulnerabilities"`
	ActiveVulnerabilities int            `json:"active_vulnerabilities"`
	AverageExploitability float64        `json:"average_exploitability"`
	ByStatus              map[string]int `json:"by_status,omitempty"`
	ByCategory            map[string]int `json:"by_category,omitempty"`
}
