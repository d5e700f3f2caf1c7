package models

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel represents the five-level MAGERIT risk classification
type RiskLevel string

const (
	RiskLevelVeryLow  RiskLevel = "very_low"
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// RiskStatus represents the lifecycle of a risk record
type RiskStatus string

const (
	RiskStatusIdentified  RiskStatus = "identified"
	RiskStatusInAnalysis  RiskStatus = "in_analysis"
	RiskStatusTreated     RiskStatus = "treated"
	RiskStatusAccepted    RiskStatus = "accepted"
	RiskStatusTransferred RiskStatus = "transferred"
)

// Treatment represents the chosen risk treatment strategy
type Treatment string

const (
	TreatmentAvoid    Treatment = "avoid"
	TreatmentMitigate Treatment = "mitigate"
	TreatmentTransfer Treatment = "transfer"
	TreatmentAccept   Treatment = "accept"
)

// Thresholds holds the lower bounds of each risk level above VeryLow.
// The same thresholds classify residual risk, matrix cells and implied
// severity of uncovered threats, so every surface agrees on the labels.
type Thresholds struct {
	Critical float64 `json:"critical" yaml:"critical"`
	High     float64 `json:"high" yaml:"high"`
	Medium   float64 `json:"medium" yaml:"medium"`
	Low      float64 `json:"low" yaml:"low"`
}

// DefaultThresholds returns the documented default classification bounds
func DefaultThresholds() Thresholds {
	return Thresholds{Critical: 8, High: 6, Medium: 4, Low: 2}
}

// Classify returns the risk level for a score on the 0-10 scale
func (t Thresholds) Classify(score float64) RiskLevel {
	switch {
	case score >= t.Critical:
		return RiskLevelCritical
	case score >= t.High:
		return RiskLevelHigh
	case score >= t.Medium:
		return RiskLevelMedium
	case score >= t.Low:
		return RiskLevelLow
	default:
		return RiskLevelVeryLow
	}
}

// ClassifyRiskLevel classifies a score using the default thresholds
func ClassifyRiskLevel(score float64) RiskLevel {
	return DefaultThresholds().Classify(score)
}

// RiskRecord represents one asset/threat risk pairing.
// InherentRisk, ResidualRisk and Level are derived values: they are
// recomputed by the risk scorer and are never editable on their own.
type RiskRecord struct {
	ID              string     `json:"id"`
	Code            string     `json:"code"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	AssetID         string     `json:"asset_id"`
	ThreatID        string     `json:"threat_id"`
	VulnerabilityID string     `json:"vulnerability_id,omitempty"`
	Likelihood      float64    `json:"likelihood"` // 1-10
	Impact          float64    `json:"impact"`     // 1-10
	SafeguardIDs    []string   `json:"safeguard_ids,omitempty"`
	InherentRisk    float64    `json:"inherent_risk"`
	ResidualRisk    float64    `json:"residual_risk"`
	Level           RiskLevel  `json:"level"`
	Status          RiskStatus `json:"status"`
	Treatment       Treatment  `json:"treatment"`
	ResponsibleParty string    `json:"responsible_party,omitempty"`
	IdentifiedAt    time.Time  `json:"identified_at"`
	LastEvaluatedAt time.Time  `json:"last_evaluated_at"`
}

// Validate checks the record's numeric domains
func (r RiskRecord) Validate() error {
	if r.Likelihood < 1 || r.Likelihood > 10 {
		return &InvalidRangeError{Field: "likelihood", Value: r.Likelihood, Min: 1, Max: 10}
	}
	if r.Impact < 1 || r.Impact > 10 {
		return &InvalidRangeError{Field: "impact", Value: r.Impact, Min: 1, Max: 10}
	}
	return nil
}

// CreateRiskRequest represents a validated risk record creation request
type CreateRiskRequest struct {
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	AssetID         string    `json:"asset_id"`
	ThreatID        string    `json:"threat_id"`
	VulnerabilityID string    `json:"vulnerability_id,omitempty"`
	Likelihood      float64   `json:"likelihood"`
	Impact          float64   `json:"impact"`
	SafeguardIDs    []string  `json:"safeguard_ids,omitempty"`
	Treatment       Treatment `json:"treatment"`
	ResponsibleParty string   `json:"responsible_party,omitempty"`
}

// NewRiskRecord creates a new risk record in the identified state.
// Derived fields start at zero and are filled by the risk scorer.
func NewRiskRecord(req CreateRiskRequest) (RiskRecord, error) {
	now := time.Now()
	r := RiskRecord{
		ID:              uuid.New().String(),
		Code:            req.Code,
		Name:            req.Name,
		Description:     req.Description,
		AssetID:         req.AssetID,
		ThreatID:        req.ThreatID,
		VulnerabilityID: req.VulnerabilityID,
		Likelihood:      req.Likelihood,
		Impact:          req.Impact,
		SafeguardIDs:    req.SafeguardIDs,
		Status:          RiskStatusIdentified,
		Treatment:       req.Treatment,
		ResponsibleParty: req.ResponsibleParty,
		IdentifiedAt:    now,
		LastEvaluatedAt: now,
	}
	if err := r.Validate(); err != nil {
		return RiskRecord{}, err
	}
	return r, nil
}

// RiskStats represents aggregate statistics over risk records
type RiskStats struct {
	TotalRisks    int            `json:"total_risks"`
	CriticalRisks int            `json:"critical_risks"`
	HighRisks     int            `json:"high_risks"`
	AverageRisk   float64        `json:"average_risk"`
	Trend         string         `json:"trend,omitempty"` // up, down, stable
	ByLevel       map[string]int `json:"by_level,omitempty"`
	ByStatus      map[string]int `json:"by_status,omitempty"`
	ByTreatment   map[string]int `json:"by_treatment,omitempty"`
}
