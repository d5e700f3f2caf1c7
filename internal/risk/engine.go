package risk

import (
	"context"
	"fmt"
	"sort"

	"github.com/magerisk/pkg/models"
)

// Repository is the read-side collaborator the engine resolves entity
// references through. Implementations must be safe for concurrent use.
type Repository interface {
	GetAsset(ctx context.Context, id string) (models.Asset, error)
	GetThreat(ctx context.Context, id string) (models.Threat, error)
	GetVulnerability(ctx context.Context, id string) (models.Vulnerability, error)
	GetSafeguard(ctx context.Context, id string) (models.Safeguard, error)
}

// CalculationRequest represents one risk calculation
type CalculationRequest struct {
	AssetID         string   `json:"asset_id"`
	ThreatID        string   `json:"threat_id"`
	VulnerabilityID string   `json:"vulnerability_id,omitempty"`
	Likelihood      float64  `json:"likelihood"` // 1-10
	Impact          float64  `json:"impact"`     // 1-10
	SafeguardIDs    []string `json:"safeguard_ids,omitempty"`
	Treatment       models.Treatment `json:"treatment,omitempty"`
}

// CalculationResult represents the outcome of a risk calculation
type CalculationResult struct {
	Score
	Recommendations []string `json:"recommendations"`
}

// Engine resolves entity references and runs the scorer over them. The
// engine keeps no mutable state of its own; concurrent calculations only
// share the repository.
type Engine struct {
	scorer *Scorer
	repo   Repository
}

// NewEngine creates a risk engine
func NewEngine(scorer *Scorer, repo Repository) *Engine {
	return &Engine{scorer: scorer, repo: repo}
}

// CalculateRisk validates the request's references, scores the pairing
// and derives advisory recommendations. Recommendation generation is rule
// based: the same request always yields the same advice.
func (e *Engine) CalculateRisk(ctx context.Context, req CalculationRequest) (CalculationResult, error) {
	asset, err := e.repo.GetAsset(ctx, req.AssetID)
	if err != nil {
		return CalculationResult{}, fmt.Errorf("resolving asset %q: %w", req.AssetID, err)
	}
	threat, err := e.repo.GetThreat(ctx, req.ThreatID)
	if err != nil {
		return CalculationResult{}, fmt.Errorf("resolving threat %q: %w", req.ThreatID, err)
	}
	if req.VulnerabilityID != "" {
		if _, err := e.repo.GetVulnerability(ctx, req.VulnerabilityID); err != nil {
			return CalculationResult{}, fmt.Errorf("resolving vulnerability %q: %w", req.VulnerabilityID, err)
		}
	}

	safeguards, err := e.resolveSafeguards(ctx, req.SafeguardIDs)
	if err != nil {
		return CalculationResult{}, err
	}

	score, err := e.scorer.ScoreRecord(req.Likelihood, req.Impact, safeguards)
	if err != nil {
		return CalculationResult{}, err
	}

	return CalculationResult{
		Score:           score,
		Recommendations: e.buildRecommendations(asset, threat, score, safeguards, req.Treatment),
	}, nil
}

func (e *Engine) resolveSafeguards(ctx context.Context, ids []string) ([]models.Safeguard, error) {
	safeguards := make([]models.Safeguard, 0, len(ids))
	for _, id := range ids {
		sg, err := e.repo.GetSafeguard(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolving safeguard %q: %w", id, err)
		}
		safeguards = append(safeguards, sg)
	}
	return safeguards, nil
}

// buildRecommendations derives advisory strings from the scored result.
// Rules fire in a fixed order so output is reproducible.
func (e *Engine) buildRecommendations(asset models.Asset, threat models.Threat, score Score, safeguards []models.Safeguard, treatment models.Treatment) []string {
	recs := make([]string, 0, 4)

	mitigating := 0
	obsolete := make([]string, 0)
	for _, sg := range safeguards {
		if sg.Status.Mitigates() {
			mitigating++
		}
		if sg.Status == models.SafeguardStatusObsolete {
			obsolete = append(obsolete, sg.Code)
		}
	}
	sort.Strings(obsolete)

	if score.InherentLevel == models.RiskLevelCritical && mitigating == 0 {
		recs = append(recs, fmt.Sprintf("no operational safeguards applied to %q despite critical inherent risk from threat %q", asset.Code, threat.Code))
	}
	if treatment == models.TreatmentAccept && (score.ResidualLevel == models.RiskLevelCritical || score.ResidualLevel == models.RiskLevelHigh) {
		recs = append(recs, fmt.Sprintf("treatment strategy %q is inconsistent with residual risk level %q", treatment, score.ResidualLevel))
	}
	if treatment == models.TreatmentMitigate && len(safeguards) == 0 {
		recs = append(recs, "treatment strategy is mitigate but no safeguards are applied; identify candidate controls")
	}
	for _, code := range obsolete {
		recs = append(recs, fmt.Sprintf("applied safeguard %q is obsolete and contributes no mitigation", code))
	}
	if score.ResidualLevel == models.RiskLevelCritical {
		recs = append(recs, "residual risk remains critical after mitigation; immediate treatment is required")
	}

	return recs
}
