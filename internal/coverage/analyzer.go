package coverage

import (
	"fmt"
	"sort"

	"github.com/magerisk/pkg/models"
)

// UncoveredThreat represents a threat with no mitigating safeguard
type UncoveredThreat struct {
	Threat models.Threat `json:"threat"`
	// ImpliedRiskLevel classifies the threat's raw likelihood with the
	// shared risk thresholds. No asset or impact context is bound at this
	// stage, so likelihood stands in as the severity signal.
	ImpliedRiskLevel models.RiskLevel `json:"implied_risk_level"`
}

// Report represents the outcome of a coverage evaluation
type Report struct {
	TotalThreats       int               `json:"total_threats"`
	CoveredThreats     int               `json:"covered_threats"`
	CoveragePercentage float64           `json:"coverage_percentage"`
	UncoveredThreats   []UncoveredThreat `json:"uncovered_threats"`
	Recommendations    []string          `json:"recommendations"`
}

// Analyzer evaluates how much of the threat catalogue is covered by
// mitigating safeguards. It is stateless and safe for concurrent use.
type Analyzer struct {
	thresholds models.Thresholds
}

// NewAnalyzer creates a coverage analyzer using the shared thresholds
func NewAnalyzer(thresholds models.Thresholds) *Analyzer {
	return &Analyzer{thresholds: thresholds}
}

// Evaluate reports what fraction of the threats has at least one
// implemented or operational safeguard controlling it. With an empty
// threat catalogue coverage is vacuously 100%, never a division by zero.
func (a *Analyzer) Evaluate(threats []models.Threat, safeguards []models.Safeguard) Report {
	report := Report{
		TotalThreats:     len(threats),
		UncoveredThreats: make([]UncoveredThreat, 0),
	}

	if len(threats) == 0 {
		report.CoveragePercentage = 100
		report.Recommendations = []string{}
		return report
	}

	mitigating := make([]models.Safeguard, 0, len(safeguards))
	for _, sg := range safeguards {
		if sg.Status.Mitigates() {
			mitigating = append(mitigating, sg)
		}
	}

	for _, threat := range threats {
		if a.isCovered(threat, mitigating) {
			report.CoveredThreats++
			continue
		}
		report.UncoveredThreats = append(report.UncoveredThreats, UncoveredThreat{
			Threat:           threat,
			ImpliedRiskLevel: a.thresholds.Classify(threat.Likelihood),
		})
	}

	// Highest-likelihood gaps first; ties break on code for stable output.
	sort.Slice(report.UncoveredThreats, func(i, j int) bool {
		ti, tj := report.UncoveredThreats[i].Threat, report.UncoveredThreats[j].Threat
		if ti.Likelihood != tj.Likelihood {
			return ti.Likelihood > tj.Likelihood
		}
		return ti.Code < tj.Code
	})

	report.CoveragePercentage = float64(report.CoveredThreats) / float64(report.TotalThreats) * 100
	report.Recommendations = a.buildRecommendations(report)
	return report
}

func (a *Analyzer) isCovered(threat models.Threat, mitigating []models.Safeguard) bool {
	for _, sg := range mitigating {
		if sg.ControlsThreat(threat.ID) {
			return true
		}
	}
	return false
}

// buildRecommendations turns the ordered gap list into advisory strings
func (a *Analyzer) buildRecommendations(report Report) []string {
	recs := make([]string, 0, len(report.UncoveredThreats)+1)

	for _, gap := range report.UncoveredThreats {
		recs = append(recs, fmt.Sprintf("threat %q (%s) has no operational safeguard; implied risk level %s",
			gap.Threat.Code, gap.Threat.Name, gap.ImpliedRiskLevel))
	}
	if report.CoveragePercentage < 50 {
		recs = append(recs, fmt.Sprintf("overall threat coverage is %.1f%%; prioritize implementing planned safeguards", report.CoveragePercentage))
	}
	return recs
}
