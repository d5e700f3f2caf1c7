package store

import (
	"context"
	"sort"
	"time"

	"github.com/magerisk/internal/dashboard"
	"github.com/magerisk/pkg/models"
)

// AssetStats aggregates over the asset inventory
func (s *MemoryStore) AssetStats(_ context.Context) (models.AssetStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.AssetStats{
		ByType:        make(map[string]int),
		ByCriticality: make(map[string]int),
	}
	var criticalitySum float64
	for _, asset := range s.assets {
		stats.TotalAssets++
		stats.TotalEconomicValue += asset.EconomicValue
		criticalitySum += asset.Criticality
		if asset.Type != "" {
			stats.ByType[asset.Type]++
		}
	}
	if stats.TotalAssets > 0 {
		stats.AverageCriticality = criticalitySum / float64(stats.TotalAssets)
	}
	return stats, nil
}

// RiskStats aggregates over risk records. Trend compares the two most
// recent daily snapshots; with fewer than two it reports "stable".
func (s *MemoryStore) RiskStats(_ context.Context) (models.RiskStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.RiskStats{
		Trend:       "stable",
		ByLevel:     make(map[string]int),
		ByStatus:    make(map[string]int),
		ByTreatment: make(map[string]int),
	}
	var riskSum float64
	for _, record := range s.records {
		stats.TotalRisks++
		riskSum += record.ResidualRisk
		stats.ByLevel[string(record.Level)]++
		stats.ByStatus[string(record.Status)]++
		if record.Treatment != "" {
			stats.ByTreatment[string(record.Treatment)]++
		}
		switch record.Level {
		case models.RiskLevelCritical:
			stats.CriticalRisks++
		case models.RiskLevelHigh:
			stats.HighRisks++
		}
	}
	if stats.TotalRisks > 0 {
		stats.AverageRisk = riskSum / float64(stats.TotalRisks)
	}

	if n := len(s.snapshots); n >= 2 {
		latest, previous := s.snapshots[n-1], s.snapshots[n-2]
		switch {
		case latest.Risks > previous.Risks:
			stats.Trend = "up"
		case latest.Risks < previous.Risks:
			stats.Trend = "down"
		}
	}
	return stats, nil
}

// VulnerabilityStats aggregates over vulnerabilities
func (s *MemoryStore) VulnerabilityStats(_ context.Context) (models.VulnerabilityStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.VulnerabilityStats{
		ByStatus:   make(map[string]int),
		ByCategory: make(map[string]int),
	}
	var exploitabilitySum float64
	for _, vuln := range s.vulns {
		stats.TotalVulnerabilities++
		exploitabilitySum += vuln.Exploitability
		stats.ByStatus[string(vuln.Status)]++
		if vuln.Category != "" {
			stats.ByCategory[vuln.Category]++
		}
		if vuln.Status == models.VulnerabilityStatusActive {
			stats.ActiveVulnerabilities++
		}
	}
	if stats.TotalVulnerabilities > 0 {
		stats.AverageExploitability = exploitabilitySum / float64(stats.TotalVulnerabilities)
	}
	return stats, nil
}

// SafeguardStats aggregates over safeguards. Average effectiveness only
// counts safeguards whose status actually mitigates.
func (s *MemoryStore) SafeguardStats(_ context.Context) (models.SafeguardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.SafeguardStats{
		ByKind:   make(map[string]int),
		ByStatus: make(map[string]int),
	}
	var effectivenessSum float64
	for _, sg := range s.safeguards {
		stats.TotalSafeguards++
		stats.ByKind[string(sg.Kind)]++
		stats.ByStatus[string(sg.Status)]++
		if sg.Status.Mitigates() {
			stats.ImplementedSafeguards++
			effectivenessSum += sg.Effectiveness
		}
	}
	if stats.ImplementedSafeguards > 0 {
		stats.AverageEffectiveness = effectivenessSum / float64(stats.ImplementedSafeguards)
	}
	return stats, nil
}

// RecordDailySnapshot stores one trend point. A snapshot for the same UTC
// day replaces the previous one, so repeated captures stay idempotent.
func (s *MemoryStore) RecordDailySnapshot(_ context.Context, snapshot dashboard.DailySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot.Date = snapshot.Date.UTC().Truncate(24 * time.Hour)
	for i, existing := range s.snapshots {
		if existing.Date.Equal(snapshot.Date) {
			s.snapshots[i] = snapshot
			return nil
		}
	}
	s.snapshots = append(s.snapshots, snapshot)
	sort.Slice(s.snapshots, func(i, j int) bool { return s.snapshots[i].Date.Before(s.snapshots[j].Date) })
	return nil
}

// QuerySnapshots returns stored snapshots within [from, to], oldest first
func (s *MemoryStore) QuerySnapshots(_ context.Context, from, to time.Time) ([]dashboard.DailySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]dashboard.DailySnapshot, 0)
	for _, snapshot := range s.snapshots {
		if snapshot.Date.Before(from) || snapshot.Date.After(to) {
			continue
		}
		out = append(out, snapshot)
	}
	return out, nil
}
