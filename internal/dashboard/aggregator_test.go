package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/magerisk/pkg/models"
)

type fakeProvider struct {
	assets        models.AssetStats
	risks         models.RiskStats
	vulns         models.VulnerabilityStats
	safeguards    models.SafeguardStats
	assetsErr     error
	risksErr      error
	vulnsErr      error
	safeguardsErr error
}

func (p *fakeProvider) AssetStats(context.Context) (models.AssetStats, error) {
	return p.assets, p.assetsErr
}

func (p *fakeProvider) RiskStats(context.Context) (models.RiskStats, error) {
	return p.risks, p.risksErr
}

func (p *fakeProvider) VulnerabilityStats(context.Context) (models.VulnerabilityStats, error) {
	return p.vulns, p.vulnsErr
}

func (p *fakeProvider) SafeguardStats(context.Context) (models.SafeguardStats, error) {
	return p.safeguards, p.safeguardsErr
}

type fakeSnapshotStore struct {
	snapshots []DailySnapshot
	err       error
}

func (s *fakeSnapshotStore) QuerySnapshots(context.Context, time.Time, time.Time) ([]DailySnapshot, error) {
	return s.snapshots, s.err
}

func healthyProvider() *fakeProvider {
	return &fakeProvider{
		assets:     models.AssetStats{TotalAssets: 42},
		risks:      models.RiskStats{TotalRisks: 17, CriticalRisks: 3, Trend: "down"},
		vulns:      models.VulnerabilityStats{TotalVulnerabilities: 9, ActiveVulnerabilities: 5},
		safeguards: models.SafeguardStats{TotalSafeguards: 12, ImplementedSafeguards: 8, AverageEffectiveness: 64},
	}
}

func newTestAggregator(provider StatsProvider, store SnapshotStore) *Aggregator {
	return NewAggregator(provider, store, models.DefaultThresholds(), zap.NewNop())
}

func TestBuildKPISnapshot_AllSourcesHealthy(t *testing.T) {
	agg := newTestAggregator(healthyProvider(), &fakeSnapshotStore{})

	snapshot := agg.BuildKPISnapshot(context.Background())

	assert.Equal(t, 42, snapshot.TotalAssets)
	assert.Equal(t, 3, snapshot.CriticalRisks)
	assert.Equal(t, 5, snapshot.ActiveVulnerabilities)
	assert.Equal(t, 8, snapshot.ImplementedSafeguards)
	assert.Equal(t, "down", snapshot.RiskTrend)
	assert.InDelta(t, 64, snapshot.ProgramEffectiveness, 1e-9)
	assert.Empty(t, snapshot.Degraded)
}

func TestBuildKPISnapshot_SafeguardSourceFails(t *testing.T) {
	provider := healthyProvider()
	provider.safeguardsErr = errors.New("connection refused")
	agg := newTestAggregator(provider, &fakeSnapshotStore{})

	snapshot := agg.BuildKPISnapshot(context.Background())

	// The other fields still arrive.
	assert.Equal(t, 42, snapshot.TotalAssets)
	assert.Equal(t, 3, snapshot.CriticalRisks)
	assert.Equal(t, 5, snapshot.ActiveVulnerabilities)

	// The failed source degrades to zero and is flagged.
	assert.Zero(t, snapshot.ImplementedSafeguards)
	assert.Zero(t, snapshot.ProgramEffectiveness)
	assert.True(t, snapshot.Degraded[SourceSafeguards])
	assert.Contains(t, snapshot.SourceErrors[SourceSafeguards], "safeguards")
	assert.False(t, snapshot.Degraded[SourceAssets])
}

func TestBuildKPISnapshot_AllSourcesFail(t *testing.T) {
	provider := &fakeProvider{
		assetsErr:     errors.New("down"),
		risksErr:      errors.New("down"),
		vulnsErr:      errors.New("down"),
		safeguardsErr: errors.New("down"),
	}
	agg := newTestAggregator(provider, &fakeSnapshotStore{})

	snapshot := agg.BuildKPISnapshot(context.Background())

	assert.Zero(t, snapshot.TotalAssets)
	assert.Equal(t, "stable", snapshot.RiskTrend)
	assert.Len(t, snapshot.Degraded, 4)
}

func TestBuildRiskMatrix(t *testing.T) {
	agg := newTestAggregator(healthyProvider(), &fakeSnapshotStore{})

	records := []models.RiskRecord{
		{Code: "R-001", Name: "Ransomware on billing DB", Likelihood: 7, Impact: 8, ResidualRisk: 5.6},
		{Code: "R-002", Likelihood: 9, Impact: 10, ResidualRisk: 9},
		{Code: "R-003", Name: "Flood", Likelihood: 2, Impact: 4, ResidualRisk: 0.8},
	}

	matrix := agg.BuildRiskMatrix(records)
	require.Len(t, matrix, 3)

	assert.Equal(t, "Ransomware on billing DB", matrix[0].Label)
	assert.Equal(t, models.RiskLevelMedium, matrix[0].Level)
	// Falls back to the code when no name is set.
	assert.Equal(t, "R-002", matrix[1].Label)
	assert.Equal(t, models.RiskLevelCritical, matrix[1].Level)
	assert.Equal(t, models.RiskLevelVeryLow, matrix[2].Level)
}

func TestBuildTrendSeries_FixedLengthZeroFilled(t *testing.T) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	store := &fakeSnapshotStore{snapshots: []DailySnapshot{
		{Date: today, Risks: 4, Vulnerabilities: 2, Safeguards: 7},
		{Date: today.AddDate(0, 0, -3), Risks: 1},
	}}
	agg := newTestAggregator(healthyProvider(), store)

	series, err := agg.BuildTrendSeries(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, series, 7)

	assert.Equal(t, today.Format("2006-01-02"), series[6].Date)
	assert.Equal(t, 4, series[6].Risks)
	assert.Equal(t, 1, series[3].Risks)
	// Days without a stored snapshot report zeros, not gaps.
	assert.Zero(t, series[0].Risks)
	assert.Zero(t, series[0].Vulnerabilities)
}

func TestBuildTrendSeries_StoreFailureDegradesToZeros(t *testing.T) {
	store := &fakeSnapshotStore{err: errors.New("unavailable")}
	agg := newTestAggregator(healthyProvider(), store)

	series, err := agg.BuildTrendSeries(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, series, 30)
	for _, point := range series {
		assert.Zero(t, point.Risks)
	}
}

func TestBuildTrendSeries_InvalidWindow(t *testing.T) {
	agg := newTestAggregator(healthyProvider(), &fakeSnapshotStore{})

	_, err := agg.BuildTrendSeries(context.Background(), 0)
	assert.True(t, errors.Is(err, models.ErrInvalidRange))
}
