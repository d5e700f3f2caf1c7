package dashboard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/magerisk/pkg/models"
)

// StatsProvider supplies the four independently fetchable sub-aggregates
// a KPI snapshot is built from. Each method may fail on its own.
type StatsProvider interface {
	AssetStats(ctx context.Context) (models.AssetStats, error)
	RiskStats(ctx context.Context) (models.RiskStats, error)
	VulnerabilityStats(ctx context.Context) (models.VulnerabilityStats, error)
	SafeguardStats(ctx context.Context) (models.SafeguardStats, error)
}

// SnapshotStore queries historical daily aggregate snapshots. A day with
// no stored snapshot is not an error; it simply reports zero counts.
type SnapshotStore interface {
	QuerySnapshots(ctx context.Context, from, to time.Time) ([]DailySnapshot, error)
}

// DailySnapshot represents one day's aggregate counts
type DailySnapshot struct {
	Date          time.Time `json:"date"`
	Risks         int       `json:"risks"`
	Vulnerabilities int     `json:"vulnerabilities"`
	Safeguards    int       `json:"safeguards"`
}

// Source names used as degradation keys in a KPI snapshot
const (
	SourceAssets          = "assets"
	SourceRisks           = "risks"
	SourceVulnerabilities = "vulnerabilities"
	SourceSafeguards      = "safeguards"
)

// KPISnapshot represents the dashboard headline figures. Degraded marks
// fields whose source was unavailable, so callers can tell a genuine zero
// from a missing input.
type KPISnapshot struct {
	TotalAssets           int       `json:"total_assets"`
	CriticalRisks         int       `json:"critical_risks"`
	ActiveVulnerabilities int       `json:"active_vulnerabilities"`
	ImplementedSafeguards int       `json:"implemented_safeguards"`
	RiskTrend             string    `json:"risk_trend"` // up, down, stable
	ProgramEffectiveness  float64   `json:"program_effectiveness"`
	GeneratedAt           time.Time `json:"generated_at"`

	Degraded     map[string]bool   `json:"degraded,omitempty"`
	SourceErrors map[string]string `json:"source_errors,omitempty"`
}

// MatrixCell represents one point of the likelihood/impact risk matrix
type MatrixCell struct {
	Label      string           `json:"label"`
	Likelihood float64          `json:"likelihood"`
	Impact     float64          `json:"impact"`
	Level      models.RiskLevel `json:"level"`
}

// TrendPoint represents one daily bucket of a trend series
type TrendPoint struct {
	Date            string `json:"date"` // YYYY-MM-DD
	Risks           int    `json:"risks"`
	Vulnerabilities int    `json:"vulnerabilities"`
	Safeguards      int    `json:"safeguards"`
}

// Aggregator builds dashboard projections from the full record set
type Aggregator struct {
	provider   StatsProvider
	snapshots  SnapshotStore
	thresholds models.Thresholds
	logger     *zap.Logger
}

// NewAggregator creates a dashboard aggregator
func NewAggregator(provider StatsProvider, snapshots SnapshotStore, thresholds models.Thresholds, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		provider:   provider,
		snapshots:  snapshots,
		thresholds: thresholds,
		logger:     logger,
	}
}

// BuildKPISnapshot fans out to the four stat sources and settles all of
// them. A failed source degrades its own fields to zero and is flagged;
// it never aborts the snapshot.
func (a *Aggregator) BuildKPISnapshot(ctx context.Context) KPISnapshot {
	snapshot := KPISnapshot{
		RiskTrend:    "stable",
		GeneratedAt:  time.Now(),
		Degraded:     make(map[string]bool),
		SourceErrors: make(map[string]string),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	fail := func(source string, err error) {
		sourceErr := &models.SourceFailureError{Source: source, Err: err}
		a.logger.Warn("kpi source unavailable, degrading field",
			zap.String("source", source),
			zap.Error(err),
		)
		mu.Lock()
		snapshot.Degraded[source] = true
		snapshot.SourceErrors[source] = sourceErr.Error()
		mu.Unlock()
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		stats, err := a.provider.AssetStats(ctx)
		if err != nil {
			fail(SourceAssets, err)
			return
		}
		mu.Lock()
		snapshot.TotalAssets = stats.TotalAssets
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		stats, err := a.provider.RiskStats(ctx)
		if err != nil {
			fail(SourceRisks, err)
			return
		}
		mu.Lock()
		snapshot.CriticalRisks = stats.CriticalRisks
		if stats.Trend != "" {
			snapshot.RiskTrend = stats.Trend
		}
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		stats, err := a.provider.VulnerabilityStats(ctx)
		if err != nil {
			fail(SourceVulnerabilities, err)
			return
		}
		mu.Lock()
		snapshot.ActiveVulnerabilities = stats.ActiveVulnerabilities
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		stats, err := a.provider.SafeguardStats(ctx)
		if err != nil {
			fail(SourceSafeguards, err)
			return
		}
		mu.Lock()
		snapshot.ImplementedSafeguards = stats.ImplementedSafeguards
		snapshot.ProgramEffectiveness = stats.AverageEffectiveness
		mu.Unlock()
	}()
	wg.Wait()

	return snapshot
}

// BuildRiskMatrix projects risk records onto the likelihood/impact plane.
// Levels come from the shared thresholds applied to residual risk, so the
// matrix can never disagree with the scorer's classification.
func (a *Aggregator) BuildRiskMatrix(records []models.RiskRecord) []MatrixCell {
	cells := make([]MatrixCell, 0, len(records))
	for _, record := range records {
		label := record.Name
		if label == "" {
			label = record.Code
		}
		cells = append(cells, MatrixCell{
			Label:      label,
			Likelihood: record.Likelihood,
			Impact:     record.Impact,
			Level:      a.thresholds.Classify(record.ResidualRisk),
		})
	}
	return cells
}

// BuildTrendSeries buckets historical snapshots by day over the requested
// window, ending today. Days without a stored snapshot report zero counts
// so the series always has exactly `days` points; charting callers rely
// on the fixed length.
func (a *Aggregator) BuildTrendSeries(ctx context.Context, days int) ([]TrendPoint, error) {
	if days <= 0 {
		return nil, &models.InvalidRangeError{Field: "days", Value: float64(days), Min: 1, Max: 365}
	}

	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -(days - 1))

	stored, err := a.snapshots.QuerySnapshots(ctx, from, to)
	if err != nil {
		a.logger.Warn("snapshot store unavailable, trend series degrades to zeros", zap.Error(err))
		stored = nil
	}

	byDay := make(map[string]DailySnapshot, len(stored))
	for _, snap := range stored {
		byDay[snap.Date.UTC().Format("2006-01-02")] = snap
	}

	series := make([]TrendPoint, 0, days)
	for d := 0; d < days; d++ {
		day := from.AddDate(0, 0, d).Format("2006-01-02")
		point := TrendPoint{Date: day}
		if snap, ok := byDay[day]; ok {
			point.Risks = snap.Risks
			point.Vulnerabilities = snap.Vulnerabilities
			point.Safeguards = snap.Safeguards
		}
		series = append(series, point)
	}
	return series, nil
}
