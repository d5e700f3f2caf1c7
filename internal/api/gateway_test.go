package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/magerisk/internal/coverage"
	"github.com/magerisk/internal/criticality"
	"github.com/magerisk/internal/dashboard"
	"github.com/magerisk/internal/recalc"
	"github.com/magerisk/internal/risk"
	"github.com/magerisk/internal/store"
	"github.com/magerisk/pkg/models"
)

func newTestGateway(t *testing.T) (*Gateway, *store.MemoryStore) {
	t.Helper()

	mem := store.NewMemoryStore()
	thresholds := models.DefaultThresholds()
	scorer := risk.NewScorer(thresholds)
	logger := zap.NewNop()

	return NewGateway(DefaultGatewayConfig(), Deps{
		Store:       mem,
		Engine:      risk.NewEngine(scorer, mem),
		Coordinator: recalc.NewCoordinator(scorer, mem, nil, logger),
		Aggregator:  dashboard.NewAggregator(mem, mem, thresholds, logger),
		Analyzer:    coverage.NewAnalyzer(thresholds),
		Calculator:  criticality.NewCalculator(criticality.DefaultConfig()),
		Logger:      logger,
	}), mem
}

func doJSON(t *testing.T, g *Gateway, method, path string, body interface{}) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	g.Router().ServeHTTP(rec, req)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func decodeData(t *testing.T, resp APIResponse, target interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, target))
}

func TestCreateAsset_ComputesCriticality(t *testing.T) {
	g, _ := newTestGateway(t)

	rec, resp := doJSON(t, g, http.MethodPost, "/api/v1/assets", models.CreateAssetRequest{
		Code: "ACT-001", Name: "Core database", Type: "hardware",
		Valuation: models.Valuation{
			Confidentiality: 8, Integrity: 9, Availability: 9, Authenticity: 7, Traceability: 6,
		},
		EconomicValue: 50000,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	var asset models.Asset
	decodeData(t, resp, &asset)
	assert.NotEmpty(t, asset.ID)
	assert.InDelta(t, 8.46, asset.Criticality, 1e-9)
	assert.InDelta(t, 7.8, asset.AverageValuation, 1e-9)
}

func TestCreateAsset_RejectsOutOfRangeValuation(t *testing.T) {
	g, _ := newTestGateway(t)

	rec, resp := doJSON(t, g, http.MethodPost, "/api/v1/assets", models.CreateAssetRequest{
		Code: "ACT-001", Name: "Bad",
		Valuation: models.Valuation{Confidentiality: 11},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_RANGE", resp.Error.Code)
}

func TestGetAsset_NotFound(t *testing.T) {
	g, _ := newTestGateway(t)

	rec, resp := doJSON(t, g, http.MethodGet, "/api/v1/assets/missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestBulkImport_RowIsolation(t *testing.T) {
	g, mem := newTestGateway(t)

	rows := []map[string]string{
		{"code": "ACT-001", "name": "One", "confidentiality": "5", "integrity": "5", "availability": "5", "authenticity": "5", "traceability": "5", "economic_value": "1000"},
		{"code": "ACT-002", "name": "Two", "confidentiality": "5", "integrity": "5", "availability": "5", "authenticity": "5", "traceability": "5", "economic_value": "lots of money"},
		{"code": "ACT-003", "name": "Three", "confidentiality": "5", "integrity": "5", "availability": "5", "authenticity": "5", "traceability": "5", "economic_value": "2000"},
	}

	rec, resp := doJSON(t, g, http.MethodPost, "/api/v1/assets/bulk-import", rows)
	require.Equal(t, http.StatusOK, rec.Code)

	var outcome struct {
		Successful int      `json:"successful"`
		Failed     int      `json:"failed"`
		Errors     []string `json:"errors"`
	}
	decodeData(t, resp, &outcome)
	assert.Equal(t, 2, outcome.Successful)
	assert.Equal(t, 1, outcome.Failed)
	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0], "not a number")

	assets, err := mem.ListAssets(context.Background())
	require.NoError(t, err)
	assert.Len(t, assets, 2)
}

func seedRiskEntities(t *testing.T, mem *store.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, mem.CreateAsset(ctx, models.Asset{ID: "a-1", Code: "ACT-001", Name: "Database"}))
	require.NoError(t, mem.CreateThreat(ctx, models.Threat{ID: "t-1", Code: "AME-001", Name: "Ransomware", Likelihood: 7}))
	require.NoError(t, mem.CreateSafeguard(ctx, models.Safeguard{
		ID: "s-1", Code: "SG-001", Name: "Backups", Effectiveness: 60, Status: models.SafeguardStatusOperational,
	}))
}

func TestCalculateRisk(t *testing.T) {
	g, mem := newTestGateway(t)
	seedRiskEntities(t, mem)

	rec, resp := doJSON(t, g, http.MethodPost, "/api/v1/risks/calculate", risk.CalculationRequest{
		AssetID: "a-1", ThreatID: "t-1", Likelihood: 7, Impact: 8, SafeguardIDs: []string{"s-1"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result risk.CalculationResult
	decodeData(t, resp, &result)
	assert.InDelta(t, 5.6, result.InherentRisk, 1e-9)
	assert.InDelta(t, 2.24, result.ResidualRisk, 1e-9)
	assert.Equal(t, models.RiskLevelLow, result.ResidualLevel)
}

func TestCreateRisk_PersistsDerivedFields(t *testing.T) {
	g, mem := newTestGateway(t)
	seedRiskEntities(t, mem)

	rec, resp := doJSON(t, g, http.MethodPost, "/api/v1/risks", models.CreateRiskRequest{
		Code: "R-001", Name: "Ransomware on database", AssetID: "a-1", ThreatID: "t-1",
		Likelihood: 7, Impact: 8, Treatment: models.TreatmentMitigate,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var record models.RiskRecord
	decodeData(t, resp, &record)
	assert.InDelta(t, 5.6, record.InherentRisk, 1e-9)
	assert.Equal(t, models.RiskLevelMedium, record.Level)
	assert.False(t, record.LastEvaluatedAt.IsZero())

	stored, err := mem.GetRiskRecord(context.Background(), record.ID)
	require.NoError(t, err)
	assert.InDelta(t, 5.6, stored.InherentRisk, 1e-9)
}

func TestRecalculateAll(t *testing.T) {
	g, mem := newTestGateway(t)
	seedRiskEntities(t, mem)
	require.NoError(t, mem.CreateRiskRecord(context.Background(), models.RiskRecord{
		ID: "r-1", Code: "R-001", AssetID: "a-1", ThreatID: "t-1", Likelihood: 7, Impact: 8,
	}))

	rec, resp := doJSON(t, g, http.MethodPost, "/api/v1/risks/recalculate-all", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report recalc.Report
	decodeData(t, resp, &report)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Updated)
}

func TestCoverageEndpoint(t *testing.T) {
	g, mem := newTestGateway(t)
	ctx := context.Background()
	require.NoError(t, mem.CreateThreat(ctx, models.Threat{ID: "t-1", Code: "AME-001", Name: "Fire", Likelihood: 3}))
	require.NoError(t, mem.CreateThreat(ctx, models.Threat{ID: "t-2", Code: "AME-002", Name: "Phishing", Likelihood: 8}))
	require.NoError(t, mem.CreateSafeguard(ctx, models.Safeguard{
		ID: "s-1", Code: "SG-001", Effectiveness: 70,
		Status: models.SafeguardStatusImplemented, ControlsThreats: []string{"t-1"},
	}))

	rec, resp := doJSON(t, g, http.MethodGet, "/api/v1/safeguards/coverage", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report coverage.Report
	decodeData(t, resp, &report)
	assert.Equal(t, 2, report.TotalThreats)
	assert.Equal(t, 1, report.CoveredThreats)
	assert.InDelta(t, 50, report.CoveragePercentage, 1e-9)
	require.Len(t, report.UncoveredThreats, 1)
	assert.Equal(t, "AME-002", report.UncoveredThreats[0].Threat.Code)
}

func TestDashboardEndpoints(t *testing.T) {
	g, mem := newTestGateway(t)
	seedRiskEntities(t, mem)

	rec, resp := doJSON(t, g, http.MethodGet, "/api/v1/dashboard/kpis", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot dashboard.KPISnapshot
	decodeData(t, resp, &snapshot)
	assert.Equal(t, 1, snapshot.TotalAssets)
	assert.Equal(t, "stable", snapshot.RiskTrend)

	rec, resp = doJSON(t, g, http.MethodGet, "/api/v1/dashboard/trends?range=7d", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var series []dashboard.TrendPoint
	decodeData(t, resp, &series)
	assert.Len(t, series, 7)

	rec, _ = doJSON(t, g, http.MethodGet, "/api/v1/dashboard/trends?range=14d", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDanglingReferencesEndpoint(t *testing.T) {
	g, mem := newTestGateway(t)
	require.NoError(t, mem.CreateRiskRecord(context.Background(), models.RiskRecord{
		ID: "r-1", Code: "R-001", AssetID: "gone", ThreatID: "also-gone",
	}))

	rec, resp := doJSON(t, g, http.MethodGet, "/api/v1/risks/dangling", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 2, resp.Meta.Total)
}

func TestHealthEndpoint(t *testing.T) {
	g, _ := newTestGateway(t)
	rec, resp := doJSON(t, g, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}
