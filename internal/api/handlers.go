package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/magerisk/internal/health"
	"github.com/magerisk/internal/importer"
	"github.com/magerisk/internal/risk"
	"github.com/magerisk/pkg/models"
)

// Assets

func (g *Gateway) handleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := g.store.ListAssets(r.Context())
	if err != nil {
		g.writeDomainError(w, err, "Failed to list assets")
		return
	}
	g.writeSuccessResponse(w, assets, &APIMeta{Total: len(assets)})
}

func (g *Gateway) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAssetRequest
	if err := parseRequestBody(r, &req); err != nil {
		g.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to parse request body", err.Error())
		return
	}

	asset, err := models.NewAsset(req)
	if err != nil {
		g.writeDomainError(w, err, "Invalid asset")
		return
	}
	if err := g.applyCriticality(&asset); err != nil {
		g.writeDomainError(w, err, "Failed to compute criticality")
		return
	}
	if err := g.store.CreateAsset(r.Context(), asset); err != nil {
		g.writeDomainError(w, err, "Failed to create asset")
		return
	}

	g.publish(r, models.NewEvent(models.EventTypeAssetCreated, "api", asset.ID, "asset "+asset.Code+" created"))
	g.writeSuccessResponse(w, asset, nil)
}

func (g *Gateway) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := g.store.GetAsset(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		g.writeDomainError(w, err, "Asset not found")
		return
	}
	g.writeSuccessResponse(w, asset, nil)
}

func (g *Gateway) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	var asset models.Asset
	if err := parseRequestBody(r, &asset); err != nil {
		g.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to parse request body", err.Error())
		return
	}
	if id := mux.Vars(r)["id"]; asset.ID == "" {
		asset.ID = id
	} else if asset.ID != id {
		g.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "Asset ID mismatch", "")
		return
	}

	if err := asset.Valuation.Validate(); err != nil {
		g.writeDomainError(w, err, "Invalid valuation")
		return
	}
	if err := g.applyCriticality(&asset); err != nil {
		g.writeDomainError(w, err, "Failed to compute criticality")
		return
	}
	if err := g.store.UpdateAsset(r.Context(), asset); err != nil {
		g.writeDomainError(w, err, "Failed to update asset")
		return
	}

	g.publish(r, models.NewEvent(models.EventTypeAssetUpdated, "api", asset.ID, "asset "+asset.Code+" updated"))
	g.writeSuccessResponse(w, asset, nil)
}

func (g *Gateway) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := g.store.DeleteAsset(r.Context(), id); err != nil {
		g.writeDomainError(w, err, "Failed to delete asset")
		return
	}
	g.publish(r, models.NewEvent(models.EventTypeAssetDeleted, "api", id, "asset deleted"))
	g.writeSuccessResponse(w, map[string]string{"id": id}, nil)
}

// handleBulkImport validates an asset batch row by row, stores the valid
// rows and reports the rest. One bad row never aborts the batch.
func (g *Gateway) handleBulkImport(w http.ResponseWriter, r *http.Request) {
	var rows []importer.RawAssetRow
	if err := parseRequestBody(r, &rows); err != nil {
		g.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to parse request body", err.Error())
		return
	}

	batch := importer.ValidateBatch(rows)
	outcome := importer.ImportOutcome{Errors: make([]string, 0, len(batch.RowErrors))}
	for _, rowErr := range batch.RowErrors {
		outcome.Failed++
		outcome.Errors = append(outcome.Errors, rowErr.Message)
	}

	for _, req := range batch.Valid {
		asset, err := models.NewAsset(req)
		if err == nil {
			err = g.applyCriticality(&asset)
		}
		if err == nil {
			err = g.store.CreateAsset(r.Context(), asset)
		}
		if err != nil {
			outcome.Failed++
			outcome.Errors = append(outcome.Errors, req.Code+": "+err.Error())
			continue
		}
		outcome.Successful++
	}

	event := models.NewEvent(models.EventTypeImportCompleted, "api", "", "bulk asset import completed")
	event.Metadata = map[string]interface{}{
		"successful": outcome.Successful,
		"failed":     outcome.Failed,
	}
	g.publish(r, event)
	g.writeSuccessResponse(w, outcome, nil)
}

// applyCriticality recomputes the asset's derived criticality fields
func (g *Gateway) applyCriticality(asset *models.Asset) error {
	result, err := g.calculator.Compute(*asset)
	if err != nil {
		return err
	}
	asset.Criticality = result.Score
	asset.AverageValuation = result.AverageValuation
	return nil
}

// Threats

type createThreatRequest struct {
	Code        string                `json:"code"`
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Category    models.ThreatCategory `json:"category"`
	Origin      models.ThreatOrigin   `json:"origin"`
	Likelihood  float64               `json:"likelihood"`
}

func (g *Gateway) handleListThreats(w http.ResponseWriter, r *http.Request) {
	threats, err := g.store.ListThreats(r.Context())
	if err != nil {
		g.writeDomainError(w, err, "Failed to list threats")
		return
	}
	g.writeSuccessResponse(w, threats, &APIMeta{Total: len(threats)})
}

func (g *Gateway) handleCreateThreat(w http.ResponseWriter, r *http.Request) {
	var req createThreatRequest
	if err := parseRequestBody(r, &req); err != nil {
		g.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to parse request body", err.Error())
		return
	}

	threat, err := models.NewThreat(req.Code, req.Name, req.Category, req.Origin, req.Likelihood)
	if err != nil {
		g.writeDomainError(w, err, "Invalid threat")
		return
	}
	threat.Description = req.Description
	if err := g.store.CreateThreat(r.Context(), threat); err != nil {
		g.writeDomainError(w, err, "Failed to create threat")
		return
	}
	g.writeSuccessResponse(w, threat, nil)
}

// Vulnerabilities

type createVulnerabilityRequest struct {
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Category       string   `json:"category,omitempty"`
	Exploitability float64  `json:"exploitability"`
	AffectedAssets []string `json:"affected_assets,omitempty"`
	RelatedThreats []string `json:"related_threats,omitempty"`
}

func (g *Gateway) handleListVulnerabilities(w http.ResponseWriter, r *http.Request) {
	vulns, err := g.store.ListVulnerabilities(r.Context())
	if err != nil {
		g.writeDomainError(w, err, "Failed to list vulnerabilities")
		return
	}
	g.writeSuccessResponse(w, vulns, &APIMeta{Total: len(vulns)})
}

func (g *Gateway) handleCreateVulnerability(w http.ResponseWriter, r *http.Request) {
	var req createVulnerabilityRequest
	if err := parseRequestBody(r, &req); err != nil {
		g.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to parse request body", err.Error())
		return
	}

	vuln, err := models.NewVulnerability(req.Code, req.Name, req.Exploitability)
	if err != nil {
		g.writeDomainError(w, err, "Invalid vulnerability")
		return
	}
	vuln.Description = req.Description
	vuln.Category = req.Category
	vuln.AffectedAssets = req.AffectedAssets
	vuln.RelatedThreats = req.RelatedThreats
	if err := g.store.CreateVulnerability(r.Context(), vuln); err != nil {
		g.writeDomainError(w, err, "Failed to create vulnerability")
		return
	}
	g.writeSuccessResponse(w, vuln, nil)
}

// Safeguards

type createSafeguardRequest struct {
	Code            string                 `json:"code"`
	Name            string                 `json:"name"`
	Description     string                 `json:"description,omitempty"`
	Kind            models.SafeguardKind   `json:"kind"`
	Status          models.SafeguardStatus `json:"status,omitempty"`
	Effectiveness   float64                `json:"effectiveness"`
	ControlsThreats []string               `json:"controls_threats,omitempty"`
	ProtectsAssets  []string               `json:"protects_assets,omitempty"`
}

func (g *Gateway) handleListSafeguards(w http.ResponseWriter, r *http.Request) {
	safeguards, err := g.store.ListSafeguards(r.Context())
	if err != nil {
		g.writeDomainError(w, err, "Failed to list safeguards")
		return
	}
	g.writeSuccessResponse(w, safeguards, &APIMeta{Total: len(safeguards)})
}

func (g *Gateway) handleCreateSafeguard(w http.ResponseWriter, r *http.Request) {
	var req createSafeguardRequest
	if err := parseRequestBody(r, &req); err != nil {
		g.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to parse request body", err.Error())
		return
	}

	sg, err := models.NewSafeguard(req.Code, req.Name, req.Kind, req.Effectiveness)
	if err != nil {
		g.writeDomainError(w, err, "Invalid safeguard")
		return
	}
	sg.Description = req.Description
	if req.Status != "" {
		sg.Status = req.Status
	}
	sg.ControlsThreats = req.ControlsThreats
	sg.ProtectsAssets = req.ProtectsAssets
	if err := g.store.CreateSafeguard(r.Context(), sg); err != nil {
		g.writeDomainError(w, err, "Failed to create safeguard")
		return
	}
	g.writeSuccessResponse(w, sg, nil)
}

func (g *Gateway) handleUpdateSafeguard(w http.ResponseWriter, r *http.Request) {
	var sg models.Safeguard
	if err := parseRequestBody(r, &sg); err != nil {
		g.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to parse request body", err.Error())
		return
	}
	if id := mux.Vars(r)["id"]; sg.ID == "" {
		sg.ID = id
	} else if sg.ID != id {
		g.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "Safeguard ID mismatch", "")
		return
	}

	if err := sg.Validate(); err != nil {
		g.writeDomainError(w, err, "Invalid safeguard")
		return
	}
	if err := g.store.UpdateSafeguard(r.Context(), sg); err != nil {
		g.writeDomainError(w, err, "Failed to update safeguard")
		return
	}
	g.publish(r, models.NewEvent(models.EventTypeSafeguardUpdated, "api", sg.ID, "safeguard "+sg.Code+" updated"))
	g.writeSuccessResponse(w, sg, nil)
}

func (g *Gateway) handleCoverage(w http.ResponseWriter, r *http.Request) {
	threats, err := g.store.ListThreats(r.Context())
	if err != nil {
		g.writeDomainError(w, err, "Failed to list threats")
		return
	}
	safeguards, err := g.store.ListSafeguards(r.Context())
	if err != nil {
		g.writeDomainError(w, err, "Failed to list safeguards")
		return
	}

	report := g.analyzer.Evaluate(threats, safeguards)
	event := models.NewEvent(models.EventTypeCoverageEvaluated, "api", "", "safeguard coverage evaluated")
	event.Metadata = map[string]interface{}{
		"coverage_percentage": report.CoveragePercentage,
		"uncovered_threats":   len(report.UncoveredThreats),
	}
	g.publish(r, event)
	g.writeSuccessResponse(w, report, nil)
}

// Risks

func (g *Gateway) handleListRisks(w http.ResponseWriter, r *http.Request) {
	records, err := g.store.ListRiskRecords(r.Context())
	if err != nil {
		g.writeDomainError(w, err, "Failed to list risk records")
		return
	}
	g.writeSuccessResponse(w, records, &APIMeta{Total: len(records)})
}

func (g *Gateway) handleCreateRisk(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRiskRequest
	if err := parseRequestBody(r, &req); err != nil {
		g.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to parse request body", err.Error())
		return
	}

	record, err := models.NewRiskRecord(req)
	if err != nil {
		g.writeDomainError(w, err, "Invalid risk record")
		return
	}

	// Derived fields are computed up front so a fresh record never serves
	// stale zeros.
	result, err := g.engine.CalculateRisk(r.Context(), risk.CalculationRequest{
		AssetID:         req.AssetID,
		ThreatID:        req.ThreatID,
		VulnerabilityID: req.VulnerabilityID,
		Likelihood:      req.Likelihood,
		Impact:          req.Impact,
		SafeguardIDs:    req.SafeguardIDs,
		Treatment:       req.Treatment,
	})
	if err != nil {
		g.writeDomainError(w, err, "Failed to calculate risk")
		return
	}
	record.InherentRisk = result.InherentRisk
	record.ResidualRisk = result.ResidualRisk
	record.Level = result.ResidualLevel
	record.LastEvaluatedAt = time.Now()

	if err := g.store.CreateRiskRecord(r.Context(), record); err != nil {
		g.writeDomainError(w, err, "Failed to create risk record")
		return
	}
	g.writeSuccessResponse(w, record, nil)
}

func (g *Gateway) handleCalculateRisk(w http.ResponseWriter, r *http.Request) {
	var req risk.CalculationRequest
	if err := parseRequestBody(r, &req); err != nil {
		g.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to parse request body", err.Error())
		return
	}

	result, err := g.engine.CalculateRisk(r.Context(), req)
	if err != nil {
		g.writeDomainError(w, err, "Failed to calculate risk")
		return
	}
	g.writeSuccessResponse(w, result, nil)
}

// handleRecalculateAll triggers one recalculation pass. A pass already in
// flight answers 409, never queues.
func (g *Gateway) handleRecalculateAll(w http.ResponseWriter, r *http.Request) {
	report, err := g.coordinator.Run(r.Context())
	if err != nil {
		g.writeDomainError(w, err, "Recalculation failed")
		return
	}
	g.writeSuccessResponse(w, report, nil)
}

func (g *Gateway) handleDanglingReferences(w http.ResponseWriter, r *http.Request) {
	dangling := g.store.FindDanglingReferences(r.Context())
	type danglingRef struct {
		RecordCode string `json:"record_code"`
		Entity     string `json:"entity"`
		ID         string `json:"id"`
	}
	out := make([]danglingRef, 0, len(dangling))
	for _, d := range dangling {
		out = append(out, danglingRef{RecordCode: d.RecordCode, Entity: d.Entity, ID: d.ID})
	}
	g.writeSuccessResponse(w, out, &APIMeta{Total: len(out)})
}

// Dashboard

func (g *Gateway) handleKPIs(w http.ResponseWriter, r *http.Request) {
	g.writeSuccessResponse(w, g.aggregator.BuildKPISnapshot(r.Context()), nil)
}

func (g *Gateway) handleRiskMatrix(w http.ResponseWriter, r *http.Request) {
	records, err := g.store.ListRiskRecords(r.Context())
	if err != nil {
		g.writeDomainError(w, err, "Failed to list risk records")
		return
	}
	g.writeSuccessResponse(w, g.aggregator.BuildRiskMatrix(records), nil)
}

// trendWindows maps the range query parameter to a day count
var trendWindows = map[string]int{
	"7d":  7,
	"30d": 30,
	"90d": 90,
}

func (g *Gateway) handleTrends(w http.ResponseWriter, r *http.Request) {
	rangeParam := r.URL.Query().Get("range")
	if rangeParam == "" {
		rangeParam = "30d"
	}
	days, ok := trendWindows[rangeParam]
	if !ok {
		g.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid range", "supported ranges: 7d, 30d, 90d")
		return
	}

	series, err := g.aggregator.BuildTrendSeries(r.Context(), days)
	if err != nil {
		g.writeDomainError(w, err, "Failed to build trend series")
		return
	}
	g.writeSuccessResponse(w, series, nil)
}

// Health

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	results := g.checker.Check(ctx)
	g.writeSuccessResponse(w, map[string]interface{}{
		"status":    health.Overall(results),
		"checks":    results,
		"timestamp": time.Now().UTC(),
	}, nil)
}

// publish emits an event without failing the request
func (g *Gateway) publish(r *http.Request, event models.BaseEvent) {
	if err := g.publisher.Publish(r.Context(), event); err != nil {
		g.logger.Warn("publishing event failed",
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
	}
}
