package recalc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/magerisk/internal/risk"
	"github.com/magerisk/pkg/models"
)

// Repository is the collaborator a recalculation pass reads records and
// references from, and writes derived fields back to.
type Repository interface {
	ListRiskRecords(ctx context.Context) ([]models.RiskRecord, error)
	GetAsset(ctx context.Context, id string) (models.Asset, error)
	GetThreat(ctx context.Context, id string) (models.Threat, error)
	GetSafeguard(ctx context.Context, id string) (models.Safeguard, error)
	// SaveRiskDerived persists only the derived fields of a record
	// (inherent risk, residual risk, level, evaluation timestamp).
	SaveRiskDerived(ctx context.Context, record models.RiskRecord) error
}

// Publisher emits platform events after a completed pass
type Publisher interface {
	Publish(ctx context.Context, event models.BaseEvent) error
}

// RecordFailure represents one skipped record of a pass
type RecordFailure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Report represents the outcome of a full recalculation pass
type Report struct {
	Processed int             `json:"processed"`
	Updated   int             `json:"updated"`
	Failed    int             `json:"failed"`
	Failures  []RecordFailure `json:"failures,omitempty"`
}

// Coordinator re-runs the risk scorer over every risk record exactly once
// per trigger. Only one pass may run at a time: a second trigger while one
// is running fails immediately with a conflict instead of queueing, since
// interleaved passes over the same record set could produce inconsistent
// derived state.
type Coordinator struct {
	scorer    *risk.Scorer
	repo      Repository
	publisher Publisher
	logger    *zap.Logger
	running   atomic.Bool
}

// NewCoordinator creates a recalculation coordinator
func NewCoordinator(scorer *risk.Scorer, repo Repository, publisher Publisher, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		scorer:    scorer,
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// Running reports whether a pass is currently in progress
func (c *Coordinator) Running() bool {
	return c.running.Load()
}

// Run executes one full recalculation pass. Records are processed in
// ascending code order so logs and reports are reproducible. A record is
// written back only when a derived field actually changed, which makes a
// second pass over unchanged data report Updated == 0. Per-record
// failures (dangling references, out-of-range inputs) are recorded and
// skipped, never fatal to the pass.
func (c *Coordinator) Run(ctx context.Context) (Report, error) {
	if !c.running.CompareAndSwap(false, true) {
		return Report{}, &models.ConflictError{Reason: "recalculation pass already in progress"}
	}
	defer c.running.Store(false)

	records, err := c.repo.ListRiskRecords(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("listing risk records: %w", err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Code < records[j].Code })

	report := Report{}
	for _, record := range records {
		report.Processed++

		updated, err := c.recalculateRecord(ctx, record)
		if err != nil {
			report.Failed++
			report.Failures = append(report.Failures, RecordFailure{Code: record.Code, Message: err.Error()})
			c.logger.Warn("skipping risk record",
				zap.String("code", record.Code),
				zap.Error(err),
			)
			continue
		}
		if updated {
			report.Updated++
		}
	}

	c.logger.Info("recalculation pass finished",
		zap.Int("processed", report.Processed),
		zap.Int("updated", report.Updated),
		zap.Int("failed", report.Failed),
	)

	if c.publisher != nil {
		event := models.NewEvent(models.EventTypeRiskRecalculated, "recalc", "", "full risk recalculation pass completed")
		event.Metadata = map[string]interface{}{
			"processed": report.Processed,
			"updated":   report.Updated,
			"failed":    report.Failed,
		}
		if err := c.publisher.Publish(ctx, event); err != nil {
			c.logger.Warn("publishing recalculation event failed", zap.Error(err))
		}
	}

	return report, nil
}

// recalculateRecord recomputes one record's derived fields against its
// current references and persists them only on change.
func (c *Coordinator) recalculateRecord(ctx context.Context, record models.RiskRecord) (bool, error) {
	if _, err := c.repo.GetAsset(ctx, record.AssetID); err != nil {
		return false, c.asDangling(record, "asset", record.AssetID, err)
	}
	if _, err := c.repo.GetThreat(ctx, record.ThreatID); err != nil {
		return false, c.asDangling(record, "threat", record.ThreatID, err)
	}

	safeguards := make([]models.Safeguard, 0, len(record.SafeguardIDs))
	for _, id := range record.SafeguardIDs {
		sg, err := c.repo.GetSafeguard(ctx, id)
		if err != nil {
			return false, c.asDangling(record, "safeguard", id, err)
		}
		safeguards = append(safeguards, sg)
	}

	score, err := c.scorer.ScoreRecord(record.Likelihood, record.Impact, safeguards)
	if err != nil {
		return false, err
	}

	if record.InherentRisk == score.InherentRisk &&
		record.ResidualRisk == score.ResidualRisk &&
		record.Level == score.ResidualLevel {
		return false, nil
	}

	record.InherentRisk = score.InherentRisk
	record.ResidualRisk = score.ResidualRisk
	record.Level = score.ResidualLevel
	record.LastEvaluatedAt = time.Now()

	if err := c.repo.SaveRiskDerived(ctx, record); err != nil {
		return false, fmt.Errorf("persisting derived fields: %w", err)
	}
	return true, nil
}

// asDangling maps a missing reference to a dangling-reference failure so
// bulk reports distinguish stale records from other errors.
func (c *Coordinator) asDangling(record models.RiskRecord, entity, id string, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return &models.DanglingReferenceError{RecordCode: record.Code, Entity: entity, ID: id}
	}
	return err
}
