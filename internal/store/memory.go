package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/magerisk/internal/dashboard"
	"github.com/magerisk/internal/graph"
	"github.com/magerisk/pkg/models"
)

// MemoryStore is the in-memory serving store. It backs the risk engine,
// the recalculation coordinator and the dashboard aggregator, and keeps
// the asset dependency graph consistent with the inventory.
type MemoryStore struct {
	mu         sync.RWMutex
	assets     map[string]models.Asset
	threats    map[string]models.Threat
	vulns      map[string]models.Vulnerability
	safeguards map[string]models.Safeguard
	records    map[string]models.RiskRecord
	snapshots  []dashboard.DailySnapshot
	deps       *graph.DependencyGraph
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assets:     make(map[string]models.Asset),
		threats:    make(map[string]models.Threat),
		vulns:      make(map[string]models.Vulnerability),
		safeguards: make(map[string]models.Safeguard),
		records:    make(map[string]models.RiskRecord),
		deps:       graph.NewDependencyGraph(),
	}
}

// Assets

// CreateAsset stores a new asset. Declared dependencies are added to the
// dependency graph first; an edge that would close a cycle rejects the
// whole create.
func (s *MemoryStore) CreateAsset(_ context.Context, asset models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.assets[asset.ID]; exists {
		return &models.ConflictError{Reason: "asset " + asset.ID + " already exists"}
	}
	added := make([]string, 0, len(asset.Dependencies))
	for _, dep := range asset.Dependencies {
		if err := s.deps.AddDependency(asset.ID, dep); err != nil {
			for _, a := range added {
				s.deps.RemoveDependency(asset.ID, a)
			}
			return err
		}
		added = append(added, dep)
	}
	s.assets[asset.ID] = asset
	return nil
}

// GetAsset retrieves an asset by id
func (s *MemoryStore) GetAsset(_ context.Context, id string) (models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset, ok := s.assets[id]
	if !ok {
		return models.Asset{}, &models.NotFoundError{Entity: "asset", ID: id}
	}
	return asset, nil
}

// UpdateAsset replaces a stored asset. Dependency edges are rebuilt from
// the new Dependencies field under the same acyclicity check.
func (s *MemoryStore) UpdateAsset(_ context.Context, asset models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.assets[asset.ID]
	if !ok {
		return &models.NotFoundError{Entity: "asset", ID: asset.ID}
	}
	for _, dep := range current.Dependencies {
		s.deps.RemoveDependency(asset.ID, dep)
	}
	for i, dep := range asset.Dependencies {
		if err := s.deps.AddDependency(asset.ID, dep); err != nil {
			for _, a := range asset.Dependencies[:i] {
				s.deps.RemoveDependency(asset.ID, a)
			}
			// Restoring edges that were already acyclic cannot fail.
			for _, dep := range current.Dependencies {
				_ = s.deps.AddDependency(asset.ID, dep)
			}
			return err
		}
	}
	asset.CreatedAt = current.CreatedAt
	asset.UpdatedAt = time.Now()
	s.assets[asset.ID] = asset
	return nil
}

// DeleteAsset removes an asset and detaches it from the dependency graph.
// Risk records referencing it are left in place; they surface as dangling
// references on the next recalculation pass.
func (s *MemoryStore) DeleteAsset(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[id]; !ok {
		return &models.NotFoundError{Entity: "asset", ID: id}
	}
	delete(s.assets, id)
	s.deps.RemoveAsset(id)
	return nil
}

// ListAssets returns all assets sorted by code
func (s *MemoryStore) ListAssets(_ context.Context) ([]models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Asset, 0, len(s.assets))
	for _, a := range s.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// DependencyGraph exposes the live dependency graph
func (s *MemoryStore) DependencyGraph() *graph.DependencyGraph {
	return s.deps
}

// Threats

func (s *MemoryStore) CreateThreat(_ context.Context, threat models.Threat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.threats[threat.ID]; exists {
		return &models.ConflictError{Reason: "threat " + threat.ID + " already exists"}
	}
	s.threats[threat.ID] = threat
	return nil
}

func (s *MemoryStore) GetThreat(_ context.Context, id string) (models.Threat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	threat, ok := s.threats[id]
	if !ok {
		return models.Threat{}, &models.NotFoundError{Entity: "threat", ID: id}
	}
	return threat, nil
}

func (s *MemoryStore) ListThreats(_ context.Context) ([]models.Threat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Threat, 0, len(s.threats))
	for _, t := range s.threats {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Vulnerabilities

func (s *MemoryStore) CreateVulnerability(_ context.Context, vuln models.Vulnerability) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.vulns[vuln.ID]; exists {
		return &models.ConflictError{Reason: "vulnerability " + vuln.ID + " already exists"}
	}
	s.vulns[vuln.ID] = vuln
	return nil
}

func (s *MemoryStore) GetVulnerability(_ context.Context, id string) (models.Vulnerability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vuln, ok := s.vulns[id]
	if !ok {
		return models.Vulnerability{}, &models.NotFoundError{Entity: "vulnerability", ID: id}
	}
	return vuln, nil
}

func (s *MemoryStore) ListVulnerabilities(_ context.Context) ([]models.Vulnerability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Vulnerability, 0, len(s.vulns))
	for _, v := range s.vulns {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Safeguards

func (s *MemoryStore) CreateSafeguard(_ context.Context, sg models.Safeguard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.safeguards[sg.ID]; exists {
		return &models.ConflictError{Reason: "safeguard " + sg.ID + " already exists"}
	}
	s.safeguards[sg.ID] = sg
	return nil
}

func (s *MemoryStore) GetSafeguard(_ context.Context, id string) (models.Safeguard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sg, ok := s.safeguards[id]
	if !ok {
		return models.Safeguard{}, &models.NotFoundError{Entity: "safeguard", ID: id}
	}
	return sg, nil
}

func (s *MemoryStore) UpdateSafeguard(_ context.Context, sg models.Safeguard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.safeguards[sg.ID]; !ok {
		return &models.NotFoundError{Entity: "safeguard", ID: sg.ID}
	}
	sg.UpdatedAt = time.Now()
	s.safeguards[sg.ID] = sg
	return nil
}

func (s *MemoryStore) ListSafeguards(_ context.Context) ([]models.Safeguard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Safeguard, 0, len(s.safeguards))
	for _, sg := range s.safeguards {
		out = append(out, sg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Risk records

func (s *MemoryStore) CreateRiskRecord(_ context.Context, record models.RiskRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return &models.ConflictError{Reason: "risk record " + record.ID + " already exists"}
	}
	s.records[record.ID] = record
	return nil
}

func (s *MemoryStore) GetRiskRecord(_ context.Context, id string) (models.RiskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return models.RiskRecord{}, &models.NotFoundError{Entity: "risk record", ID: id}
	}
	return record, nil
}

func (s *MemoryStore) ListRiskRecords(_ context.Context) ([]models.RiskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.RiskRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// SaveRiskDerived overwrites only the derived fields of a stored record
func (s *MemoryStore) SaveRiskDerived(_ context.Context, record models.RiskRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[record.ID]
	if !ok {
		return &models.NotFoundError{Entity: "risk record", ID: record.ID}
	}
	current.InherentRisk = record.InherentRisk
	current.ResidualRisk = record.ResidualRisk
	current.Level = record.Level
	current.LastEvaluatedAt = record.LastEvaluatedAt
	s.records[record.ID] = current
	return nil
}

// FindDanglingReferences scans every risk record for references to
// entities that no longer exist. Detection only, nothing is deleted.
func (s *MemoryStore) FindDanglingReferences(_ context.Context) []models.DanglingReferenceError {
	s.mu.RLock()
	defer s.mu.RUnlock()

	codes := make([]string, 0, len(s.records))
	byCode := make(map[string]models.RiskRecord, len(s.records))
	for _, r := range s.records {
		codes = append(codes, r.Code)
		byCode[r.Code] = r
	}
	sort.Strings(codes)

	var dangling []models.DanglingReferenceError
	for _, code := range codes {
		record := byCode[code]
		if _, ok := s.assets[record.AssetID]; !ok {
			dangling = append(dangling, models.DanglingReferenceError{RecordCode: record.Code, Entity: "asset", ID: record.AssetID})
		}
		if _, ok := s.threats[record.ThreatID]; !ok {
			dangling = append(dangling, models.DanglingReferenceError{RecordCode: record.Code, Entity: "threat", ID: record.ThreatID})
		}
		if record.VulnerabilityID != "" {
			if _, ok := s.vulns[record.VulnerabilityID]; !ok {
				dangling = append(dangling, models.DanglingReferenceError{RecordCode: record.Code, Entity: "vulnerability", ID: record.VulnerabilityID})
			}
		}
		for _, id := range record.SafeguardIDs {
			if _, ok := s.safeguards[id]; !ok {
				dangling = append(dangling, models.DanglingReferenceError{RecordCode: record.Code, Entity: "safeguard", ID: id})
			}
		}
	}
	return dangling
}
