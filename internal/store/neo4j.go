package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/magerisk/pkg/models"
)

// Neo4jConfig holds connection settings for the graph database
type Neo4jConfig struct {
	URI         string        `yaml:"uri"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	MaxPoolSize int           `yaml:"max_pool_size"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
}

// Entity node labels
const (
	labelAsset         = "Asset"
	labelThreat        = "Threat"
	labelVulnerability = "Vulnerability"
	labelSafeguard     = "Safeguard"
	labelRiskRecord    = "RiskRecord"
)

// Neo4jStore persists the risk inventory in Neo4j. Each entity is a node
// holding its JSON document; asset dependencies become DEPENDS_ON edges
// so graph queries can follow them natively.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewNeo4jStore connects to Neo4j and prepares the schema
func NewNeo4jStore(cfg Neo4jConfig, logger *zap.Logger) (*Neo4jStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) {
			if cfg.MaxPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxPoolSize
			}
			c.MaxConnectionLifetime = time.Hour
			if cfg.ConnTimeout > 0 {
				c.ConnectionAcquisitionTimeout = cfg.ConnTimeout
			}
		},
	)
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verifying neo4j connectivity: %w", err)
	}

	s := &Neo4jStore{driver: driver, logger: logger}
	if err := s.initializeSchema(ctx); err != nil {
		logger.Warn("initializing neo4j schema failed", zap.Error(err))
	}
	return s, nil
}

// initializeSchema creates uniqueness constraints per entity label
func (s *Neo4jStore) initializeSchema(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	labels := []string{labelAsset, labelThreat, labelVulnerability, labelSafeguard, labelRiskRecord}
	for _, label := range labels {
		query := fmt.Sprintf(
			"CREATE CONSTRAINT %s_id_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE",
			toSnake(label), label,
		)
		if _, err := session.Run(ctx, query, nil); err != nil {
			return fmt.Errorf("creating constraint for %s: %w", label, err)
		}
	}
	return nil
}

func toSnake(label string) string {
	out := make([]rune, 0, len(label)+4)
	for i, r := range label {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				out = append(out, '_')
			}
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}

// upsertNode writes one entity node with its JSON document
func (s *Neo4jStore) upsertNode(ctx context.Context, label, id, code string, entity interface{}) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", label, err)
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MERGE (n:%s {id: $id})
		SET n.code = $code, n.data = $data, n.updated_at = datetime()
	`, label)
	_, err = session.Run(ctx, query, map[string]interface{}{
		"id":   id,
		"code": code,
		"data": string(data),
	})
	return err
}

// loadNodes reads every document under one label
func (s *Neo4jStore) loadNodes(ctx context.Context, label string, into func(data string) error) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := fmt.Sprintf("MATCH (n:%s) RETURN n.data AS data ORDER BY n.code", label)
	result, err := session.Run(ctx, query, nil)
	if err != nil {
		return err
	}
	for result.Next(ctx) {
		data, ok := result.Record().AsMap()["data"].(string)
		if !ok {
			continue
		}
		if err := into(data); err != nil {
			s.logger.Warn("skipping undecodable node", zap.String("label", label), zap.Error(err))
		}
	}
	return result.Err()
}

// SaveAsset upserts an asset node and rewrites its DEPENDS_ON edges
func (s *Neo4jStore) SaveAsset(ctx context.Context, asset models.Asset) error {
	if err := s.upsertNode(ctx, labelAsset, asset.ID, asset.Code, asset); err != nil {
		return err
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `
		MATCH (a:Asset {id: $id})-[r:DEPENDS_ON]->()
		DELETE r
	`, map[string]interface{}{"id": asset.ID})
	if err != nil {
		return fmt.Errorf("clearing dependency edges: %w", err)
	}

	for _, dep := range asset.Dependencies {
		_, err := session.Run(ctx, `
			MATCH (a:Asset {id: $from})
			MERGE (b:Asset {id: $to})
			MERGE (a)-[:DEPENDS_ON]->(b)
		`, map[string]interface{}{"from": asset.ID, "to": dep})
		if err != nil {
			return fmt.Errorf("creating dependency edge: %w", err)
		}
	}
	return nil
}

// DeleteAsset removes an asset node and detaches its edges
func (s *Neo4jStore) DeleteAsset(ctx context.Context, id string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `
		MATCH (n:Asset {id: $id})
		DETACH DELETE n
	`, map[string]interface{}{"id": id})
	return err
}

// SaveThreat upserts a threat node
func (s *Neo4jStore) SaveThreat(ctx context.Context, threat models.Threat) error {
	return s.upsertNode(ctx, labelThreat, threat.ID, threat.Code, threat)
}

// SaveVulnerability upserts a vulnerability node
func (s *Neo4jStore) SaveVulnerability(ctx context.Context, vuln models.Vulnerability) error {
	return s.upsertNode(ctx, labelVulnerability, vuln.ID, vuln.Code, vuln)
}

// SaveSafeguard upserts a safeguard node
func (s *Neo4jStore) SaveSafeguard(ctx context.Context, sg models.Safeguard) error {
	return s.upsertNode(ctx, labelSafeguard, sg.ID, sg.Code, sg)
}

// SaveRiskRecord upserts a risk record node
func (s *Neo4jStore) SaveRiskRecord(ctx context.Context, record models.RiskRecord) error {
	return s.upsertNode(ctx, labelRiskRecord, record.ID, record.Code, record)
}

// Inventory holds a full load of the persisted entities
type Inventory struct {
	Assets          []models.Asset
	Threats         []models.Threat
	Vulnerabilities []models.Vulnerability
	Safeguards      []models.Safeguard
	RiskRecords     []models.RiskRecord
}

// LoadInventory reads every entity kind, one goroutine per label. Any
// failed load aborts the whole read since a partial inventory would
// silently drop records.
func (s *Neo4jStore) LoadInventory(ctx context.Context) (*Inventory, error) {
	inv := &Inventory{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.loadNodes(ctx, labelAsset, func(data string) error {
			var asset models.Asset
			if err := json.Unmarshal([]byte(data), &asset); err != nil {
				return err
			}
			inv.Assets = append(inv.Assets, asset)
			return nil
		})
	})
	g.Go(func() error {
		return s.loadNodes(ctx, labelThreat, func(data string) error {
			var threat models.Threat
			if err := json.Unmarshal([]byte(data), &threat); err != nil {
				return err
			}
			inv.Threats = append(inv.Threats, threat)
			return nil
		})
	})
	g.Go(func() error {
		return s.loadNodes(ctx, labelVulnerability, func(data string) error {
			var vuln models.Vulnerability
			if err := json.Unmarshal([]byte(data), &vuln); err != nil {
				return err
			}
			inv.Vulnerabilities = append(inv.Vulnerabilities, vuln)
			return nil
		})
	})
	g.Go(func() error {
		return s.loadNodes(ctx, labelSafeguard, func(data string) error {
			var sg models.Safeguard
			if err := json.Unmarshal([]byte(data), &sg); err != nil {
				return err
			}
			inv.Safeguards = append(inv.Safeguards, sg)
			return nil
		})
	})
	g.Go(func() error {
		return s.loadNodes(ctx, labelRiskRecord, func(data string) error {
			var record models.RiskRecord
			if err := json.Unmarshal([]byte(data), &record); err != nil {
				return err
			}
			inv.RiskRecords = append(inv.RiskRecords, record)
			return nil
		})
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading inventory: %w", err)
	}
	return inv, nil
}

// Warm replays a persisted inventory into a memory store
func Warm(ctx context.Context, mem *MemoryStore, inv *Inventory) error {
	for _, threat := range inv.Threats {
		if err := mem.CreateThreat(ctx, threat); err != nil {
			return err
		}
	}
	for _, vuln := range inv.Vulnerabilities {
		if err := mem.CreateVulnerability(ctx, vuln); err != nil {
			return err
		}
	}
	for _, sg := range inv.Safeguards {
		if err := mem.CreateSafeguard(ctx, sg); err != nil {
			return err
		}
	}
	for _, asset := range inv.Assets {
		if err := mem.CreateAsset(ctx, asset); err != nil {
			return err
		}
	}
	for _, record := range inv.RiskRecords {
		if err := mem.CreateRiskRecord(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

// Ping checks database connectivity
func (s *Neo4jStore) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// Close releases the driver
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
