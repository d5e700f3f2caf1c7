package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.InDelta(t, 0.7, cfg.Criticality.DimensionWeight, 1e-9)
	assert.InDelta(t, 50000, cfg.Criticality.EconomicCeiling, 1e-9)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  port: 9090
criticality:
  dimension_weight: 0.6
  economic_weight: 0.4
  economic_ceiling: 100000
`), 0o644))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.InDelta(t, 0.4, cfg.Criticality.EconomicWeight, 1e-9)
	// Untouched sections keep their defaults.
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_MalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [not a mapping"), 0o644))
	t.Setenv("CONFIG_PATH", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_RejectsBadSections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"weights do not sum to one", func(c *Config) { c.Criticality.EconomicWeight = 0.5 }},
		{"non-positive ceiling", func(c *Config) { c.Criticality.EconomicCeiling = 0 }},
		{"thresholds out of order", func(c *Config) { c.Risk.HighThreshold = 9 }},
		{"threshold out of range", func(c *Config) { c.Risk.CriticalThreshold = 11 }},
		{"invalid port", func(c *Config) { c.API.Port = 0 }},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"kafka enabled without topic", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Topic = "" }},
		{"graph enabled without uri", func(c *Config) { c.Graph.Enabled = true; c.Graph.URI = "" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
