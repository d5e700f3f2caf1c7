package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration
type Config struct {
	Graph       GraphConfig       `yaml:"graph"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Risk        RiskConfig        `yaml:"risk"`
	Criticality CriticalityConfig `yaml:"criticality"`
	API         APIConfig         `yaml:"api"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// GraphConfig represents Neo4j database configuration
type GraphConfig struct {
	Enabled     bool          `yaml:"enabled"`
	URI         string        `yaml:"uri"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	MaxPoolSize int           `yaml:"max_pool_size"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
}

// KafkaConfig represents event stream configuration
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// RiskConfig represents risk classification thresholds
type RiskConfig struct {
	CriticalThreshold float64 `yaml:"critical_threshold"`
	HighThreshold     float64 `yaml:"high_threshold"`
	MediumThreshold   float64 `yaml:"medium_threshold"`
	LowThreshold      float64 `yaml:"low_threshold"`
}

// CriticalityConfig represents asset criticality weighting
type CriticalityConfig struct {
	DimensionWeight float64 `yaml:"dimension_weight"`
	EconomicWeight  float64 `yaml:"economic_weight"`
	EconomicCeiling float64 `yaml:"economic_ceiling"`
}

// APIConfig represents HTTP gateway configuration
type APIConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	EnableCORS     bool          `yaml:"enable_cors"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Graph: GraphConfig{
			URI:         "bolt://localhost:7687",
			Username:    "neo4j",
			MaxPoolSize: 50,
			ConnTimeout: 30 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "magerisk-events",
		},
		Risk: RiskConfig{
			CriticalThreshold: 8,
			HighThreshold:     6,
			MediumThreshold:   4,
			LowThreshold:      2,
		},
		Criticality: CriticalityConfig{
			DimensionWeight: 0.7,
			EconomicWeight:  0.3,
			EconomicCeiling: 50000,
		},
		API: APIConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			EnableCORS:   true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from the file named by CONFIG_PATH, falling
// back to config/config.yaml. A missing file yields the defaults; a
// present but malformed file is an error.
func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg := Default()
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
