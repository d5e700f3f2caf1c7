package config

import (
	"fmt"
	"math"
	"net/url"
	"strings"
)

// Validate checks the configuration section by section
func (c *Config) Validate() error {
	if err := c.validateGraph(); err != nil {
		return fmt.Errorf("graph config error: %w", err)
	}
	if err := c.validateKafka(); err != nil {
		return fmt.Errorf("kafka config error: %w", err)
	}
	if err := c.validateRisk(); err != nil {
		return fmt.Errorf("risk config error: %w", err)
	}
	if err := c.validateCriticality(); err != nil {
		return fmt.Errorf("criticality config error: %w", err)
	}
	if err := c.validateAPI(); err != nil {
		return fmt.Errorf("api config error: %w", err)
	}
	if err := c.validateLogging(); err != nil {
		return fmt.Errorf("logging config error: %w", err)
	}
	return nil
}

func (c *Config) validateGraph() error {
	if !c.Graph.Enabled {
		return nil
	}
	if c.Graph.URI == "" {
		return fmt.Errorf("uri is required")
	}
	if _, err := url.Parse(c.Graph.URI); err != nil {
		return fmt.Errorf("invalid uri format: %w", err)
	}
	if c.Graph.Username == "" {
		return fmt.Errorf("username is required")
	}
	return nil
}

func (c *Config) validateKafka() error {
	if !c.Kafka.Enabled {
		return nil
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("brokers is required")
	}
	for _, broker := range c.Kafka.Brokers {
		if !strings.Contains(broker, ":") {
			return fmt.Errorf("invalid broker format: %s (expected host:port)", broker)
		}
	}
	if c.Kafka.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	return nil
}

func (c *Config) validateRisk() error {
	thresholds := []struct {
		name  string
		value float64
	}{
		{"critical_threshold", c.Risk.CriticalThreshold},
		{"high_threshold", c.Risk.HighThreshold},
		{"medium_threshold", c.Risk.MediumThreshold},
		{"low_threshold", c.Risk.LowThreshold},
	}
	for _, t := range thresholds {
		if t.value < 0 || t.value > 10 {
			return fmt.Errorf("%s must be within [0, 10]", t.name)
		}
	}
	if c.Risk.CriticalThreshold <= c.Risk.HighThreshold ||
		c.Risk.HighThreshold <= c.Risk.MediumThreshold ||
		c.Risk.MediumThreshold <= c.Risk.LowThreshold {
		return fmt.Errorf("thresholds must strictly descend from critical to low")
	}
	return nil
}

func (c *Config) validateCriticality() error {
	sum := c.Criticality.DimensionWeight + c.Criticality.EconomicWeight
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("dimension_weight and economic_weight must sum to 1, got %.4f", sum)
	}
	if c.Criticality.EconomicCeiling <= 0 {
		return fmt.Errorf("economic_ceiling must be positive")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.API.Port)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid format: %s", c.Logging.Format)
	}
	return nil
}
