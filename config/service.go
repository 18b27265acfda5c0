package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/cogen/core/factory"
	"github.com/kilianp07/cogen/infra/logger"
)

// PublishersConfig lists the external result publishers.
type PublishersConfig struct {
	Sinks     []factory.ModuleConfig `json:"sinks"`
	TimeoutMS int                    `json:"timeout_ms"`
}

func (c *PublishersConfig) SetDefaults() {
	if c.TimeoutMS == 0 {
		c.TimeoutMS = 5000
	}
}

func (c PublishersConfig) Validate() error {
	if c.TimeoutMS < 0 {
		return fmt.Errorf("publishers.timeout_ms must not be negative")
	}
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("publishers.sinks[%d].type is required", i)
		}
	}
	return nil
}

// Timeout returns the budget of one publication.
func (c PublishersConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `json:"addr"`
	// LogToken protects the journal endpoint when set.
	LogToken        string `json:"log_token"`
	ShutdownTimeout int    `json:"shutdown_timeout_seconds"`
	// MetricsAddr serves /metrics on a dedicated listener when set.
	MetricsAddr string `json:"metrics_addr"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8000"
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5
	}
}

// ShutdownGrace returns the time allowed for in-flight requests on shutdown.
func (c HTTPConfig) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

func (c HTTPConfig) Validate() error {
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("http.shutdown_timeout_seconds must not be negative")
	}
	return nil
}

// LogConfig sets the minimum level of the application logs.
type LogConfig struct {
	Level string `json:"level"`
}

func (c *LogConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

func (c LogConfig) Validate() error {
	switch c.Level {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
		return nil
	}
	return fmt.Errorf("log.level: unknown level %q", c.Level)
}

// Apply sets the level of loggers created afterwards.
func (c LogConfig) Apply() { logger.SetLevel(c.Level) }

// SavingsConfig selects where the daily savings aggregates are kept.
type SavingsConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `json:"backend"`
	Path    string `json:"path"`
}

func (c *SavingsConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Backend == "sqlite" && c.Path == "" {
		c.Path = "savings.db"
	}
}

func (c SavingsConfig) Validate() error {
	switch c.Backend {
	case "memory", "sqlite":
		return nil
	}
	return fmt.Errorf("savings.backend: unknown backend %s", c.Backend)
}
