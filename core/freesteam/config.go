package freesteam

import (
	"fmt"
	"time"

	"github.com/kilianp07/cogen/core/factory"
)

// Config configures the free steam estimator.
type Config struct {
	Source factory.ModuleConfig `json:"source"`
	Cache  factory.ModuleConfig `json:"cache"`
	// SteamRatio converts sulfur unit flow to steam. 1 keeps the plain sum.
	SteamRatio float64 `json:"steam_ratio"`
	// IntervalSeconds is the dispatch interval used as memoization key.
	IntervalSeconds int `json:"interval_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.SteamRatio == 0 {
		c.SteamRatio = 1
	}
	if c.IntervalSeconds == 0 {
		c.IntervalSeconds = 900
	}
}

// Validate checks ranges.
func (c Config) Validate() error {
	if c.SteamRatio < 0 {
		return fmt.Errorf("free_steam.steam_ratio must not be negative")
	}
	if c.IntervalSeconds < 0 {
		return fmt.Errorf("free_steam.interval_seconds must not be negative")
	}
	return nil
}

// Interval returns the memoization interval.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}
