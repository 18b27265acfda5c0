package metrics

import (
	"fmt"
	"strings"

	"github.com/kilianp07/cogen/core/factory"
)

// Config lists the sinks each dispatch run is recorded to. No sinks means
// runs are only counted by the optimizer collectors.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}

// Validate rejects sinks without a type.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if strings.TrimSpace(s.Type) == "" {
			return fmt.Errorf("metrics: sink %d has no type", i)
		}
	}
	return nil
}

// Types returns the configured sink types in order.
func (c Config) Types() []string {
	types := make([]string, 0, len(c.Sinks))
	for _, s := range c.Sinks {
		types = append(types, s.Type)
	}
	return types
}
