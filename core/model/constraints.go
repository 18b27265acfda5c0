package model

import (
	"fmt"
	"math"
)

// Constraints are the optional business constraints applied to a single
// optimization call. A nil field means the constraint is not requested.
type Constraints struct {
	GTA1Status    *GeneratorStatus `json:"gta1_status,omitempty"`
	GTA2Status    *GeneratorStatus `json:"gta2_status,omitempty"`
	GTA3Status    *GeneratorStatus `json:"gta3_status,omitempty"`
	CapSteam      *float64         `json:"cap_steam,omitempty"`       // minimum total steam for the CAP consumer, T/h
	MaxGridImport *float64         `json:"max_grid_import,omitempty"` // overrides the substation limit, MW
	SulfurMax     *float64         `json:"sulfur_max,omitempty"`      // overrides free-steam availability, T/h
	// MinGTACount is accepted but not enforced: the linear model has no
	// on/off decision variables.
	MinGTACount *int `json:"min_gta_count,omitempty"`
}

// Status returns the requested status of a generator, StatusOn when unset.
func (c Constraints) Status(id GeneratorID) GeneratorStatus {
	var s *GeneratorStatus
	switch id {
	case 1:
		s = c.GTA1Status
	case 2:
		s = c.GTA2Status
	case 3:
		s = c.GTA3Status
	}
	if s == nil {
		return StatusOn
	}
	return *s
}

// SetStatus sets the requested status of a generator.
func (c *Constraints) SetStatus(id GeneratorID, s GeneratorStatus) error {
	v := s
	switch id {
	case 1:
		c.GTA1Status = &v
	case 2:
		c.GTA2Status = &v
	case 3:
		c.GTA3Status = &v
	default:
		return fmt.Errorf("%w: generator %d", ErrInvalidInput, int(id))
	}
	return nil
}

// IsZero reports whether no constraint is set.
func (c Constraints) IsZero() bool {
	return c.GTA1Status == nil && c.GTA2Status == nil && c.GTA3Status == nil &&
		c.CapSteam == nil && c.MaxGridImport == nil && c.SulfurMax == nil && c.MinGTACount == nil
}

// Validate checks every set field.
func (c Constraints) Validate() error {
	for _, id := range GeneratorIDs() {
		if _, err := ParseGeneratorStatus(string(c.Status(id))); err != nil {
			return fmt.Errorf("gta%d_status: %w", int(id), err)
		}
	}
	limits := []struct {
		name string
		v    *float64
	}{
		{"cap_steam", c.CapSteam},
		{"max_grid_import", c.MaxGridImport},
		{"sulfur_max", c.SulfurMax},
	}
	for _, l := range limits {
		if l.v == nil {
			continue
		}
		if math.IsNaN(*l.v) || math.IsInf(*l.v, 0) || *l.v < 0 {
			return fmt.Errorf("%w: %s must be a finite non-negative number, got %v", ErrInvalidInput, l.name, *l.v)
		}
	}
	if c.MinGTACount != nil && (*c.MinGTACount < 0 || *c.MinGTACount > GeneratorCount) {
		return fmt.Errorf("%w: min_gta_count must be within 0..%d", ErrInvalidInput, GeneratorCount)
	}
	return nil
}
