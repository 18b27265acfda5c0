package model

import (
	"fmt"
	"strings"
)

// GeneratorCount is the number of steam turbo-generators (GTA) on site.
const GeneratorCount = 3

// GeneratorID identifies a turbo-generator, 1 to GeneratorCount.
type GeneratorID int

// Valid reports whether the id designates an installed generator.
func (id GeneratorID) Valid() bool { return id >= 1 && id <= GeneratorCount }

// String returns the operator-facing name, e.g. "GTA 2".
func (id GeneratorID) String() string { return fmt.Sprintf("GTA %d", int(id)) }

// GeneratorIDs lists every installed generator in ascending order.
func GeneratorIDs() []GeneratorID {
	ids := make([]GeneratorID, GeneratorCount)
	for i := range ids {
		ids[i] = GeneratorID(i + 1)
	}
	return ids
}

// GeneratorStatus is the externally supplied operating status of a generator.
type GeneratorStatus string

const (
	StatusOn          GeneratorStatus = "ON"
	StatusOff         GeneratorStatus = "OFF"
	StatusMaintenance GeneratorStatus = "MAINTENANCE"
)

// ParseGeneratorStatus parses a case-insensitive status flag.
func ParseGeneratorStatus(s string) (GeneratorStatus, error) {
	switch GeneratorStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusOn:
		return StatusOn, nil
	case StatusOff:
		return StatusOff, nil
	case StatusMaintenance:
		return StatusMaintenance, nil
	default:
		return "", fmt.Errorf("%w: unknown generator status %q", ErrInvalidInput, s)
	}
}

// UnmarshalText accepts any casing of ON, OFF or MAINTENANCE.
func (s *GeneratorStatus) UnmarshalText(b []byte) error {
	v, err := ParseGeneratorStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// GeneratorSetpoint is the solved operating point of one generator.
type GeneratorSetpoint struct {
	ID         GeneratorID `json:"gta_number"`
	Admission  float64     `json:"admission"`  // HP steam in, T/h
	Extraction float64     `json:"extraction"` // MP steam drawn off, T/h
	Power      float64     `json:"power"`      // predicted output, MW
}
