package tariff

import "fmt"

const (
	PresetThreeBand = "three_band"
	PresetTwoBand   = "two_band"
)

var presets = map[string][]Band{
	PresetThreeBand: {
		{Period: "peak", Start: 17, End: 22, Price: 1.271},
		{Period: "standard", Start: 7, End: 17, Price: 0.897},
		{Period: "off_peak", Start: 22, End: 7, Price: 0.552},
	},
	PresetTwoBand: {
		{Period: "peak", Start: 17, End: 22, Price: 1.27},
		{Period: "off_peak", Start: 22, End: 17, Price: 0.55},
	},
}

// Config selects a preset or lists explicit bands. Bands win over Preset.
type Config struct {
	Preset string `json:"preset"`
	Bands  []Band `json:"bands"`
}

// SetDefaults selects the three-band preset.
func (c *Config) SetDefaults() {
	if c.Preset == "" && len(c.Bands) == 0 {
		c.Preset = PresetThreeBand
	}
}

// Validate checks that the configuration builds a schedule.
func (c Config) Validate() error {
	_, err := c.Schedule()
	return err
}

// Schedule builds the configured schedule.
func (c Config) Schedule() (*Schedule, error) {
	if len(c.Bands) > 0 {
		return NewSchedule(c.Bands)
	}
	name := c.Preset
	if name == "" {
		name = PresetThreeBand
	}
	bands, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown preset %q", ErrInvalidSchedule, name)
	}
	return NewSchedule(bands)
}

// Default returns the three-band schedule.
func Default() *Schedule {
	s, err := Config{Preset: PresetThreeBand}.Schedule()
	if err != nil {
		panic(err)
	}
	return s
}
