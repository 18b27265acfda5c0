package config

import (
	"errors"

	"github.com/go-viper/mapstructure/v2"

	"github.com/kilianp07/cogen/core/plant"
)

// plantDefaults is a koanf provider seeding plant.limits and plant.costs
// key by key, so a file or environment override of one field keeps the
// others. Generators are a list and stay all-or-nothing.
type plantDefaults struct{}

func (plantDefaults) ReadBytes() ([]byte, error) {
	return nil, errors.New("plant defaults: raw bytes not supported")
}

func (plantDefaults) Read() (map[string]any, error) {
	d := plant.Default()
	limits, err := toMap(d.Limits)
	if err != nil {
		return nil, err
	}
	costs, err := toMap(d.Costs)
	if err != nil {
		return nil, err
	}
	return map[string]any{"plant": map[string]any{"limits": limits, "costs": costs}}, nil
}

func toMap(v any) (map[string]any, error) {
	out := map[string]any{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: &out})
	if err != nil {
		return nil, err
	}
	return out, dec.Decode(v)
}
