// Package scenarios holds the catalogue of reference operating cases used to
// check the dispatch end to end.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/cogen/core/model"
)

// ConstraintsDef is the YAML form of the business constraints.
type ConstraintsDef struct {
	GTA1Status    string   `yaml:"gta1_status,omitempty" json:"gta1_status,omitempty"`
	GTA2Status    string   `yaml:"gta2_status,omitempty" json:"gta2_status,omitempty"`
	GTA3Status    string   `yaml:"gta3_status,omitempty" json:"gta3_status,omitempty"`
	CapSteam      *float64 `yaml:"cap_steam,omitempty" json:"cap_steam,omitempty"`
	MaxGridImport *float64 `yaml:"max_grid_import,omitempty" json:"max_grid_import,omitempty"`
	SulfurMax     *float64 `yaml:"sulfur_max,omitempty" json:"sulfur_max,omitempty"`
	MinGTACount   *int     `yaml:"min_gta_count,omitempty" json:"min_gta_count,omitempty"`
}

// ToModel converts the definition, rejecting unknown generator statuses.
func (c ConstraintsDef) ToModel() (model.Constraints, error) {
	out := model.Constraints{
		CapSteam:      c.CapSteam,
		MaxGridImport: c.MaxGridImport,
		SulfurMax:     c.SulfurMax,
		MinGTACount:   c.MinGTACount,
	}
	for i, s := range []string{c.GTA1Status, c.GTA2Status, c.GTA3Status} {
		if s == "" {
			continue
		}
		st, err := model.ParseGeneratorStatus(s)
		if err != nil {
			return model.Constraints{}, err
		}
		if err := out.SetStatus(model.GeneratorID(i+1), st); err != nil {
			return model.Constraints{}, err
		}
	}
	return out, nil
}

// Params are the inputs of one optimization call.
type Params struct {
	ElecDemand  float64        `yaml:"elec_demand" json:"elec_demand"`
	SteamDemand float64        `yaml:"steam_demand" json:"steam_demand"`
	Constraints ConstraintsDef `yaml:"constraints" json:"constraints"`
	Hour        int            `yaml:"hour" json:"hour"`
}

// Request builds the optimizer request.
func (p Params) Request() (model.Request, error) {
	c, err := p.Constraints.ToModel()
	if err != nil {
		return model.Request{}, err
	}
	h := p.Hour
	return model.Request{ElectricityDemand: p.ElecDemand, SteamDemand: p.SteamDemand, Constraints: c, Hour: &h}, nil
}

// Expected lists the checks applied to a scenario result. Empty fields are
// not checked.
type Expected struct {
	Status          string   `yaml:"status,omitempty" json:"status,omitempty"`
	MinSavings      *float64 `yaml:"min_savings,omitempty" json:"min_savings,omitempty"`
	Recommendations []string `yaml:"recommendations,omitempty" json:"recommendations,omitempty"`
}

// Scenario is one named operating case.
type Scenario struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Params      Params   `yaml:"params" json:"params"`
	Expected    Expected `yaml:"expected,omitempty" json:"expected,omitempty"`
}

type catalogue struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Load reads a YAML catalogue with a top-level scenarios list.
func Load(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, sc := range c.Scenarios {
		if sc.Name == "" {
			return nil, fmt.Errorf("parse %s: scenario %d has no name", path, i)
		}
		if sc.Expected.Status != "" {
			if _, err := model.ParseStatus(sc.Expected.Status); err != nil {
				return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
			}
		}
	}
	return c.Scenarios, nil
}

func ptr[T any](v T) *T { return &v }

// Builtin returns the reference operating cases of the site.
func Builtin() []Scenario {
	return []Scenario{
		{
			Name:        "Normal Operation",
			Description: "Typical daytime operation with all GTAs available",
			Params:      Params{ElecDemand: 60, SteamDemand: 400, Hour: 14},
			Expected:    Expected{Status: "optimal"},
		},
		{
			Name:        "GTA 2 Maintenance",
			Description: "GTA 2 is under maintenance, running at reduced capacity",
			Params:      Params{ElecDemand: 60, SteamDemand: 400, Hour: 14, Constraints: ConstraintsDef{GTA2Status: "MAINTENANCE"}},
			Expected:    Expected{Status: "optimal"},
		},
		{
			Name:        "GTA 3 Offline",
			Description: "GTA 3 is completely offline for repairs",
			Params:      Params{ElecDemand: 55, SteamDemand: 380, Hour: 10, Constraints: ConstraintsDef{GTA3Status: "OFF"}},
			Expected:    Expected{Status: "optimal"},
		},
		{
			Name:        "Peak Hours High Demand",
			Description: "High demand during expensive peak hours (17h-22h)",
			Params:      Params{ElecDemand: 70, SteamDemand: 450, Hour: 19},
			Expected:    Expected{Status: "optimal", MinSavings: ptr(0.0), Recommendations: []string{"savings"}},
		},
		{
			Name:        "Client CAP High Steam",
			Description: "Client CAP requires minimum 460 T/hr steam",
			Params:      Params{ElecDemand: 65, SteamDemand: 450, Hour: 15, Constraints: ConstraintsDef{CapSteam: ptr(460.0)}},
			Expected:    Expected{Status: "optimal"},
		},
		{
			Name:        "Night Operation",
			Description: "Low demand during night with off-peak pricing",
			Params:      Params{ElecDemand: 40, SteamDemand: 300, Hour: 2},
			Expected:    Expected{Status: "optimal", Recommendations: []string{"off_peak"}},
		},
	}
}
