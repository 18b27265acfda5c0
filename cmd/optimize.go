package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cogen/app"
	"github.com/kilianp07/cogen/core/model"
	"github.com/kilianp07/cogen/pkg/export"
	"github.com/kilianp07/cogen/qa/scenarios"
)

type optimizeOptions struct {
	elec, steam float64
	hour        int
	at          string
	gta         [model.GeneratorCount]string
	capSteam    float64
	maxGrid     float64
	sulfurMax   float64
	output      string
}

func newOptimizeCmd(load func() (*app.Service, error)) *cobra.Command {
	var o optimizeOptions
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Optimize one dispatch interval and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := o.request(cmd)
			if err != nil {
				return err
			}
			svc, err := load()
			if err != nil {
				return err
			}
			defer svc.Close()
			res, err := svc.Manager.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			return o.write(cmd.OutOrStdout(), res)
		},
	}
	f := cmd.Flags()
	f.Float64Var(&o.elec, "elec", 0, "electricity demand, MW")
	f.Float64Var(&o.steam, "steam", 0, "steam demand, T/h")
	f.IntVar(&o.hour, "hour", -1, "hour of day selecting the tariff band, current hour when negative")
	f.StringVar(&o.at, "at", "", "free steam record time (RFC 3339), latest record when empty")
	for i := range o.gta {
		f.StringVar(&o.gta[i], fmt.Sprintf("gta%d", i+1), "", fmt.Sprintf("GTA%d status: ON, OFF or MAINTENANCE", i+1))
	}
	f.Float64Var(&o.capSteam, "cap-steam", 0, "minimum steam for the CAP consumer, T/h")
	f.Float64Var(&o.maxGrid, "max-grid", 0, "grid import limit override, MW")
	f.Float64Var(&o.sulfurMax, "sulfur-max", 0, "free steam availability override, T/h")
	f.StringVarP(&o.output, "output", "o", "table", "output format: table, json or csv")
	_ = cmd.MarkFlagRequired("elec")
	_ = cmd.MarkFlagRequired("steam")
	return cmd
}

func (o optimizeOptions) request(cmd *cobra.Command) (model.Request, error) {
	def := scenarios.ConstraintsDef{GTA1Status: o.gta[0], GTA2Status: o.gta[1], GTA3Status: o.gta[2]}
	if cmd.Flags().Changed("cap-steam") {
		def.CapSteam = &o.capSteam
	}
	if cmd.Flags().Changed("max-grid") {
		def.MaxGridImport = &o.maxGrid
	}
	if cmd.Flags().Changed("sulfur-max") {
		def.SulfurMax = &o.sulfurMax
	}
	c, err := def.ToModel()
	if err != nil {
		return model.Request{}, err
	}
	req := model.Request{ElectricityDemand: o.elec, SteamDemand: o.steam, Constraints: c}
	if o.hour >= 0 {
		h := o.hour
		req.Hour = &h
	}
	if o.at != "" {
		at, err := time.Parse(time.RFC3339, o.at)
		if err != nil {
			return model.Request{}, fmt.Errorf("%w: at: %v", model.ErrInvalidInput, err)
		}
		req.At = &at
	}
	return req, req.Validate()
}

func (o optimizeOptions) write(w io.Writer, res model.Result) error {
	switch o.output {
	case "json":
		return export.WriteJSON(w, res)
	case "csv":
		return export.WriteCSV(w, res)
	case "table":
		return export.WriteTable(w, res)
	default:
		return fmt.Errorf("unknown output format %q", o.output)
	}
}
