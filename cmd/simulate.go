package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cogen/simulator"
)

func newSimulateCmd() *cobra.Command {
	cfg := simulator.Config{}
	var (
		csvPath string
		rows    int
		start   string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate sulfur unit readings over MQTT or into a CSV dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			plant := simulator.NewPlant(cfg)
			if csvPath != "" {
				from := time.Now().UTC().Truncate(cfg.Interval)
				if start != "" {
					var err error
					if from, err = time.Parse(time.RFC3339, start); err != nil {
						return fmt.Errorf("start: %w", err)
					}
				}
				f, err := os.Create(csvPath)
				if err != nil {
					return err
				}
				if err := plant.WriteCSV(f, from, rows); err != nil {
					_ = f.Close()
					return err
				}
				return f.Close()
			}
			cli, err := simulator.Connect(cfg)
			if err != nil {
				return fmt.Errorf("mqtt: %w", err)
			}
			defer cli.Disconnect(250)
			return plant.Run(cmd.Context(), cli)
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.Broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	f.StringVar(&cfg.ClientID, "client-id", "cogen-simulator", "MQTT client id")
	f.StringVar(&cfg.Prefix, "prefix", "sulfur", "topic prefix")
	f.StringSliceVar(&cfg.Units, "units", []string{"L1", "L2", "L3"}, "sulfur units")
	f.Float64Var(&cfg.Nominal, "nominal", 20, "nominal flow per unit, T/h")
	f.Float64Var(&cfg.Jitter, "jitter", 1.5, "random walk step deviation, T/h")
	f.DurationVar(&cfg.Interval, "interval", time.Minute, "time between readings")
	f.Int64Var(&cfg.Seed, "seed", 1, "random seed")
	f.StringVar(&csvPath, "csv", "", "write a CSV dataset to this path instead of publishing")
	f.IntVar(&rows, "rows", 96, "number of CSV rows")
	f.StringVar(&start, "start", "", "time of the first CSV row (RFC 3339)")
	return cmd
}
