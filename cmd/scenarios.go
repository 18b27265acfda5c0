package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cogen/app"
	"github.com/kilianp07/cogen/qa/scenarios"
)

func newScenariosCmd(load func() (*app.Service, error)) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "Run the validation scenarios and report their outcome",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := load()
			if err != nil {
				return err
			}
			defer svc.Close()

			scs := svc.Scenarios
			if file != "" {
				if scs, err = scenarios.Load(file); err != nil {
					return err
				}
			}
			if scs == nil {
				scs = scenarios.Builtin()
			}
			outcomes := scenarios.RunAll(cmd.Context(), svc.Manager, scs)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SCENARIO\tSTATUS\tSAVINGS\tRESULT")
			failed := 0
			for _, o := range outcomes {
				verdict := "PASS"
				if !o.Passed() {
					failed++
					verdict = "FAIL"
				}
				status, savings := "error", "-"
				if o.Err == nil {
					status = o.Result.Solution.Status.String()
					if o.Result.Solution.Optimal() {
						savings = fmt.Sprintf("%.2f", o.Result.Solution.Savings)
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.Scenario.Name, status, savings, verdict)
				if o.Err != nil {
					fmt.Fprintf(tw, "\t%v\t\t\n", o.Err)
				}
				for _, f := range o.Failures {
					fmt.Fprintf(tw, "\t%s\t\t\n", f)
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios failed", failed, len(outcomes))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML scenario catalogue, the configured or built-in one when empty")
	return cmd
}
