package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cogen/app/plugins"
)

func newModulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the module types accepted by the configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			avail := plugins.Available()
			kinds := make([]string, 0, len(avail))
			for k := range avail {
				kinds = append(kinds, string(k))
			}
			sort.Strings(kinds)
			for _, k := range kinds {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", k, strings.Join(avail[plugins.Kind(k)], ", ")); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
