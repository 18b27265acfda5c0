// Package export writes dispatch results for operators and downstream tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/kilianp07/cogen/core/model"
)

// WriteJSON writes the result to w as indented JSON.
func WriteJSON(w io.Writer, res model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// WriteCSV writes one row per source of the dispatch.
func WriteCSV(w io.Writer, res model.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"run_id", "timestamp", "status", "source", "admission", "extraction", "power_mw", "steam_tph"}); err != nil {
		return err
	}
	ts := res.Timestamp.Format(time.RFC3339)
	status := res.Solution.Status.String()
	row := func(source string, admission, extraction, power, steam float64) []string {
		return []string{res.RunID, ts, status, source, num(admission), num(extraction), num(power), num(steam)}
	}
	sol := res.Solution
	rows := make([][]string, 0, len(sol.Generators)+3)
	for _, g := range sol.Generators {
		rows = append(rows, row(fmt.Sprintf("gta%d", int(g.ID)), g.Admission, g.Extraction, g.Power, g.Extraction))
	}
	rows = append(rows,
		row("grid", 0, 0, sol.GridImport, 0),
		row("boiler", 0, 0, 0, sol.BoilerOutput),
		row("free_steam", 0, 0, 0, sol.FreeSteam),
	)
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteTable prints a human readable summary of the result.
func WriteTable(w io.Writer, res model.Result) error {
	sol := res.Solution
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Run\t%s\n", res.RunID)
	fmt.Fprintf(tw, "Status\t%s\n", sol.Status)
	fmt.Fprintf(tw, "Hour\t%02dh (%s, %.3f DH/kWh)\n", sol.Hour, sol.Period, sol.GridPrice)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "SOURCE\tADMISSION T/h\tEXTRACTION T/h\tPOWER MW\tSTEAM T/h")
	for _, g := range sol.Generators {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\n", g.ID, g.Admission, g.Extraction, g.Power, g.Extraction)
	}
	fmt.Fprintf(tw, "Grid\t-\t-\t%.2f\t-\n", sol.GridImport)
	fmt.Fprintf(tw, "Boiler\t-\t-\t-\t%.2f\n", sol.BoilerOutput)
	fmt.Fprintf(tw, "Free steam\t-\t-\t-\t%.2f / %.2f\n", sol.FreeSteam, sol.FreeSteamAvailable)
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Total cost\t%s DH/h\n", money(sol.TotalCost))
	if sol.Optimal() {
		fmt.Fprintf(tw, "Baseline cost\t%s DH/h\n", money(sol.BaselineCost))
		fmt.Fprintf(tw, "Savings\t%s DH/h\n", money(sol.Savings))
	}
	if len(res.Recommendations) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "PRIORITY\tRECOMMENDATION")
		for _, r := range res.Recommendations {
			fmt.Fprintf(tw, "%s\t%s: %s\n", r.Priority, r.Title, r.Instruction)
		}
	}
	return tw.Flush()
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func money(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
