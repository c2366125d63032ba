// cmd/tools/intent-eval/evaluate.go
package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"farmer-assistant-workers/internal/intent"
)

var minAccuracy float64

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <labelled.csv>",
	Short: "Measure per-intent accuracy of the detector against a labelled CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		det, dc, err := loadDetector()
		if err != nil {
			return err
		}

		rows, _, err := intent.ReadRowsFile(args[0], dc.Columns)
		if err != nil {
			return err
		}

		aliases := intent.DefaultLabelAliases()
		for raw, canonical := range dc.LabelAliases {
			aliases[raw] = canonical
		}

		report := evaluate(det, rows, aliases)
		report.Print(cmd.OutOrStdout())

		if minAccuracy > 0 && report.Accuracy() < minAccuracy {
			return fmt.Errorf("accuracy %.1f%% is below the required %.1f%%", report.Accuracy(), minAccuracy)
		}
		return nil
	},
}

func init() {
	evaluateCmd.Flags().Float64Var(&minAccuracy, "min-accuracy", 0, "fail when overall accuracy (percent) is lower")
	rootCmd.AddCommand(evaluateCmd)
}

type intentStats struct {
	Total     int
	Correct   int
	Confident int
}

// Report aggregates an evaluation run.
type Report struct {
	Total     int
	Correct   int
	Confident int
	PerIntent map[string]*intentStats
	// Confusions counts expected -> predicted pairs for misclassified rows.
	Confusions map[string]map[string]int
}

func (r Report) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total) * 100
}

func evaluate(det *intent.Detector, rows []intent.Row, aliases map[string]string) Report {
	report := Report{
		PerIntent:  map[string]*intentStats{},
		Confusions: map[string]map[string]int{},
	}
	for _, row := range rows {
		expected := strings.TrimSpace(row.Label)
		if canonical, ok := aliases[expected]; ok {
			expected = canonical
		}

		res := det.Detect(row.Query)
		st := report.PerIntent[expected]
		if st == nil {
			st = &intentStats{}
			report.PerIntent[expected] = st
		}

		report.Total++
		st.Total++
		if res.IsConfident {
			report.Confident++
			st.Confident++
		}
		if res.Intent == expected {
			report.Correct++
			st.Correct++
			continue
		}
		if report.Confusions[expected] == nil {
			report.Confusions[expected] = map[string]int{}
		}
		report.Confusions[expected][res.Intent]++
	}
	return report
}

func (r Report) Print(w io.Writer) {
	names := make([]string, 0, len(r.PerIntent))
	for name := range r.PerIntent {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "%-22s %6s %8s %9s\n", "intent", "rows", "correct", "accuracy")
	for _, name := range names {
		st := r.PerIntent[name]
		fmt.Fprintf(w, "%-22s %6d %8d %8.1f%%\n", name, st.Total, st.Correct, float64(st.Correct)/float64(st.Total)*100)
		for predicted, n := range r.Confusions[name] {
			fmt.Fprintf(w, "    -> %s x%d\n", predicted, n)
		}
	}
	fmt.Fprintf(w, "\noverall: %d/%d correct (%.1f%%), %d confident\n", r.Correct, r.Total, r.Accuracy(), r.Confident)
}
