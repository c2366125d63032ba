// cmd/tools/intent-eval/detect.go
package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var detectJSON bool

var detectCmd = &cobra.Command{
	Use:   "detect <query>",
	Short: "Classify a single query and print intent, confidence and entities",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		det, _, err := loadDetector()
		if err != nil {
			return err
		}

		res := det.Detect(strings.Join(args, " "))
		out := cmd.OutOrStdout()
		if detectJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		fmt.Fprintf(out, "intent:     %s (%s)\n", res.Intent, res.Category)
		fmt.Fprintf(out, "confidence: %.3f confident=%t\n", res.Confidence, res.IsConfident)
		fmt.Fprintf(out, "normalized: %s\n", res.NormalizedQuery)
		fmt.Fprintf(out, "keywords:   %s\n", strings.Join(res.MatchedKeywords, ", "))
		if !res.Entities.IsEmpty() {
			fmt.Fprintf(out, "crops:      %s\n", strings.Join(res.Entities.Crops, ", "))
			for _, q := range res.Entities.Quantities {
				fmt.Fprintf(out, "quantity:   %g %s\n", q.Value, q.Unit)
			}
			fmt.Fprintf(out, "time:       %s\n", strings.Join(res.Entities.TimeRefs, ", "))
			fmt.Fprintf(out, "seasons:    %s\n", strings.Join(res.Entities.Seasons, ", "))
		}
		for _, s := range res.Scores {
			fmt.Fprintf(out, "  %-20s %.3f (keyword %.3f, pattern %.3f)\n", s.Intent, s.Confidence, s.KeywordScore, s.PatternScore)
		}
		return nil
	},
}

func init() {
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "print the full detection result as JSON")
	rootCmd.AddCommand(detectCmd)
}
