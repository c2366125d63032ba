// cmd/tools/intent-eval/keywords.go
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords [intent...]",
	Short: "Dump the keyword table built from the CSV sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		det, _, err := loadDetector()
		if err != nil {
			return err
		}

		table := det.Table()
		names := args
		if len(names) == 0 {
			names = table.Names()
		}

		out := cmd.OutOrStdout()
		for _, name := range names {
			rec, ok := table.Record(name)
			if !ok {
				return fmt.Errorf("unknown intent %q", name)
			}
			langs := make([]string, 0, len(rec.LanguageTags))
			for _, l := range rec.Languages() {
				langs = append(langs, string(l))
			}
			fmt.Fprintf(out, "%s  samples=%d languages=%s\n", rec.Name, rec.SampleCount, strings.Join(langs, ","))
			fmt.Fprintf(out, "  %s\n", strings.Join(rec.KeywordList(), " "))
		}

		stats := table.Stats()
		fmt.Fprintf(out, "\n%d intents, %d samples, %d keywords\n", stats.Intents, stats.Samples, stats.Keywords)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keywordsCmd)
}
