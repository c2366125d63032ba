// cmd/tools/intent-eval/root.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"farmer-assistant-workers/internal/common/config"
	"farmer-assistant-workers/internal/common/logger"
	"farmer-assistant-workers/internal/intent"
)

var (
	configPath string
	csvSources []string
	threshold  float64
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "intent-eval",
	Short: "Inspect and evaluate the farmer intent detector",
	Long: `intent-eval loads the same CSV corpora as the worker manager and lets you
classify single queries, dump the keyword table, or measure accuracy
against a labelled CSV before changing the scoring constants.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: configs/config.yaml lookup)")
	rootCmd.PersistentFlags().StringSliceVar(&csvSources, "csv", nil, "intent CSV sources, overriding detector.csv_sources")
	rootCmd.PersistentFlags().Float64Var(&threshold, "threshold", 0, "confidence threshold, overriding detector.scoring.threshold")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log table loading")
}

// detectorConfig resolves the detector section from the config file and flags.
// Flags alone are enough when --csv is given.
func detectorConfig() (config.DetectorConfig, error) {
	var dc config.DetectorConfig
	switch {
	case configPath != "":
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return dc, err
		}
		dc = cfg.Detector
	case len(csvSources) == 0:
		cfg, err := config.Load()
		if err != nil {
			return dc, err
		}
		dc = cfg.Detector
	default:
		dc.Scoring = intent.DefaultScoringConfig()
	}

	if len(csvSources) > 0 {
		dc.CSVSources = csvSources
	}
	if rootCmd.PersistentFlags().Changed("threshold") {
		dc.Scoring.Threshold = threshold
	}
	if len(dc.CSVSources) == 0 {
		return dc, fmt.Errorf("no intent sources: pass --csv or set detector.csv_sources")
	}
	return dc, nil
}

func loadDetector() (*intent.Detector, config.DetectorConfig, error) {
	dc, err := detectorConfig()
	if err != nil {
		return nil, dc, err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log := logger.NewStructured(level, "console")

	det, err := intent.New(dc.IntentConfig(), intent.WithLogger(log))
	if err != nil && !det.Ready() {
		return nil, dc, err
	}
	return det, dc, nil
}
