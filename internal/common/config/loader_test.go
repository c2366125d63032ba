// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `
camunda:
  broker_address: localhost:26500
detector:
  csv_sources:
    - data/farmer_queries.csv
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, []string{"data/farmer_queries.csv"}, cfg.Detector.CSVSources)
	assert.Equal(t, 0.6, cfg.Detector.Scoring.KeywordWeight)
	assert.Equal(t, 0.4, cfg.Detector.Scoring.PatternWeight)
	assert.Equal(t, 0.3, cfg.Detector.Scoring.Threshold)
	assert.Equal(t, "general_help", cfg.Detector.Scoring.FallbackIntent)
	assert.Equal(t, 500, cfg.Detector.WatchDebounce)
	assert.Equal(t, "farmer:session", cfg.Session.KeyPrefix)
	assert.Equal(t, 86400, cfg.Session.TTL)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Camunda.MaxJobsActive)
	assert.Equal(t, 10, cfg.Database.Redis.PoolSize)
	assert.Equal(t, 5000, cfg.Database.Redis.DialTimeout)
}

func TestLoadFromFile_ReadsSections(t *testing.T) {
	path := writeConfig(t, `
camunda:
  broker_address: zeebe:26500
database:
  redis:
    address: redis:6379
detector:
  csv_sources: [a.csv, b.csv]
  columns:
    text_column: message
    label_column: intent
  label_aliases:
    "बीज": seed_inquiry
  extra_crops:
    banana: [केला, kela]
  scoring:
    keyword_weight: 0.7
    pattern_weight: 0.3
    threshold: 0.25
    fallback_intent: unknown
session:
  enabled: true
  ttl: 600
workers:
  detect-farmer-intent:
    enabled: true
    timeout: 5000
`)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.csv", "b.csv"}, cfg.Detector.CSVSources)
	assert.Equal(t, "message", cfg.Detector.Columns.TextColumn)
	assert.Equal(t, "seed_inquiry", cfg.Detector.LabelAliases["बीज"])
	assert.Equal(t, []string{"केला", "kela"}, cfg.Detector.ExtraCrops["banana"])
	assert.Equal(t, 0.7, cfg.Detector.Scoring.KeywordWeight)
	assert.Equal(t, 0.25, cfg.Detector.Scoring.Threshold)
	assert.Equal(t, "unknown", cfg.Detector.Scoring.FallbackIntent)
	assert.True(t, cfg.Session.Enabled)
	assert.Equal(t, 600, cfg.Session.TTL)

	wcfg := GetWorkerConfig(cfg, "detect-farmer-intent")
	assert.Equal(t, 5000, wcfg.Timeout)
	assert.Equal(t, 5, wcfg.MaxJobsActive)
	assert.Equal(t, 3, wcfg.MaxRetries)

	ic := cfg.Detector.IntentConfig()
	assert.Equal(t, cfg.Detector.CSVSources, ic.Sources)
	assert.Equal(t, "unknown", ic.Scoring.FallbackIntent)
}

func TestLoadFromFile_ZeroThresholdKept(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`  scoring:
    threshold: 0
    substring_credit: 0
`))
	require.NoError(t, err)

	assert.Equal(t, 0.0, cfg.Detector.Scoring.Threshold)
	assert.Equal(t, 0.0, cfg.Detector.Scoring.SubstringCredit)
	assert.Equal(t, 0.8, cfg.Detector.Scoring.KeywordMatchBoost)
	assert.Equal(t, 0.0, cfg.Detector.IntentConfig().Scoring.Threshold)
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	t.Setenv("DETECTOR_CSV_SOURCES", " x.csv , y.csv,")
	t.Setenv("OLLAMA_HOST", "http://ollama:11434")
	t.Setenv("TEST_BROKER", "broker:26500")

	cfg, err := LoadFromFile(writeConfig(t, `
camunda:
  broker_address: ${TEST_BROKER}
detector:
  csv_sources: [a.csv]
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"x.csv", "y.csv"}, cfg.Detector.CSVSources)
	assert.Equal(t, "http://ollama:11434", cfg.LLM.Host)
	assert.Equal(t, "broker:26500", cfg.Camunda.BrokerAddress)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		errPart string
	}{
		{
			name:    "missing broker",
			body:    "detector:\n  csv_sources: [a.csv]\n",
			errPart: "camunda.broker_address",
		},
		{
			name:    "missing sources",
			body:    "camunda:\n  broker_address: x:1\n",
			errPart: "detector.csv_sources",
		},
		{
			name:    "threshold out of range",
			body:    "camunda:\n  broker_address: x:1\ndetector:\n  csv_sources: [a.csv]\n  scoring:\n    threshold: 1.5\n",
			errPart: "threshold",
		},
		{
			name:    "session without redis",
			body:    "camunda:\n  broker_address: x:1\ndetector:\n  csv_sources: [a.csv]\nsession:\n  enabled: true\n",
			errPart: "database.redis.address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestGetWorkerConfig_Defaults(t *testing.T) {
	cfg := &Config{}
	wcfg := GetWorkerConfig(cfg, "unknown-worker")
	assert.True(t, wcfg.Enabled)
	assert.Equal(t, 30000, wcfg.Timeout)
	assert.True(t, IsWorkerEnabled(cfg, "unknown-worker"))

	cfg.Workers = map[string]WorkerConfig{"llm-synthesis": {Enabled: false}}
	assert.False(t, IsWorkerEnabled(cfg, "llm-synthesis"))
}
