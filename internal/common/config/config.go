// internal/common/config/config.go
package config

import "farmer-assistant-workers/internal/intent"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Detector DetectorConfig          `mapstructure:"detector"`
	Session  SessionConfig           `mapstructure:"session"`
	LLM      LLMConfig               `mapstructure:"llm"`
	Advice   AdviceConfig            `mapstructure:"advice"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Server   ServerConfig            `mapstructure:"server"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	// RegistryPath points at the activity registry served on /activities.
	RegistryPath string `mapstructure:"registry_path"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address     string `mapstructure:"address"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	PoolSize    int    `mapstructure:"pool_size"`
	DialTimeout int    `mapstructure:"dial_timeout"` // milliseconds
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Detector Configuration ---

// DetectorConfig lists the CSV corpora and the scoring constants of the intent detector.
type DetectorConfig struct {
	CSVSources    []string             `mapstructure:"csv_sources"`
	Columns       intent.ColumnOptions `mapstructure:"columns"`
	LabelAliases  map[string]string    `mapstructure:"label_aliases"`
	ExtraCrops    map[string][]string  `mapstructure:"extra_crops"`
	Scoring       intent.ScoringConfig `mapstructure:"scoring"`
	WatchSources  bool                 `mapstructure:"watch_sources"`
	WatchDebounce int                  `mapstructure:"watch_debounce"` // milliseconds
}

// IntentConfig converts the section into the detector's own config.
func (d DetectorConfig) IntentConfig() intent.Config {
	return intent.Config{
		Sources:    d.CSVSources,
		Columns:    d.Columns,
		Aliases:    d.LabelAliases,
		Scoring:    d.Scoring,
		ExtraCrops: d.ExtraCrops,
	}
}

// SessionConfig controls the Redis conversation log.
type SessionConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	KeyPrefix string `mapstructure:"key_prefix"`
	TTL       int    `mapstructure:"ttl"` // seconds
	MaxTurns  int    `mapstructure:"max_turns"`
}

// LLMConfig holds settings for the Ollama-backed synthesis worker.
type LLMConfig struct {
	Host         string  `mapstructure:"host"`
	Model        string  `mapstructure:"model"`
	Timeout      int     `mapstructure:"timeout"` // milliseconds
	Temperature  float64 `mapstructure:"temperature"`
	NumPredict   int     `mapstructure:"num_predict"`
	SystemPrompt string  `mapstructure:"system_prompt"`
}

// AdviceConfig holds settings for the build-advice worker.
type AdviceConfig struct {
	TemplatesPath string `mapstructure:"templates_path"`
}

// ServerConfig holds the health and metrics HTTP server settings.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
	// Rotation settings apply when Output is a file path.
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}
