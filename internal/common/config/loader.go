// internal/common/config/loader.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"farmer-assistant-workers/internal/intent"
)

// Load reads configs/config.yaml, merges configs/config.<APP_ENVIRONMENT>.yaml
// over it when present, and applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range []string{"./configs", "../../configs", "."} {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName("config." + env)
	_ = v.MergeInConfig()

	return decode(v)
}

// LoadFromFile reads a single YAML file. Used by tools and tests.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults registers a default for every optional key so that Unmarshal
// fills sections the YAML omits.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "farmer-assistant-workers")
	v.SetDefault("app.registry_path", "configs/activity-registry.json")

	v.SetDefault("camunda.max_jobs_active", 10)
	v.SetDefault("camunda.timeout", 30000)
	v.SetDefault("camunda.request_timeout", 30000)

	v.SetDefault("database.redis.pool_size", 10)
	v.SetDefault("database.redis.dial_timeout", 5000)

	scoring := intent.DefaultScoringConfig()
	v.SetDefault("detector.scoring.keyword_weight", scoring.KeywordWeight)
	v.SetDefault("detector.scoring.pattern_weight", scoring.PatternWeight)
	v.SetDefault("detector.scoring.keyword_match_boost", scoring.KeywordMatchBoost)
	v.SetDefault("detector.scoring.substring_credit", scoring.SubstringCredit)
	v.SetDefault("detector.scoring.threshold", scoring.Threshold)
	v.SetDefault("detector.scoring.fallback_intent", scoring.FallbackIntent)
	v.SetDefault("detector.scoring.max_patterns_per_intent", scoring.MaxPatternsPerIntent)
	v.SetDefault("detector.scoring.top_candidates", scoring.TopCandidates)
	v.SetDefault("detector.watch_debounce", 500)

	v.SetDefault("session.key_prefix", "farmer:session")
	v.SetDefault("session.ttl", 86400)
	v.SetDefault("session.max_turns", 50)

	v.SetDefault("llm.host", "http://localhost:11434")
	v.SetDefault("llm.model", "llama3.2")
	v.SetDefault("llm.timeout", 60000)
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.num_predict", 300)

	v.SetDefault("advice.templates_path", "configs/advice-templates.json")
	v.SetDefault("server.port", 8080)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 28)
}

func decode(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	fillWorkerDefaults(cfg.Workers)
	applyEnvOverrides(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads the nearest .env walking up from the working directory
// to the module root.
func loadEnvFile() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for {
		candidate := filepath.Join(dir, ".env")
		if _, err := os.Stat(candidate); err == nil {
			_ = godotenv.Load(candidate)
			return
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// expandEnvVars substitutes ${VAR} references in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		s, ok := v.Get(key).(string)
		if !ok || !strings.Contains(s, "$") {
			continue
		}
		if expanded := os.ExpandEnv(s); expanded != "" && expanded != s {
			v.Set(key, expanded)
		}
	}
}

// applyEnvOverrides lets deployment environments point the detector and the
// LLM at different resources without editing YAML.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("DETECTOR_CSV_SOURCES"); val != "" {
		var sources []string
		for _, s := range strings.Split(val, ",") {
			if s = strings.TrimSpace(s); s != "" {
				sources = append(sources, s)
			}
		}
		cfg.Detector.CSVSources = sources
	}
	overrides := map[string]*string{
		"OLLAMA_HOST":   &cfg.LLM.Host,
		"OLLAMA_MODEL":  &cfg.LLM.Model,
		"ZEEBE_ADDRESS": &cfg.Camunda.BrokerAddress,
	}
	for env, field := range overrides {
		if val := os.Getenv(env); val != "" {
			*field = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		cfg.Database.Redis.Password = os.Getenv("REDIS_PASSWORD")
	}
}

var defaultWorker = WorkerConfig{
	Enabled:       true,
	MaxJobsActive: 5,
	Timeout:       30000,
	MaxRetries:    3,
}

func fillWorkerDefaults(workers map[string]WorkerConfig) {
	for name, w := range workers {
		if w.MaxJobsActive == 0 {
			w.MaxJobsActive = defaultWorker.MaxJobsActive
		}
		if w.Timeout == 0 {
			w.Timeout = defaultWorker.Timeout
		}
		if w.MaxRetries == 0 {
			w.MaxRetries = defaultWorker.MaxRetries
		}
		workers[name] = w
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}
	if len(cfg.Detector.CSVSources) == 0 {
		return fmt.Errorf("detector.csv_sources must list at least one CSV file")
	}

	s := cfg.Detector.Scoring
	if s.KeywordWeight < 0 || s.PatternWeight < 0 {
		return fmt.Errorf("detector.scoring weights must not be negative")
	}
	if s.Threshold < 0 || s.Threshold > 1 {
		return fmt.Errorf("detector.scoring.threshold must be within [0,1], got %v", s.Threshold)
	}
	if s.KeywordMatchBoost < 0 || s.KeywordMatchBoost > 1 {
		return fmt.Errorf("detector.scoring.keyword_match_boost must be within [0,1], got %v", s.KeywordMatchBoost)
	}

	if cfg.Session.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when session.enabled is true")
	}
	return nil
}

// GetDuration converts a millisecond config value.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig returns the worker's section, or the defaults when the
// worker is not listed.
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if w, ok := cfg.Workers[workerName]; ok {
		return w
	}
	return defaultWorker
}

// IsWorkerEnabled reports true for workers missing from the config.
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	return GetWorkerConfig(cfg, workerName).Enabled
}
