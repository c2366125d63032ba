// internal/workers/ai-conversation/build-advice/config.go
package buildadvice

import "time"

type Config struct {
	TemplatesPath string
	CacheTTL      time.Duration
	Timeout       time.Duration
	// Below this confidence a clarification note is appended.
	ClarifyBelow    float64
	DefaultLanguage string
	FallbackIntent  string
}

func LoadConfig() *Config {
	return &Config{
		TemplatesPath:   "configs/advice-templates.json",
		CacheTTL:        5 * time.Minute,
		Timeout:         5 * time.Second,
		ClarifyBelow:    0.6,
		DefaultLanguage: "hi",
		FallbackIntent:  "general_help",
	}
}
