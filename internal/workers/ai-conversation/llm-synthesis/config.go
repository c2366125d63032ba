// internal/workers/ai-conversation/llm-synthesis/config.go
package llmsynthesis

import "time"

type Config struct {
	Host        string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64
	NumPredict  int
	// SystemPrompt replaces the per-intent system prompts when set.
	SystemPrompt string
	// FallbackOnError answers with templated advice instead of failing the job.
	FallbackOnError bool
}

func LoadConfig() *Config {
	return &Config{
		Host:            "http://localhost:11434",
		Model:           "llama3.2",
		Timeout:         60 * time.Second,
		MaxRetries:      1,
		Temperature:     0.3,
		NumPredict:      300,
		FallbackOnError: true,
	}
}
