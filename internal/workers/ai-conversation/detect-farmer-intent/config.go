// internal/workers/ai-conversation/detect-farmer-intent/config.go
package detectfarmerintent

import "time"

type Config struct {
	Timeout        time.Duration
	MaxQueryLength int // runes
	RecordTurns    bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        5 * time.Second,
		MaxQueryLength: 1000,
		RecordTurns:    true,
	}
}
