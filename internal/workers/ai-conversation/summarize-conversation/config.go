// internal/workers/ai-conversation/summarize-conversation/config.go
package summarizeconversation

import "time"

type Config struct {
	Timeout time.Duration
	// HistoryLimit is the number of recent turns returned with the summary.
	HistoryLimit int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      5 * time.Second,
		HistoryLimit: 5,
	}
}
