// internal/workers/ai-conversation/summarize-conversation/models.go
package summarizeconversation

import "farmer-assistant-workers/internal/session"

type Input struct {
	SessionID      string `json:"sessionId"`
	IncludeHistory bool   `json:"includeHistory"`
	ClearAfter     bool   `json:"clearAfter"`
}

type Output struct {
	Summary session.Summary `json:"summary"`
	Recent  []session.Turn  `json:"recent,omitempty"`
}
