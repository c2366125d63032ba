// internal/workers/ai-conversation/detect-farmer-intent/models.go
package detectfarmerintent

import "farmer-assistant-workers/internal/intent"

type Input struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId"`
}

type Output struct {
	IntentAnalysis IntentAnalysis       `json:"intentAnalysis"`
	Entities       intent.EntityBag     `json:"entities"`
	DataSources    []string             `json:"dataSources"`
	Candidates     []intent.IntentScore `json:"candidates"`
	TurnID         string               `json:"turnId,omitempty"`
}

type IntentAnalysis struct {
	PrimaryIntent   string   `json:"primaryIntent"`
	Confidence      float64  `json:"confidence"`
	IsConfident     bool     `json:"isConfident"`
	Category        string   `json:"category"`
	MatchedKeywords []string `json:"matchedKeywords"`
	NormalizedQuery string   `json:"normalizedQuery"`
}
