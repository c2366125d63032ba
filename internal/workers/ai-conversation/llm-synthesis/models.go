// internal/workers/ai-conversation/llm-synthesis/models.go
package llmsynthesis

import "farmer-assistant-workers/internal/intent"

type Input struct {
	Query          string           `json:"query"`
	IntentAnalysis IntentAnalysis   `json:"intentAnalysis"`
	Entities       intent.EntityBag `json:"entities"`
	Advice         *AdviceRef       `json:"advice,omitempty"`
	Language       string           `json:"language,omitempty"`
}

type IntentAnalysis struct {
	PrimaryIntent string  `json:"primaryIntent"`
	Confidence    float64 `json:"confidence"`
	Category      string  `json:"category,omitempty"`
}

// AdviceRef is the build-advice output, used as context and as the fallback answer.
type AdviceRef struct {
	Text string `json:"text"`
}

type Output struct {
	LLMResponse      string `json:"llmResponse"`
	Model            string `json:"model"`
	Source           string `json:"source"` // "llm" or "fallback"
	FallbackReason   string `json:"fallbackReason,omitempty"`
	DurationMs       int64  `json:"durationMs"`
	PromptTokens     int    `json:"promptTokens"`
	CompletionTokens int    `json:"completionTokens"`
}
