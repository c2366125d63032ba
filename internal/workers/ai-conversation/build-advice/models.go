// internal/workers/ai-conversation/build-advice/models.go
package buildadvice

import "farmer-assistant-workers/internal/intent"

type Input struct {
	Intent     string           `json:"intent"`
	Confidence float64          `json:"confidence"`
	Entities   intent.EntityBag `json:"entities"`
	Language   string           `json:"language,omitempty"` // "hi" or "en"
}

type Output struct {
	Advice Advice `json:"advice"`
}

type Advice struct {
	Text          string `json:"text"`
	Intent        string `json:"intent"`
	Crop          string `json:"crop,omitempty"`
	Source        string `json:"source"` // "crop", "default" or "fallback"
	Language      string `json:"language"`
	LowConfidence bool   `json:"lowConfidence"`
	SampleCount   int    `json:"sampleCount,omitempty"`
	Version       string `json:"version"`
}

// Registry is the on-disk advice template file.
type Registry struct {
	Version string                  `json:"version"`
	Unknown LocalizedText           `json:"unknown"`
	Generic LocalizedText           `json:"generic"`
	Clarify LocalizedText           `json:"clarify"`
	Samples LocalizedText           `json:"samples,omitempty"`
	Intents map[string]IntentAdvice `json:"intents"`
}

// IntentAdvice holds the default text of an intent plus crop-specific overrides.
type IntentAdvice struct {
	Default LocalizedText            `json:"default"`
	Crops   map[string]LocalizedText `json:"crops,omitempty"`
}

// LocalizedText maps a language tag to text.
type LocalizedText map[string]string
