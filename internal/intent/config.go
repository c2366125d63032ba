// internal/intent/config.go
package intent

// ScoringConfig holds every tuning constant used by the scorer. The defaults were
// tuned by hand against the farmer intent corpus; override them from config rather
// than editing scoring code.
type ScoringConfig struct {
	KeywordWeight        float64 `mapstructure:"keyword_weight"`
	PatternWeight        float64 `mapstructure:"pattern_weight"`
	KeywordMatchBoost    float64 `mapstructure:"keyword_match_boost"`
	SubstringCredit      float64 `mapstructure:"substring_credit"`
	Threshold            float64 `mapstructure:"threshold"`
	FallbackIntent       string  `mapstructure:"fallback_intent"`
	MaxPatternsPerIntent int     `mapstructure:"max_patterns_per_intent"`
	TopCandidates        int     `mapstructure:"top_candidates"`
}

const (
	DefaultFallbackIntent = "general_help"

	defaultKeywordWeight     = 0.6
	defaultPatternWeight     = 0.4
	defaultKeywordMatchBoost = 0.8
	defaultSubstringCredit   = 0.8
	defaultThreshold         = 0.3
	defaultMaxPatterns       = 100
	defaultTopCandidates     = 5
)

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		KeywordWeight:        defaultKeywordWeight,
		PatternWeight:        defaultPatternWeight,
		KeywordMatchBoost:    defaultKeywordMatchBoost,
		SubstringCredit:      defaultSubstringCredit,
		Threshold:            defaultThreshold,
		FallbackIntent:       DefaultFallbackIntent,
		MaxPatternsPerIntent: defaultMaxPatterns,
		TopCandidates:        defaultTopCandidates,
	}
}

// withDefaults returns the defaults for a zero config. Otherwise the values are
// taken as configured, zeros included; only the fields that cannot be zero
// (fallback intent, candidate count, both weights) are filled.
func (c ScoringConfig) withDefaults() ScoringConfig {
	if c == (ScoringConfig{}) {
		return DefaultScoringConfig()
	}
	if c.KeywordWeight == 0 && c.PatternWeight == 0 {
		c.KeywordWeight = defaultKeywordWeight
		c.PatternWeight = defaultPatternWeight
	}
	if c.FallbackIntent == "" {
		c.FallbackIntent = DefaultFallbackIntent
	}
	if c.MaxPatternsPerIntent < 0 {
		c.MaxPatternsPerIntent = 0
	}
	if c.TopCandidates <= 0 {
		c.TopCandidates = defaultTopCandidates
	}
	return c
}

// ColumnOptions selects the CSV columns holding the query text and the intent label.
// Explicit names win over the candidate lists; "#N" selects a 1-based column index.
type ColumnOptions struct {
	TextColumn  string `mapstructure:"text_column"`
	LabelColumn string `mapstructure:"label_column"`
}

var (
	textColumnCandidates  = []string{"query", "message", "text", "utterance", "question"}
	labelColumnCandidates = []string{"intent", "label", "category"}
)

// DefaultLabelAliases maps the descriptive Hindi labels found in farmer query
// datasets onto canonical intent names.
func DefaultLabelAliases() map[string]string {
	return map[string]string{
		"बीज की जानकारी":          "seed_inquiry",
		"खाद की जानकारी":          "fertilizer_advice",
		"कीटनाशक से जुड़ी समस्या": "crop_disease",
		"फसल की बीमारी":           "crop_disease",
		"मंडी भाव पूछना":          "market_price",
	}
}
