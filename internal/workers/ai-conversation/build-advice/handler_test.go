// internal/workers/ai-conversation/build-advice/handler_test.go
package buildadvice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "farmer-assistant-workers/internal/common/errors"
	"farmer-assistant-workers/internal/common/logger"
	"farmer-assistant-workers/internal/intent"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig(path string) *Config {
	cfg := LoadConfig()
	cfg.TemplatesPath = path
	cfg.Timeout = time.Second
	return cfg
}

func bag(crops []string, quantities []intent.Quantity, timeRefs []string) intent.EntityBag {
	return intent.EntityBag{Crops: crops, Quantities: quantities, TimeRefs: timeRefs, Seasons: []string{}}
}

func requireCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr), "expected StandardError, got %v", err)
	assert.Equal(t, code, stdErr.Code)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	tests := []struct {
		name           string
		input          *Input
		expectedText   string
		expectedSource string
		validateOutput func(t *testing.T, advice Advice)
	}{
		{
			name: "crop specific text with quantity placeholder",
			input: &Input{
				Intent:     "fertilizer_advice",
				Confidence: 0.9,
				Language:   "en",
				Entities:   bag([]string{"wheat"}, []intent.Quantity{{Value: 2, Unit: "acre"}}, nil),
			},
			expectedText:   "Wheat: 120:60:40 NPK for 2 acre.",
			expectedSource: "crop",
			validateOutput: func(t *testing.T, advice Advice) {
				assert.Equal(t, "wheat", advice.Crop)
				assert.Equal(t, "test-1", advice.Version)
				assert.False(t, advice.LowConfidence)
			},
		},
		{
			name: "default text in hindi when no crop matches",
			input: &Input{
				Intent:     "fertilizer_advice",
				Confidence: 0.9,
				Entities:   bag([]string{"cotton"}, nil, nil),
			},
			expectedText:   "संतुलित उर्वरक दें।",
			expectedSource: "default",
			validateOutput: func(t *testing.T, advice Advice) {
				assert.Equal(t, "hi", advice.Language)
				assert.Empty(t, advice.Crop)
			},
		},
		{
			name: "crop and time placeholders",
			input: &Input{
				Intent:     "market_price",
				Confidence: 0.8,
				Language:   "en",
				Entities:   bag([]string{"onion"}, nil, []string{"today"}),
			},
			expectedText:   "Check the mandi for onion prices today.",
			expectedSource: "default",
		},
		{
			name: "fallback intent gets the unknown text",
			input: &Input{
				Intent:     "general_help",
				Confidence: 0.7,
				Language:   "en",
			},
			expectedText:   "Not understood.",
			expectedSource: "fallback",
		},
		{
			name: "low confidence appends clarification",
			input: &Input{
				Intent:     "fertilizer_advice",
				Confidence: 0.4,
				Language:   "en",
			},
			expectedText:   "Use balanced fertilizer.\n\nPlease clarify.",
			expectedSource: "default",
			validateOutput: func(t *testing.T, advice Advice) {
				assert.True(t, advice.LowConfidence)
			},
		},
	}

	h := NewHandler(createTestConfig("testdata/advice-templates.json"), nil, logger.NewTestLogger(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedText, output.Advice.Text)
			assert.Equal(t, tt.expectedSource, output.Advice.Source)
			assert.Equal(t, tt.input.Intent, output.Advice.Intent)
			if tt.validateOutput != nil {
				tt.validateOutput(t, output.Advice)
			}
		})
	}
}

func TestHandler_Execute_SampleCountNote(t *testing.T) {
	table, _ := intent.BuildTable([]intent.Row{
		{Query: "which fertilizer for wheat", Label: "fertilizer_advice"},
		{Query: "how much urea per acre", Label: "fertilizer_advice"},
	}, intent.BuildOptions{})
	d := intent.NewWithTable(table, intent.DefaultScoringConfig())

	h := NewHandler(createTestConfig("testdata/advice-templates.json"), d, logger.NewTestLogger(t))
	output, err := h.Execute(context.Background(), &Input{
		Intent:     "fertilizer_advice",
		Confidence: 0.9,
		Language:   "en",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, output.Advice.SampleCount)
	assert.Equal(t, "Use balanced fertilizer.\n\nBased on 2 examples.", output.Advice.Text)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		input        *Input
		expectedCode apperrors.ErrorCode
	}{
		{
			name:         "intent without template",
			path:         "testdata/advice-templates.json",
			input:        &Input{Intent: "pest_control", Confidence: 0.9},
			expectedCode: apperrors.ErrCodeAdviceNotFound,
		},
		{
			name:         "empty intent",
			path:         "testdata/advice-templates.json",
			input:        &Input{Intent: "", Confidence: 0.9},
			expectedCode: apperrors.ErrCodeInputValidationFailed,
		},
		{
			name:         "confidence above one",
			path:         "testdata/advice-templates.json",
			input:        &Input{Intent: "market_price", Confidence: 1.5},
			expectedCode: apperrors.ErrCodeInputValidationFailed,
		},
		{
			name:         "unsupported language",
			path:         "testdata/advice-templates.json",
			input:        &Input{Intent: "market_price", Confidence: 0.5, Language: "fr"},
			expectedCode: apperrors.ErrCodeInputValidationFailed,
		},
		{
			name:         "missing template file",
			path:         "testdata/does-not-exist.json",
			input:        &Input{Intent: "market_price", Confidence: 0.5},
			expectedCode: apperrors.ErrCodeConfiguration,
		},
		{
			name:         "template file fails schema",
			path:         "testdata/invalid-templates.json",
			input:        &Input{Intent: "market_price", Confidence: 0.5},
			expectedCode: apperrors.ErrCodeConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(createTestConfig(tt.path), nil, logger.NewTestLogger(t))
			_, err := h.Execute(context.Background(), tt.input)
			requireCode(t, err, tt.expectedCode)
		})
	}
}

func TestHandler_ShippedTemplates(t *testing.T) {
	h := NewHandler(createTestConfig("../../../../configs/advice-templates.json"), nil, logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{
		Intent:     "seed_inquiry",
		Confidence: 0.9,
		Entities:   bag([]string{"rice"}, nil, nil),
	})
	require.NoError(t, err)
	assert.Equal(t, "धान के लिए बासमती, IR-64 जैसी किस्में उपयुक्त हैं।", output.Advice.Text)
	assert.Equal(t, "crop", output.Advice.Source)
}

func TestHandler_RegistryIsCached(t *testing.T) {
	h := NewHandler(createTestConfig("testdata/advice-templates.json"), nil, logger.NewTestLogger(t))

	first, err := h.loadRegistry()
	require.NoError(t, err)

	h.config.TemplatesPath = "testdata/does-not-exist.json"
	second, err := h.loadRegistry()
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestFillPlaceholders(t *testing.T) {
	assert.Equal(t, "wheat at  now", fillPlaceholders("{{crop}} at {{ unknown }} {{time}}", map[string]string{"crop": "wheat", "time": "now"}))
	assert.Equal(t, "no markers", fillPlaceholders("no markers", nil))
}
