// internal/workers/ai-conversation/detect-farmer-intent/handler_test.go
package detectfarmerintent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "farmer-assistant-workers/internal/common/errors"
	"farmer-assistant-workers/internal/common/logger"
	"farmer-assistant-workers/internal/intent"
	"farmer-assistant-workers/internal/session"
)

// ==========================
// Test Helper Functions
// ==========================

const testCorpus = "../../../intent/testdata/farmer_intents.csv"

func createTestDetector(t *testing.T) *intent.Detector {
	t.Helper()
	d, err := intent.New(intent.Config{Sources: []string{testCorpus}})
	require.NoError(t, err)
	require.True(t, d.Ready())
	return d
}

func createTestConfig() *Config {
	return &Config{
		Timeout:        2 * time.Second,
		MaxQueryLength: 200,
		RecordTurns:    true,
	}
}

type fakeRecorder struct {
	turns []session.Turn
	err   error
}

func (f *fakeRecorder) AppendTurn(ctx context.Context, turn session.Turn) (session.Turn, error) {
	if f.err != nil {
		return session.Turn{}, f.err
	}
	turn.ID = "turn-1"
	f.turns = append(f.turns, turn)
	return turn, nil
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
		query          string
		expectedIntent string
		validateOutput func(t *testing.T, output *Output)
	}{
		{
			name:           "english market price with crop and time",
			query:          "price of rice today",
			expectedIntent: "market_price",
			validateOutput: func(t *testing.T, output *Output) {
				assert.True(t, output.IntentAnalysis.IsConfident)
				assert.Equal(t, intent.CategoryMarketInfo, output.IntentAnalysis.Category)
				assert.Equal(t, []string{"rice"}, output.Entities.Crops)
				assert.Equal(t, []string{"today"}, output.Entities.TimeRefs)
				assert.Equal(t, []string{"intent_corpus", "market_prices", "advice_templates"}, output.DataSources)
				assert.NotEmpty(t, output.Candidates)
			},
		},
		{
			name:           "out of vocabulary falls back",
			query:          "xyz qqq",
			expectedIntent: "general_help",
			validateOutput: func(t *testing.T, output *Output) {
				assert.False(t, output.IntentAnalysis.IsConfident)
				assert.Equal(t, 0.0, output.IntentAnalysis.Confidence)
				assert.Empty(t, output.IntentAnalysis.MatchedKeywords)
				assert.Equal(t, []string{"intent_corpus"}, output.DataSources)
			},
		},
		{
			name:           "weather query adds weather source",
			query:          "will it rain tomorrow",
			expectedIntent: "weather_inquiry",
			validateOutput: func(t *testing.T, output *Output) {
				assert.Contains(t, output.DataSources, "weather")
				assert.Equal(t, []string{"tomorrow"}, output.Entities.TimeRefs)
			},
		},
	}

	d := createTestDetector(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(createTestConfig(), d, nil, logger.NewTestLogger(t))
			output, err := h.Execute(context.Background(), &Input{Query: tt.query})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedIntent, output.IntentAnalysis.PrimaryIntent)
			assert.Empty(t, output.TurnID)
			if tt.validateOutput != nil {
				tt.validateOutput(t, output)
			}
		})
	}
}

// ==========================
// Validation Tests
// ==========================

func TestHandler_Execute_Validation(t *testing.T) {
	d := createTestDetector(t)
	h := NewHandler(createTestConfig(), d, nil, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{Query: "   "})
	requireCode(t, err, apperrors.ErrCodeInputValidationFailed)

	_, err = h.Execute(context.Background(), &Input{Query: strings.Repeat("खाद ", 100)})
	requireCode(t, err, apperrors.ErrCodeInputValidationFailed)
}

// ==========================
// Session Recording Tests
// ==========================

func TestHandler_Execute_RecordsTurn(t *testing.T) {
	rec := &fakeRecorder{}
	h := NewHandler(createTestConfig(), createTestDetector(t), rec, logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{Query: "price of rice today", SessionID: "farmer-7"})
	require.NoError(t, err)

	assert.Equal(t, "turn-1", output.TurnID)
	require.Len(t, rec.turns, 1)
	assert.Equal(t, "farmer-7", rec.turns[0].SessionID)
	assert.Equal(t, "market_price", rec.turns[0].Intent)
}

func TestHandler_Execute_SkipsRecordingWithoutSession(t *testing.T) {
	rec := &fakeRecorder{}
	h := NewHandler(createTestConfig(), createTestDetector(t), rec, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{Query: "price of rice today"})
	require.NoError(t, err)
	assert.Empty(t, rec.turns)
}

func TestHandler_Execute_RecordingFailureIsNotFatal(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("SESSION_STORE_FAILED: connection refused")}
	h := NewHandler(createTestConfig(), createTestDetector(t), rec, logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{Query: "price of rice today", SessionID: "farmer-7"})
	require.NoError(t, err)
	assert.Equal(t, "market_price", output.IntentAnalysis.PrimaryIntent)
	assert.Empty(t, output.TurnID)
}

func TestHandler_Execute_WithRedisSession(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	store := session.NewStore(rdb, session.Config{KeyPrefix: "test"})

	h := NewHandler(createTestConfig(), createTestDetector(t), store, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{Query: "wheat price today", SessionID: "s1"})
	require.NoError(t, err)
	_, err = h.Execute(context.Background(), &Input{Query: "will it rain tomorrow", SessionID: "s1"})
	require.NoError(t, err)

	history, err := store.History(context.Background(), "s1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "market_price", history[0].Intent)
	assert.Equal(t, []string{"wheat"}, history[0].Entities.Crops)
	assert.Equal(t, "weather_inquiry", history[1].Intent)
}

func TestDetermineDataSources(t *testing.T) {
	got := determineDataSources(intent.DetectionResult{
		Intent:      "crop_disease",
		Category:    intent.CategoryProblemSolving,
		IsConfident: true,
	})
	assert.Equal(t, []string{"intent_corpus", "weather", "advice_templates"}, got)
}
