// internal/workers/ai-conversation/summarize-conversation/handler_test.go
package summarizeconversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "farmer-assistant-workers/internal/common/errors"
	"farmer-assistant-workers/internal/common/logger"
	"farmer-assistant-workers/internal/session"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{Timeout: time.Second, HistoryLimit: 2}
}

func seedStore(t *testing.T) (*session.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := session.NewStore(rdb, session.Config{KeyPrefix: "test"})
	for _, tr := range []session.Turn{
		{SessionID: "s1", Intent: "market_price", Confidence: 0.9, IsConfident: true},
		{SessionID: "s1", Intent: "market_price", Confidence: 0.5, IsConfident: true},
		{SessionID: "s1", Intent: "general_help", Confidence: 0.1},
	} {
		_, err := store.AppendTurn(context.Background(), tr)
		require.NoError(t, err)
	}
	return store, mr
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
	store, _ := seedStore(t)
	h := NewHandler(createTestConfig(), store, logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{SessionID: "s1", IncludeHistory: true})
	require.NoError(t, err)

	assert.Equal(t, 3, output.Summary.TotalInteractions)
	assert.Equal(t, 2, output.Summary.IntentDistribution["market_price"])
	assert.Equal(t, []string{"market_price", "general_help"}, output.Summary.TopIntents)
	assert.InDelta(t, 0.5, output.Summary.AverageConfidence, 1e-9)
	assert.InDelta(t, 66.666, output.Summary.AccuracyRate, 0.01)

	require.Len(t, output.Recent, 2)
	assert.Equal(t, "general_help", output.Recent[1].Intent)
}

func TestHandler_Execute_UnknownSessionIsEmpty(t *testing.T) {
	store, _ := seedStore(t)
	h := NewHandler(createTestConfig(), store, logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{SessionID: "nobody"})
	require.NoError(t, err)
	assert.Equal(t, 0, output.Summary.TotalInteractions)
	assert.Nil(t, output.Recent)
}

func TestHandler_Execute_ClearAfter(t *testing.T) {
	store, mr := seedStore(t)
	h := NewHandler(createTestConfig(), store, logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{SessionID: "s1", ClearAfter: true})
	require.NoError(t, err)
	assert.Equal(t, 3, output.Summary.TotalInteractions)
	assert.False(t, mr.Exists("test:s1"))
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_MissingSession(t *testing.T) {
	store, _ := seedStore(t)
	h := NewHandler(createTestConfig(), store, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{SessionID: "  "})
	requireCode(t, err, apperrors.ErrCodeInputValidationFailed)
}

func TestHandler_Execute_StoreFailureIsRetryable(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := session.NewStore(rdb, session.Config{KeyPrefix: "test"})
	mock.ExpectLRange("test:s1", 0, -1).SetErr(errors.New("connection refused"))

	h := NewHandler(createTestConfig(), store, logger.NewTestLogger(t))
	_, err := h.Execute(context.Background(), &Input{SessionID: "s1"})

	requireCode(t, err, apperrors.ErrCodeSessionStoreFailed)
	assert.True(t, apperrors.IsRetryableErrorCode(apperrors.ErrCodeSessionStoreFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}
