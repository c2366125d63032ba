// internal/workers/ai-conversation/llm-synthesis/handler_test.go
package llmsynthesis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "farmer-assistant-workers/internal/common/errors"
	"farmer-assistant-workers/internal/common/logger"
	"farmer-assistant-workers/internal/intent"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		Model:           "llama3.2",
		Timeout:         5 * time.Second,
		MaxRetries:      1,
		Temperature:     0.3,
		NumPredict:      200,
		FallbackOnError: false,
	}
}

func createTestHandler(t *testing.T, serverURL string, config *Config, tokens TokenRecorder) *Handler {
	t.Helper()
	client, err := NewOllamaClient(serverURL)
	require.NoError(t, err)
	return NewHandler(config, client, tokens, logger.NewTestLogger(t))
}

func writeChatResponse(w http.ResponseWriter, content string, promptTokens, evalTokens int) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(api.ChatResponse{
		Model:   "llama3.2",
		Message: api.Message{Role: "assistant", Content: content},
		Done:    true,
		Metrics: api.Metrics{PromptEvalCount: promptTokens, EvalCount: evalTokens},
	})
}

func wheatInput() *Input {
	return &Input{
		Query: "गेहूं में कितना यूरिया डालें 2 एकड़",
		IntentAnalysis: IntentAnalysis{
			PrimaryIntent: "fertilizer_advice",
			Confidence:    0.82,
		},
		Entities: intent.EntityBag{
			Crops:      []string{"wheat"},
			Quantities: []intent.Quantity{{Value: 2, Unit: "acre"}},
			TimeRefs:   []string{},
			Seasons:    []string{"rabi"},
		},
	}
}

type recordingTokens struct {
	mu                 sync.Mutex
	prompt, completion int
}

func (r *recordingTokens) RecordLLMTokens(ctx context.Context, model string, prompt, completion int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompt += prompt
	r.completion += completion
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	requests := make(chan api.ChatRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req api.ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests <- req
		writeChatResponse(w, "किसान जी, गेहूं में 2 एकड़ के लिए 100 किलो यूरिया दो बार में डालें", 120, 40)
	}))
	defer server.Close()

	tokens := &recordingTokens{}
	handler := createTestHandler(t, server.URL, createTestConfig(), tokens)

	output, err := handler.execute(context.Background(), wheatInput())
	require.NoError(t, err)

	assert.Equal(t, "गेहूं में 2 एकड़ के लिए 100 किलो यूरिया दो बार में डालें।", output.LLMResponse)
	assert.Equal(t, "llm", output.Source)
	assert.Equal(t, "llama3.2", output.Model)
	assert.Equal(t, 120, output.PromptTokens)
	assert.Equal(t, 40, output.CompletionTokens)
	assert.Equal(t, 120, tokens.prompt)
	assert.Equal(t, 40, tokens.completion)

	captured := <-requests
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "llama3.2", captured.Model)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, systemPrompts["fertilizer_advice"], captured.Messages[0].Content)
	assert.Contains(t, captured.Messages[1].Content, "- फसल: wheat")
	assert.Contains(t, captured.Messages[1].Content, "- मात्रा: 2 acre")
	assert.Contains(t, captured.Messages[1].Content, "- मौसम: rabi")
	require.NotNil(t, captured.Stream)
	assert.False(t, *captured.Stream)
	assert.Equal(t, 0.3, captured.Options["temperature"])
}

func TestHandler_Execute_SystemPromptOverride(t *testing.T) {
	requests := make(chan api.ChatRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req api.ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		requests <- req
		writeChatResponse(w, "Apply urea in two splits.", 10, 5)
	}))
	defer server.Close()

	config := createTestConfig()
	config.SystemPrompt = "You are an agronomist."
	handler := createTestHandler(t, server.URL, config, nil)

	input := wheatInput()
	input.Language = "en"
	output, err := handler.execute(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, "Apply urea in two splits.", output.LLMResponse)
	captured := <-requests
	assert.Equal(t, "You are an agronomist.", captured.Messages[0].Content)
	assert.Contains(t, captured.Messages[1].Content, "simple English")
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	handler := createTestHandler(t, server.URL, createTestConfig(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	output, err := handler.execute(ctx, wheatInput())
	assert.Nil(t, output)
	assert.True(t, errors.Is(err, ErrLLMTimeout), "Expected LLM_TIMEOUT, got: %v", err)

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(toStandardError(err), &stdErr))
	assert.Equal(t, apperrors.ErrCodeLLMTimeout, stdErr.Code)
}

func TestHandler_Execute_APIErrorRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model not loaded"}` + "\n"))
	}))
	defer server.Close()

	handler := createTestHandler(t, server.URL, createTestConfig(), nil)

	output, err := handler.execute(context.Background(), wheatInput())
	assert.Nil(t, output)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLLMSynthesisFailed))
	assert.Contains(t, err.Error(), "model not loaded")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHandler_Execute_RetryThenSuccess(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"busy"}` + "\n"))
			return
		}
		writeChatResponse(w, "Use balanced NPK.", 10, 5)
	}))
	defer server.Close()

	input := wheatInput()
	input.Language = "en"
	output, err := createTestHandler(t, server.URL, createTestConfig(), nil).execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "Use balanced NPK.", output.LLMResponse)
}

func TestHandler_Execute_EmptyResponseFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeChatResponse(w, "   ", 10, 0)
	}))
	defer server.Close()

	_, err := createTestHandler(t, server.URL, createTestConfig(), nil).execute(context.Background(), wheatInput())
	assert.True(t, errors.Is(err, ErrLLMSynthesisFailed))
}

func TestHandler_Execute_FallbackOnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}` + "\n"))
	}))
	defer server.Close()

	config := createTestConfig()
	config.FallbackOnError = true
	config.MaxRetries = 0
	handler := createTestHandler(t, server.URL, config, nil)

	t.Run("built-in fallback with crop prefix", func(t *testing.T) {
		output, err := handler.execute(context.Background(), wheatInput())
		require.NoError(t, err)
		assert.Equal(t, "fallback", output.Source)
		assert.Equal(t, "LLM_SYNTHESIS_FAILED", output.FallbackReason)
		assert.Equal(t, "wheat के लिए "+fallbackResponses["fertilizer_advice"], output.LLMResponse)
	})

	t.Run("templated advice wins", func(t *testing.T) {
		input := wheatInput()
		input.Advice = &AdviceRef{Text: "गेहूं के लिए 120:60:40 NPK दें।"}
		output, err := handler.execute(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, "गेहूं के लिए 120:60:40 NPK दें।", output.LLMResponse)
	})
}

func TestHandler_Execute_Validation(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, nil, logger.NewTestLogger(t))
	_, err := handler.execute(context.Background(), &Input{Query: " "})

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeInputValidationFailed, stdErr.Code)
}

// ==========================
// Prompt Tests
// ==========================

func TestBuildUserPrompt(t *testing.T) {
	prompt := buildUserPrompt(&Input{
		Query:          "मंडी भाव बताओ",
		IntentAnalysis: IntentAnalysis{PrimaryIntent: "market_price", Confidence: 0.75},
		Advice:         &AdviceRef{Text: "eNAM देखें।"},
	})

	assert.Contains(t, prompt, `किसान का सवाल: "मंडी भाव बताओ"`)
	assert.Contains(t, prompt, "पहचाना गया विषय: मंडी भाव और बाजार की जानकारी")
	assert.Contains(t, prompt, "विश्वसनीयता: 0.75")
	assert.Contains(t, prompt, "संदर्भ सलाह: eNAM देखें।")
	assert.NotContains(t, prompt, "पहचानी गई जानकारी")
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		in, lang, want string
	}{
		{"देखिए, पानी दें", "hi", "पानी दें।"},
		{"पानी दें।।", "hi", "पानी दें।"},
		{"क्या आपने जांच कराई?", "hi", "क्या आपने जांच कराई?"},
		{"Water twice a week", "en", "Water twice a week"},
		{"  ", "hi", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanResponse(tt.in, tt.lang), tt.in)
	}
}

func TestSystemPromptFallsBackToGeneral(t *testing.T) {
	h := NewHandler(createTestConfig(), nil, nil, logger.NewNoOpLogger())
	assert.Equal(t, systemPrompts["general"], h.systemPrompt("soil_health"))
}
