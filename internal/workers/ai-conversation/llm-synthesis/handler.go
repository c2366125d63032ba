// internal/workers/ai-conversation/llm-synthesis/handler.go
package llmsynthesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/ollama/ollama/api"

	apperrors "farmer-assistant-workers/internal/common/errors"
	httpclient "farmer-assistant-workers/internal/common/http"
	"farmer-assistant-workers/internal/common/logger"
)

const (
	TaskType = "llm-synthesis"
)

var (
	ErrLLMTimeout         = errors.New("LLM_TIMEOUT")
	ErrLLMSynthesisFailed = errors.New("LLM_SYNTHESIS_FAILED")
)

// ChatClient is satisfied by *api.Client.
type ChatClient interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

// TokenRecorder is satisfied by *observability.Observability.
type TokenRecorder interface {
	RecordLLMTokens(ctx context.Context, model string, prompt, completion int)
}

type Handler struct {
	config     *Config
	chat       ChatClient
	tokens     TokenRecorder
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

// NewOllamaClient returns a client for host, or one configured from OLLAMA_HOST when host is empty.
func NewOllamaClient(host string) (*api.Client, error) {
	if host == "" {
		return api.ClientFromEnvironment()
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}
	return api.NewClient(u, httpclient.NewClient(0)), nil
}

// NewHandler wires the worker. tokens may be nil.
func NewHandler(config *Config, chat ChatClient, tokens TokenRecorder, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		chat:       chat,
		tokens:     tokens,
		logger:     l,
		errHandler: apperrors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errHandler.HandleJobError(context.Background(), client, job, apperrors.NewParseError(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errHandler.HandleJobError(ctx, client, job, toStandardError(err))
		return
	}

	h.completeJob(client, job, output)
}

func toStandardError(err error) error {
	switch {
	case errors.Is(err, ErrLLMTimeout):
		return apperrors.NewLLMTimeoutError()
	case errors.Is(err, ErrLLMSynthesisFailed):
		return apperrors.NewLLMSynthesisFailedError(err)
	default:
		return err
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, apperrors.NewInputValidationFailedError("query: is required")
	}

	lang := input.Language
	if lang == "" {
		lang = "hi"
	}

	start := time.Now()
	text, resp, err := h.generate(ctx, input)
	elapsed := time.Since(start)

	if err != nil {
		if !h.config.FallbackOnError {
			return nil, err
		}
		reason := "LLM_SYNTHESIS_FAILED"
		if errors.Is(err, ErrLLMTimeout) {
			reason = "LLM_TIMEOUT"
		}
		h.logger.Warn("LLM unavailable, answering with fallback", map[string]interface{}{
			"intent": input.IntentAnalysis.PrimaryIntent,
			"reason": reason,
			"error":  err.Error(),
		})
		return &Output{
			LLMResponse:    fallbackText(input),
			Model:          h.config.Model,
			Source:         "fallback",
			FallbackReason: reason,
			DurationMs:     elapsed.Milliseconds(),
		}, nil
	}

	output := &Output{
		LLMResponse:      cleanResponse(text, lang),
		Model:            h.config.Model,
		Source:           "llm",
		DurationMs:       elapsed.Milliseconds(),
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
	}
	if h.tokens != nil {
		h.tokens.RecordLLMTokens(ctx, h.config.Model, output.PromptTokens, output.CompletionTokens)
	}

	h.logger.Info("LLM synthesis completed", map[string]interface{}{
		"intent":           input.IntentAnalysis.PrimaryIntent,
		"durationMs":       output.DurationMs,
		"completionTokens": output.CompletionTokens,
	})

	return output, nil
}

// generate calls the chat endpoint, retrying failures other than timeouts.
func (h *Handler) generate(ctx context.Context, input *Input) (string, api.ChatResponse, error) {
	stream := false
	req := &api.ChatRequest{
		Model: h.config.Model,
		Messages: []api.Message{
			{Role: "system", Content: h.systemPrompt(input.IntentAnalysis.PrimaryIntent)},
			{Role: "user", Content: buildUserPrompt(input)},
		},
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": h.config.Temperature,
			"num_predict": h.config.NumPredict,
			"top_p":       0.9,
		},
	}

	var lastErr error
	for attempt := 0; attempt <= h.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", api.ChatResponse{}, ErrLLMTimeout
			}
		}

		var content strings.Builder
		var final api.ChatResponse
		err := h.chat.Chat(ctx, req, func(res api.ChatResponse) error {
			content.WriteString(res.Message.Content)
			if res.Done {
				final = res
			}
			return nil
		})

		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return "", api.ChatResponse{}, ErrLLMTimeout
		}
		if err == nil {
			if strings.TrimSpace(content.String()) == "" {
				lastErr = errors.New("empty response")
				continue
			}
			return content.String(), final, nil
		}
		lastErr = err
	}

	return "", api.ChatResponse{}, fmt.Errorf("%w: %v", ErrLLMSynthesisFailed, lastErr)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)

	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
