// internal/workers/ai-conversation/summarize-conversation/handler.go
package summarizeconversation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "farmer-assistant-workers/internal/common/errors"
	"farmer-assistant-workers/internal/common/logger"
	"farmer-assistant-workers/internal/session"
)

const TaskType = "summarize-conversation"

// SessionReader is satisfied by *session.Store.
type SessionReader interface {
	History(ctx context.Context, sessionID string, limit int) ([]session.Turn, error)
	Clear(ctx context.Context, sessionID string) error
}

type Handler struct {
	config     *Config
	sessions   SessionReader
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, sessions SessionReader, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		sessions:   sessions,
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

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		return nil, apperrors.NewInputValidationFailedError("sessionId: is required")
	}

	// One read serves both the summary and the recent turns.
	turns, err := h.sessions.History(ctx, sessionID, 0)
	if err != nil {
		return nil, storeError(err)
	}

	output := &Output{Summary: session.Summarize(sessionID, turns)}
	if input.IncludeHistory {
		recent := turns
		if h.config.HistoryLimit > 0 && len(recent) > h.config.HistoryLimit {
			recent = recent[len(recent)-h.config.HistoryLimit:]
		}
		output.Recent = recent
	}

	if input.ClearAfter {
		if err := h.sessions.Clear(ctx, sessionID); err != nil {
			return nil, storeError(err)
		}
	}

	h.logger.Info("conversation summarized", map[string]interface{}{
		"sessionId":         sessionID,
		"totalInteractions": output.Summary.TotalInteractions,
		"topIntents":        output.Summary.TopIntents,
	})

	return output, nil
}

func storeError(err error) error {
	if errors.Is(err, session.ErrMissingSessionID) {
		return apperrors.NewInputValidationFailedError(err.Error())
	}
	return apperrors.NewSessionStoreFailedError(err)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err.Error()})
	}
}
