// internal/workers/ai-conversation/detect-farmer-intent/handler.go
package detectfarmerintent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "farmer-assistant-workers/internal/common/errors"
	"farmer-assistant-workers/internal/common/logger"
	"farmer-assistant-workers/internal/intent"
	"farmer-assistant-workers/internal/session"
)

const (
	TaskType = "detect-farmer-intent"
)

// Detector is satisfied by *intent.Detector.
type Detector interface {
	Detect(query string) intent.DetectionResult
}

// TurnRecorder is satisfied by *session.Store.
type TurnRecorder interface {
	AppendTurn(ctx context.Context, turn session.Turn) (session.Turn, error)
}

type Handler struct {
	config     *Config
	detector   Detector
	sessions   TurnRecorder
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

// NewHandler wires the worker. sessions may be nil, in which case turns are not recorded.
func NewHandler(config *Config, detector Detector, sessions TurnRecorder, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		detector:   detector,
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

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, apperrors.NewInputValidationFailedError("query: is required")
	}
	if h.config.MaxQueryLength > 0 && utf8.RuneCountInString(query) > h.config.MaxQueryLength {
		return nil, apperrors.NewInputValidationFailedError(
			fmt.Sprintf("query: exceeds %d characters", h.config.MaxQueryLength))
	}

	res := h.detector.Detect(query)

	output := &Output{
		IntentAnalysis: IntentAnalysis{
			PrimaryIntent:   res.Intent,
			Confidence:      res.Confidence,
			IsConfident:     res.IsConfident,
			Category:        res.Category,
			MatchedKeywords: res.MatchedKeywords,
			NormalizedQuery: res.NormalizedQuery,
		},
		Entities:    res.Entities,
		DataSources: determineDataSources(res),
		Candidates:  res.Scores,
	}

	if h.config.RecordTurns && h.sessions != nil && input.SessionID != "" {
		turn, err := h.sessions.AppendTurn(ctx, session.TurnFromResult(input.SessionID, query, res))
		if err != nil {
			// Recording is best effort.
			h.logger.Warn("failed to record session turn", map[string]interface{}{
				"sessionId": input.SessionID,
				"error":     err.Error(),
			})
		} else {
			output.TurnID = turn.ID
		}
	}

	h.logger.Info("intent detected", map[string]interface{}{
		"intent":      res.Intent,
		"confidence":  res.Confidence,
		"isConfident": res.IsConfident,
		"crops":       res.Entities.Crops,
		"dataSources": output.DataSources,
	})

	return output, nil
}

// determineDataSources lists the downstream sources worth consulting for a result,
// in a fixed order.
func determineDataSources(res intent.DetectionResult) []string {
	sources := []string{"intent_corpus"}

	switch res.Intent {
	case "weather_inquiry", "crop_disease", "irrigation", "irrigation_need":
		sources = append(sources, "weather")
	}
	if res.Category == intent.CategoryMarketInfo {
		sources = append(sources, "market_prices")
	}
	if res.IsConfident {
		sources = append(sources, "advice_templates")
	}
	return sources
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
