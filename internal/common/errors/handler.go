// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler turns worker errors into Zeebe fail or throw-error commands.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleJobError fails the job for retry when the error is retryable and the
// job has retries left. Everything else becomes a BPMN error the process can catch.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := h.normalizeError(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	// The last attempt throws so the process can route the error instead of raising an incident.
	retry := bpmnErr.Retryable && bpmnErr.Retries > 0 && job.Retries > 1
	h.logError(job, stdErr, bpmnErr, retry)

	if retry {
		h.failJob(ctx, client, job, stdErr.Code, bpmnErr)
		return
	}
	h.throwBPMNError(ctx, client, job, bpmnErr)
}

func (h *ErrorHandler) normalizeError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// remainingRetries never raises what Zeebe has left for the job.
func remainingRetries(job entities.Job, max int) int32 {
	left := job.Retries - 1
	if left > int32(max) {
		left = int32(max)
	}
	if left < 0 {
		left = 0
	}
	return left
}

// retryBackoff grows with each attempt already spent on the job.
func retryBackoff(code ErrorCode, attempt int) time.Duration {
	base := time.Second
	switch code {
	case ErrCodeSessionStoreFailed:
		base = 500 * time.Millisecond
	case ErrCodeLLMTimeout, ErrCodeLLMSynthesisFailed:
		base = 2 * time.Second
	}
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * base
}

func (h *ErrorHandler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, code ErrorCode, bpmnErr *BPMNError) {
	left := remainingRetries(job, bpmnErr.Retries)
	attempt := bpmnErr.Retries - int(left)

	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(left).
		RetryBackoff(retryBackoff(code, attempt)).
		ErrorMessage(bpmnErr.Message)

	if vars, ok := errorVariablesJSON(bpmnErr); ok {
		if withVars, err := cmd.VariablesFromString(vars); err == nil {
			_, _ = withVars.Send(ctx)
			return
		}
	}
	_, _ = cmd.Send(ctx)
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	if vars, ok := errorVariablesJSON(bpmnErr); ok {
		if withVars, err := cmd.VariablesFromString(vars); err == nil {
			_, _ = withVars.Send(ctx)
			return
		}
	}
	_, _ = cmd.Send(ctx)
}

func errorVariablesJSON(bpmnErr *BPMNError) (string, bool) {
	vars := bpmnErr.ToErrorVariables()
	if len(vars) == 0 {
		return "", false
	}
	data, err := json.Marshal(vars)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, bpmnErr *BPMNError, retry bool) {
	if h.logger == nil {
		return
	}
	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"bpmnErrorCode":    bpmnErr.Code,
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"retryable":        stdErr.Retryable,
		"willRetry":        retry,
		"jobRetriesLeft":   job.Retries,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})
}
