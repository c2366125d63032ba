// Package errors carries the error codes workers report to the process engine
// and their mapping onto BPMN errors and job retries.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode is the stable code stored in job variables and thrown as a BPMN error.
type ErrorCode string

const (
	// Detector load and extraction
	ErrCodeConfiguration     ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeExtractionWarning ErrorCode = "EXTRACTION_WARNING"

	// Worker jobs
	ErrCodeParseError            ErrorCode = "PARSE_ERROR"
	ErrCodeInputValidationFailed ErrorCode = "INPUT_VALIDATION_FAILED"
	ErrCodeAdviceNotFound        ErrorCode = "ADVICE_NOT_FOUND"
	ErrCodeSessionStoreFailed    ErrorCode = "SESSION_STORE_FAILED"
	ErrCodeLLMTimeout            ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMSynthesisFailed    ErrorCode = "LLM_SYNTHESIS_FAILED"

	// Broker and infrastructure
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrCodeNotFound        ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// codeInfo describes how a code behaves once it reaches the engine.
type codeInfo struct {
	category string
	retries  int
	thrown   bool
}

var catalogue = map[ErrorCode]codeInfo{
	ErrCodeConfiguration:         {category: "CONFIGURATION", thrown: true},
	ErrCodeExtractionWarning:     {category: "DETECTOR"},
	ErrCodeParseError:            {category: "VALIDATION", thrown: true},
	ErrCodeInputValidationFailed: {category: "VALIDATION", thrown: true},
	ErrCodeAdviceNotFound:        {category: "DETECTOR", thrown: true},
	ErrCodeSessionStoreFailed:    {category: "SESSION", retries: 3, thrown: true},
	ErrCodeLLMTimeout:            {category: "AI", retries: 1, thrown: true},
	ErrCodeLLMSynthesisFailed:    {category: "AI", retries: 3, thrown: true},
	ErrCodeExternalService:       {category: "INFRASTRUCTURE", retries: 3, thrown: true},
	ErrCodeTimeout:               {category: "INFRASTRUCTURE", retries: 3, thrown: true},
	ErrCodeNotFound:              {category: "INFRASTRUCTURE", thrown: true},
	ErrCodeInternal:              {category: "OTHER"},
}

// BPMNErrorMapping lists the codes a process model may catch by name.
var BPMNErrorMapping = func() map[ErrorCode]string {
	m := make(map[ErrorCode]string, len(catalogue))
	for code, info := range catalogue {
		if info.thrown {
			m[code] = string(code)
		}
	}
	return m
}()

// StandardError is the error every worker returns from Execute.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	e := &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

func serviceError(code ErrorCode, service, message string, cause error, retryable bool) *StandardError {
	e := newError(code, fmt.Sprintf("%s %s", service, message), cause, retryable)
	e.Metadata = map[string]interface{}{"service": service}
	return e
}

// CodeOf returns the code of the first StandardError in err's chain, or
// ErrCodeInternal when there is none.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// NewConfigurationError reports an intent source that could not be loaded.
func NewConfigurationError(err error) *StandardError {
	return newError(ErrCodeConfiguration, "Intent sources could not be loaded", err, false)
}

func NewParseError(err error) *StandardError {
	return newError(ErrCodeParseError, "Job variables could not be parsed", err, false)
}

func NewInputValidationFailedError(details string) *StandardError {
	e := newError(ErrCodeInputValidationFailed, "Job input failed validation", nil, false)
	e.Details = details
	return e
}

// NewAdviceNotFoundError is thrown for intents without a template so the
// process can route them to LLM synthesis.
func NewAdviceNotFoundError(intent string) *StandardError {
	e := newError(ErrCodeAdviceNotFound, "No advice template for intent", nil, false)
	e.Details = "intent: " + intent
	return e
}

func NewSessionStoreFailedError(err error) *StandardError {
	return newError(ErrCodeSessionStoreFailed, "Conversation session store error", err, true)
}

func NewLLMTimeoutError() *StandardError {
	return newError(ErrCodeLLMTimeout, "LLM request timed out", nil, true)
}

func NewLLMSynthesisFailedError(err error) *StandardError {
	return newError(ErrCodeLLMSynthesisFailed, "LLM synthesis failed", err, true)
}

// NewExternalServiceError wraps a failure reported by a dependency such as the broker.
func NewExternalServiceError(service string, err error) *StandardError {
	return serviceError(ErrCodeExternalService, service, "request failed", err, true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return serviceError(ErrCodeTimeout, service, "request timed out", err, true)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	e := serviceError(ErrCodeNotFound, service, "resource not found", nil, false)
	e.Details = details
	return e
}

// BPMNError is what the handler sends to the engine, either as a fail-job
// command with retries or as a thrown error.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables flattens the error into job variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := make(map[string]interface{}, len(e.ErrorVariables)+4)
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	vars["errorCode"] = e.Code
	vars["errorMessage"] = e.Message
	vars["errorDetails"] = e.Details
	vars["retryable"] = e.Retryable
	return vars
}

// GetRetryCount is the number of engine retries a code is allowed.
func GetRetryCount(code ErrorCode) int {
	return catalogue[code].retries
}

// ConvertToBPMNError maps a StandardError onto its BPMN form. Unknown codes
// are thrown under their own name with no retries.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, ok := BPMNErrorMapping[stdErr.Code]
	if !ok {
		bpmnCode = string(stdErr.Code)
	}

	retries := 0
	if stdErr.Retryable {
		retries = GetRetryCount(stdErr.Code)
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for logs and dashboards.
func GetErrorCategory(code ErrorCode) string {
	if info, ok := catalogue[code]; ok {
		return info.category
	}
	return "OTHER"
}
