// internal/common/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"time"
)

type ErrorCode string

const (
	// Input rejection. Surfaced to callers as success=false.
	ErrCodeQueryEmpty       ErrorCode = "QUERY_EMPTY"
	ErrCodeQueryTooLong     ErrorCode = "QUERY_TOO_LONG"
	ErrCodeQueryForbidden   ErrorCode = "QUERY_FORBIDDEN"
	ErrCodeRateLimited      ErrorCode = "RATE_LIMITED"
	ErrCodeInvalidFilter    ErrorCode = "INVALID_FILTER"
	ErrCodeInputRejected    ErrorCode = "INPUT_REJECTED"
	ErrCodeInvalidJobInput  ErrorCode = "INVALID_JOB_INPUT"
	ErrCodeUnknownOperation ErrorCode = "UNKNOWN_OPERATION"

	// Data access.
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeMalformedRow             ErrorCode = "MALFORMED_ROW"
	ErrCodeSearchQueryFailed        ErrorCode = "SEARCH_QUERY_FAILED"

	// Language generation.
	ErrCodeLLMNotConfigured    ErrorCode = "LLM_NOT_CONFIGURED"
	ErrCodeLLMTimeout          ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMSynthesisFailed  ErrorCode = "LLM_SYNTHESIS_FAILED"
	ErrCodeIntentParsingFailed ErrorCode = "INTENT_PARSING_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Category is the coarse cause shown to end users. It never carries internals.
type Category string

const (
	CategoryNone          Category = ""
	CategoryMalformed     Category = "malformed_query"
	CategoryRateLimit     Category = "rate_limit"
	CategoryConfiguration Category = "configuration"
	CategoryConnectivity  Category = "connectivity"
	CategoryInternal      Category = "internal"
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

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

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewInputRejectedError(details string) *StandardError {
	return newError(ErrCodeInputRejected, "Query rejected by validation", details, false, nil)
}

func NewRateLimitedError(retryAfterSeconds int) *StandardError {
	err := newError(ErrCodeRateLimited, "Rate limit exceeded", fmt.Sprintf("retryAfter: %ds", retryAfterSeconds), false, nil)
	err.Metadata = map[string]interface{}{"retryAfter": retryAfterSeconds}
	return err
}

func NewInvalidFilterError(details string) *StandardError {
	return newError(ErrCodeInvalidFilter, "Invalid filter", details, false, nil)
}

func NewInvalidJobInputError(err error) *StandardError {
	return newError(ErrCodeInvalidJobInput, "Job variables could not be parsed", err.Error(), false, err)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true, err)
}

func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Data query execution error",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true, err)
}

func NewQueryTimeoutError(operation string) *StandardError {
	return newError(ErrCodeQueryTimeout, "Data query timeout", fmt.Sprintf("operation: %s", operation), true, nil)
}

func NewMalformedRowError(field string, value interface{}) *StandardError {
	return newError(ErrCodeMalformedRow, "Data store returned a malformed row",
		fmt.Sprintf("field %s has non-numeric value %v", field, value), false, nil)
}

func NewSearchQueryFailedError(err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Vendor search error", err.Error(), true, err)
}

func NewLLMNotConfiguredError(provider string) *StandardError {
	return newError(ErrCodeLLMNotConfigured, "Language model credential not configured",
		fmt.Sprintf("provider: %s", provider), false, nil)
}

func NewLLMTimeoutError() *StandardError {
	return newError(ErrCodeLLMTimeout, "Language model call timeout", "call exceeded its deadline", true, nil)
}

func NewLLMSynthesisFailedError(err error) *StandardError {
	return newError(ErrCodeLLMSynthesisFailed, "Language model call failed", err.Error(), true, err)
}

func NewIntentParsingFailedError(err error) *StandardError {
	return newError(ErrCodeIntentParsingFailed, "Intent reply could not be parsed", err.Error(), false, err)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// As extracts a *StandardError from err's chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeQueryEmpty:               "INPUT_REJECTED",
	ErrCodeQueryTooLong:             "INPUT_REJECTED",
	ErrCodeQueryForbidden:           "INPUT_REJECTED",
	ErrCodeInputRejected:            "INPUT_REJECTED",
	ErrCodeInvalidFilter:            "INPUT_REJECTED",
	ErrCodeRateLimited:              "RATE_LIMITED",
	ErrCodeInvalidJobInput:          "INVALID_JOB_INPUT",
	ErrCodeUnknownOperation:         "UNKNOWN_OPERATION",
	ErrCodeDatabaseConnectionFailed: "DATA_UNAVAILABLE",
	ErrCodeQueryExecutionFailed:     "DATA_UNAVAILABLE",
	ErrCodeQueryTimeout:             "DATA_UNAVAILABLE",
	ErrCodeMalformedRow:             "DATA_UNAVAILABLE",
	ErrCodeSearchQueryFailed:        "DATA_UNAVAILABLE",
	ErrCodeLLMNotConfigured:         "GENERATION_UNAVAILABLE",
	ErrCodeLLMTimeout:               "GENERATION_UNAVAILABLE",
	ErrCodeLLMSynthesisFailed:       "GENERATION_UNAVAILABLE",
	ErrCodeIntentParsingFailed:      "CLASSIFICATION_UNAVAILABLE",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeLLMSynthesisFailed:
		return 3
	case ErrCodeQueryTimeout,
		ErrCodeLLMTimeout:
		return 2
	default:
		return 0
	}
}

// GetErrorCategory maps a code to the user-facing cause category.
func GetErrorCategory(code ErrorCode) Category {
	switch code {
	case ErrCodeQueryEmpty, ErrCodeQueryTooLong, ErrCodeQueryForbidden,
		ErrCodeInputRejected, ErrCodeInvalidFilter, ErrCodeInvalidJobInput:
		return CategoryMalformed
	case ErrCodeRateLimited:
		return CategoryRateLimit
	case ErrCodeLLMNotConfigured, ErrCodeUnknownOperation:
		return CategoryConfiguration
	case ErrCodeDatabaseConnectionFailed, ErrCodeQueryExecutionFailed, ErrCodeQueryTimeout,
		ErrCodeMalformedRow, ErrCodeSearchQueryFailed, ErrCodeLLMTimeout, ErrCodeLLMSynthesisFailed:
		return CategoryConnectivity
	case ErrCodeIntentParsingFailed:
		return CategoryNone
	default:
		return CategoryInternal
	}
}

// UserMessage is the apology text for a category. It names the cause class only.
func UserMessage(category Category) string {
	switch category {
	case CategoryMalformed:
		return "I couldn't process that question because it looks malformed. Please rephrase it and try again."
	case CategoryRateLimit:
		return "You're sending questions faster than I can answer them. Please wait a moment and try again."
	case CategoryConfiguration:
		return "I apologize, but the assistant is not fully configured right now, so this answer is based on cached summaries."
	case CategoryConnectivity:
		return "I apologize, but I'm having trouble reaching a backend service, so this answer may be incomplete."
	case CategoryInternal:
		return "I apologize, but I encountered an error processing your query. Please try rephrasing your question or try again later."
	}
	return ""
}

// ConvertToBPMNError maps a StandardError onto the process error contract.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	code, ok := BPMNErrorMapping[stdErr.Code]
	if !ok {
		code = string(stdErr.Code)
	}
	return &BPMNError{
		Code:      code,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   GetRetryCount(stdErr.Code),
		ErrorVariables: map[string]interface{}{
			"errorCategory": string(GetErrorCategory(stdErr.Code)),
		},
	}
}
