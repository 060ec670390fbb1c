package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want Category
	}{
		{ErrCodeQueryForbidden, CategoryMalformed},
		{ErrCodeQueryEmpty, CategoryMalformed},
		{ErrCodeRateLimited, CategoryRateLimit},
		{ErrCodeLLMNotConfigured, CategoryConfiguration},
		{ErrCodeLLMTimeout, CategoryConnectivity},
		{ErrCodeQueryTimeout, CategoryConnectivity},
		{ErrCodeMalformedRow, CategoryConnectivity},
		{ErrCodeIntentParsingFailed, CategoryNone},
		{ErrCodeInternal, CategoryInternal},
		{ErrorCode("SOMETHING_ELSE"), CategoryInternal},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorCategory(tt.code))
		})
	}
}

func TestUserMessage_NeverLeaksDetails(t *testing.T) {
	for _, c := range []Category{CategoryMalformed, CategoryRateLimit, CategoryConfiguration, CategoryConnectivity, CategoryInternal} {
		msg := UserMessage(c)
		assert.NotEmpty(t, msg, "category %s", c)
		assert.NotContains(t, msg, "StandardError")
	}
	assert.Empty(t, UserMessage(CategoryNone))
}

func TestAs_UnwrapsWrappedStandardError(t *testing.T) {
	base := NewQueryTimeoutError("queryStrategicActionMatrix")
	wrapped := fmt.Errorf("facade: %w", base)

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeQueryTimeout, got.Code)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}

func TestStandardError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewDatabaseConnectionFailedError(cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, err.Retryable)
}

func TestConvertToBPMNError(t *testing.T) {
	bpmn := ConvertToBPMNError(NewRateLimitedError(12))

	assert.Equal(t, "RATE_LIMITED", bpmn.Code)
	assert.Equal(t, 0, bpmn.Retries)

	vars := bpmn.ToErrorVariables()
	assert.Equal(t, "rate_limit", vars["errorCategory"])
	assert.Equal(t, "RATE_LIMITED", vars["errorCode"])
	assert.Equal(t, false, vars["retryable"])

	unmapped := ConvertToBPMNError(&StandardError{Code: "CUSTOM"})
	assert.Equal(t, "CUSTOM", unmapped.Code)
}

func TestGetRetryCount(t *testing.T) {
	assert.Equal(t, 3, GetRetryCount(ErrCodeQueryExecutionFailed))
	assert.Equal(t, 2, GetRetryCount(ErrCodeLLMTimeout))
	assert.Equal(t, 0, GetRetryCount(ErrCodeQueryForbidden))
}
