// internal/workers/assistant/process-query/handler_test.go
package processquery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement-assistant/internal/common/config"
	commonerrors "procurement-assistant/internal/common/errors"
	"procurement-assistant/internal/common/logger"
	"procurement-assistant/internal/models"
	"procurement-assistant/internal/pipeline/cache"
	"procurement-assistant/internal/pipeline/dataaccess"
	"procurement-assistant/internal/pipeline/generator"
	"procurement-assistant/internal/pipeline/orchestrator"
	"procurement-assistant/internal/pipeline/planner"
	"procurement-assistant/internal/pipeline/validator"
)

// ==========================
// Test Helper Functions
// ==========================

type stubPipeline struct {
	result  models.QueryResult
	lastReq orchestrator.Request
}

func (s *stubPipeline) Exchange(ctx context.Context, req orchestrator.Request) (models.QueryResult, models.ConversationTurn) {
	s.lastReq = req
	return s.result, models.ConversationTurn{ID: "turn-1", SessionID: req.SessionID, Role: models.RoleAssistant}
}

func createTestConfig() *Config {
	return &Config{Timeout: 2 * time.Second}
}

func newPipeline(t *testing.T) *orchestrator.Orchestrator {
	log := logger.NewTestLogger(t)
	return orchestrator.New(orchestrator.Deps{
		Validator:  validator.New(validator.DefaultConfig(), nil, nil, log),
		Cache:      cache.NewMemoryCache(time.Minute, 10),
		Planner:    planner.New(),
		DataAccess: dataaccess.NewFacade(dataaccess.NewMemoryStore(nil), nil, time.Second, log),
		Generator:  generator.New(nil, generator.Options{}, log),
	}, log)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name           string
		input          *Input
		wantErrCode    commonerrors.ErrorCode
		validateOutput func(t *testing.T, out *Output)
	}{
		{
			name:  "critical cases answered with fallback",
			input: &Input{Question: "Show me critical cases", SessionID: "proc-1"},
			validateOutput: func(t *testing.T, out *Output) {
				assert.False(t, out.Success)
				assert.Equal(t, models.PlanTypeDataAnalysis, out.PlanType)
				assert.Equal(t, models.OperationQueryMatrix, out.Operation)
				assert.Contains(t, out.Response, "$2.3M")
				assert.Contains(t, out.Degraded, models.DegradedGeneration)
				assert.NotEmpty(t, out.TurnID)
			},
		},
		{
			name:  "explicit filters",
			input: &Input{Question: "Show me savings opportunities", SessionID: "proc-1", Filters: models.Filters{"timeline": "30-60 days"}},
			validateOutput: func(t *testing.T, out *Output) {
				assert.Equal(t, models.PlanTypeFinancialAnalysis, out.PlanType)
				require.NotNil(t, out.DataResult)
				assert.Len(t, out.DataResult.Rows, 2)
			},
		},
		{
			name:        "forbidden content",
			input:       &Input{Question: "DROP TABLE strategic_action_priority_matrix", SessionID: "proc-1"},
			wantErrCode: commonerrors.ErrCodeInputRejected,
		},
		{
			name:        "missing question",
			input:       &Input{SessionID: "proc-1"},
			wantErrCode: commonerrors.ErrCodeInputRejected,
		},
		{
			name:        "invalid filter",
			input:       &Input{Question: "Show me critical cases", SessionID: "proc-1", Filters: models.Filters{"limit": 500}},
			wantErrCode: commonerrors.ErrCodeInputRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(createTestConfig(), newPipeline(t), logger.NewTestLogger(t))

			out, err := h.Execute(context.Background(), tt.input)

			if tt.wantErrCode != "" {
				require.Error(t, err)
				stdErr, ok := commonerrors.As(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantErrCode, stdErr.Code)
				assert.Equal(t, "INPUT_REJECTED", commonerrors.ConvertToBPMNError(stdErr).Code)
				assert.Nil(t, out)
				return
			}
			require.NoError(t, err)
			tt.validateOutput(t, out)
		})
	}
}

func TestHandler_Execute_RateLimited(t *testing.T) {
	pipeline := &stubPipeline{result: models.QueryResult{
		Success:    false,
		Response:   commonerrors.UserMessage(commonerrors.CategoryRateLimit),
		RetryAfter: 12,
		Errors:     []string{"Rate limit exceeded. Please wait 12 seconds."},
	}}
	h := NewHandler(createTestConfig(), pipeline, logger.NewNoOpLogger())

	_, err := h.Execute(context.Background(), &Input{Question: "Show me critical cases", SessionID: "s"})

	stdErr, ok := commonerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, commonerrors.ErrCodeRateLimited, stdErr.Code)
	assert.Equal(t, 12, stdErr.Metadata["retryAfter"])
}

func TestHandler_Execute_InternalFault(t *testing.T) {
	pipeline := &stubPipeline{result: models.QueryResult{
		Success:  false,
		Response: commonerrors.UserMessage(commonerrors.CategoryInternal),
		Errors:   []string{},
	}}
	h := NewHandler(createTestConfig(), pipeline, logger.NewNoOpLogger())

	_, err := h.Execute(context.Background(), &Input{Question: "Show me critical cases", SessionID: "s"})

	stdErr, ok := commonerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, commonerrors.ErrCodeInternal, stdErr.Code)
}

func TestHandler_Execute_PassesRequestThrough(t *testing.T) {
	plan := models.QueryPlan{Type: models.PlanTypeCrisisAnalysis, Operation: models.OperationCrisisResponse}
	pipeline := &stubPipeline{result: models.QueryResult{Success: true, Response: "ok", Plan: &plan, Cached: true}}
	h := NewHandler(createTestConfig(), pipeline, logger.NewNoOpLogger())

	out, err := h.Execute(context.Background(), &Input{
		Question:  "crisis response",
		SessionID: "s",
		Filters:   models.Filters{"priority": "HIGH"},
	})

	require.NoError(t, err)
	assert.Equal(t, orchestrator.Request{Text: "crisis response", SessionID: "s", Filters: models.Filters{"priority": "HIGH"}}, pipeline.lastReq)
	assert.True(t, out.Success)
	assert.True(t, out.Cached)
	assert.Equal(t, models.OperationCrisisResponse, out.Operation)
	assert.Equal(t, "turn-1", out.TurnID)
}

func TestLoadConfig(t *testing.T) {
	assert.Equal(t, 5*time.Second, LoadConfig(config.WorkerConfig{Timeout: 5000}).Timeout)
	assert.Equal(t, 30*time.Second, LoadConfig(config.WorkerConfig{}).Timeout)
}
