// internal/workers/assistant/process-query/handler.go
package processquery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	commonerrors "procurement-assistant/internal/common/errors"
	"procurement-assistant/internal/common/logger"
	"procurement-assistant/internal/common/metrics"
	"procurement-assistant/internal/models"
	"procurement-assistant/internal/pipeline/orchestrator"
)

const (
	TaskType = "process-procurement-query"
)

var (
	ErrMissingQuestion = errors.New("MISSING_QUESTION")
)

// Pipeline is the part of the orchestrator this worker drives.
type Pipeline interface {
	Exchange(ctx context.Context, req orchestrator.Request) (models.QueryResult, models.ConversationTurn)
}

type Handler struct {
	config       *Config
	pipeline     Pipeline
	errorHandler *commonerrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, pipeline Pipeline, log logger.Logger) *Handler {
	log = log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:       config,
		pipeline:     pipeline,
		errorHandler: commonerrors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, commonerrors.NewInvalidJobInputError(fmt.Errorf("parse input: %w", err)))
		return
	}
	if input.SessionID == "" {
		input.SessionID = fmt.Sprintf("process-%d", job.ProcessInstanceKey)
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, commonerrors.NewInputRejectedError(ErrMissingQuestion.Error())
	}

	result, turn := h.pipeline.Exchange(ctx, orchestrator.Request{
		Text:      input.Question,
		SessionID: input.SessionID,
		Filters:   input.Filters,
	})

	// A result without a plan never got past validation.
	if !result.Success && result.Plan == nil {
		if result.RetryAfter > 0 {
			return nil, commonerrors.NewRateLimitedError(result.RetryAfter)
		}
		if len(result.Errors) == 0 {
			return nil, commonerrors.NewInternalError(errors.New(result.Response))
		}
		return nil, commonerrors.NewInputRejectedError(strings.Join(result.Errors, "; "))
	}

	output := &Output{
		Success:    result.Success,
		Response:   result.Response,
		Plan:       result.Plan,
		DataResult: result.DataResult,
		Intent:     result.Intent,
		Cached:     result.Cached,
		Degraded:   result.Degraded,
		Notice:     result.Notice,
		TurnID:     turn.ID,
	}
	if result.Plan != nil {
		output.PlanType = result.Plan.Type
		output.Operation = result.Plan.Operation
	}

	h.logger.Info("query processed", map[string]interface{}{
		"sessionId": input.SessionID,
		"planType":  output.PlanType,
		"success":   output.Success,
		"cached":    output.Cached,
	})
	return output, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	code := string(commonerrors.ErrCodeInternal)
	if stdErr, ok := commonerrors.As(err); ok {
		code = string(stdErr.Code)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	h.errorHandler.HandleJobError(context.WithoutCancel(ctx), client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
