// Package orchestrator runs one user message through the pipeline:
// validate, cache lookup, classify, plan, fetch, generate, cache store.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	commonerrors "procurement-assistant/internal/common/errors"
	"procurement-assistant/internal/common/logger"
	"procurement-assistant/internal/common/metrics"
	"procurement-assistant/internal/common/observability"
	"procurement-assistant/internal/models"
	"procurement-assistant/internal/pipeline/cache"
	"procurement-assistant/internal/pipeline/generator"
	"procurement-assistant/internal/pipeline/intent"
	"procurement-assistant/internal/pipeline/planner"
)

type Validator interface {
	Validate(ctx context.Context, raw, sessionID string) models.ValidationResult
	ValidateFilters(filters models.Filters) models.FilterValidationResult
	Cleanup(ctx context.Context) int
}

type Classifier interface {
	Classify(ctx context.Context, query string) intent.Classification
}

type Planner interface {
	Plan(query string, intent models.Intent) models.QueryPlan
}

type DataAccess interface {
	Execute(ctx context.Context, plan models.QueryPlan) models.DataResult
}

type ResponseGenerator interface {
	Generate(ctx context.Context, query string, plan models.QueryPlan, data models.DataResult, intent models.Intent) generator.Response
}

// Deps are the pipeline stages. Classifier and Observability may be nil.
// HistoryIdleTTL defaults to one hour.
type Deps struct {
	Validator     Validator
	Cache         cache.Cache
	Classifier    Classifier
	Planner       Planner
	DataAccess    DataAccess
	Generator     ResponseGenerator
	History       *History
	Observability *observability.Observability

	HistoryIdleTTL time.Duration
}

// Request is one caller message. Filters are optional and override the
// filters chosen by the planner.
type Request struct {
	Text      string         `json:"text"`
	SessionID string         `json:"sessionId"`
	Filters   models.Filters `json:"filters,omitempty"`
}

type Orchestrator struct {
	deps   Deps
	logger logger.Logger
	now    func() time.Time
}

func New(deps Deps, log logger.Logger) *Orchestrator {
	if deps.History == nil {
		deps.History = NewHistory()
	}
	if deps.Observability == nil {
		deps.Observability = observability.NewNoop()
	}
	if deps.HistoryIdleTTL <= 0 {
		deps.HistoryIdleTTL = time.Hour
	}
	return &Orchestrator{
		deps:   deps,
		logger: log.With(map[string]interface{}{"component": "orchestrator"}),
		now:    time.Now,
	}
}

// History returns the session's turns in append order.
func (o *Orchestrator) History(sessionID string) []models.ConversationTurn {
	return o.deps.History.Turns(sessionID)
}

// Handle answers raw for sessionID and returns the assistant turn. Both the
// user turn and the assistant turn are appended to the session history.
func (o *Orchestrator) Handle(ctx context.Context, raw, sessionID string) models.ConversationTurn {
	_, turn := o.Exchange(ctx, Request{Text: raw, SessionID: sessionID})
	return turn
}

// Exchange is Handle for callers that also need the structured result.
func (o *Orchestrator) Exchange(ctx context.Context, req Request) (models.QueryResult, models.ConversationTurn) {
	o.deps.History.Append(models.ConversationTurn{
		ID:        uuid.NewString(),
		SessionID: req.SessionID,
		Role:      models.RoleUser,
		Content:   req.Text,
		Timestamp: o.now().UTC(),
	})

	result := o.Process(ctx, req)

	success := result.Success
	turn := models.ConversationTurn{
		ID:        uuid.NewString(),
		SessionID: req.SessionID,
		Role:      models.RoleAssistant,
		Content:   displayText(result),
		Timestamp: o.now().UTC(),
		Plan:      result.Plan,
		Data:      result.DataResult,
		Success:   &success,
	}
	o.deps.History.Append(turn)
	return result, turn
}

// Process is the caller-facing processQuery. It never panics and never
// returns an error: rejections and degraded answers are reported in the result.
func (o *Orchestrator) Process(ctx context.Context, req Request) (result models.QueryResult) {
	start := o.now()
	requestID := uuid.NewString()
	log := o.logger.With(map[string]interface{}{
		"requestId": requestID,
		"sessionId": req.SessionID,
	})
	stages := []models.Stage{models.StageReceived}

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline panic", map[string]interface{}{"panic": fmt.Sprint(r)})
			result = faulted(stages)
		}
		o.finish(ctx, log, result, start)
	}()

	validation := o.deps.Validator.Validate(ctx, req.Text, req.SessionID)
	if !validation.Valid {
		return o.reject(log, stages, validation.Code, validation.Errors, validation.Warnings, validation.RetryAfter)
	}
	stages = append(stages, models.StageValidated)

	var filters models.Filters
	if len(req.Filters) > 0 {
		fv := o.deps.Validator.ValidateFilters(req.Filters)
		if !fv.Valid {
			return o.reject(log, stages, string(commonerrors.ErrCodeInvalidFilter), fv.Errors, validation.Warnings, 0)
		}
		filters = fv.Sanitized
	}
	query := validation.Sanitized

	if ctx.Err() != nil {
		log.Warn("request cancelled before planning", map[string]interface{}{"error": ctx.Err().Error()})
		return faulted(stages)
	}

	if cached, ok := o.deps.Cache.Get(ctx, query, filters); ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		cached.Cached = true
		cached.Stages = append(stages, models.StageCacheHit, models.StageAnswered)
		return cached
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()
	stages = append(stages, models.StageCacheMiss)

	result = models.QueryResult{Errors: []string{}}
	if len(validation.Warnings) > 0 {
		result.Errors = append(result.Errors, validation.Warnings...)
	}
	var causes []*commonerrors.StandardError

	classification := o.classify(ctx, query)
	if classification.Defaulted {
		result.Degraded = append(result.Degraded, models.DegradedClassification)
		log.Debug("using default intent", map[string]interface{}{"reason": errString(classification.Reason)})
	}
	userIntent := classification.Intent

	planStart := o.now()
	plan := o.deps.Planner.Plan(query, userIntent)
	if len(filters) > 0 {
		plan.Filters = plan.Filters.Merge(filters)
	}
	metrics.StageDuration.WithLabelValues("plan").Observe(o.now().Sub(planStart).Seconds())
	if planner.Defaulted(plan) {
		result.Degraded = append(result.Degraded, models.DegradedPlanning)
	}
	stages = append(stages, models.StagePlanned)

	data := o.deps.DataAccess.Execute(ctx, plan)
	stages = append(stages, models.StageDataFetched)
	if !data.Success {
		result.Degraded = append(result.Degraded, models.DegradedData)
		causes = append(causes, dataCause(data))
	}

	genStart := o.now()
	response := o.deps.Generator.Generate(ctx, query, plan, data, userIntent)
	metrics.StageDuration.WithLabelValues("generate").Observe(o.now().Sub(genStart).Seconds())
	stages = append(stages, models.StageResponded)
	if !response.Success {
		result.Degraded = append(result.Degraded, models.DegradedGeneration)
		if stdErr, ok := commonerrors.As(response.Err); ok {
			causes = append(causes, stdErr)
		} else {
			causes = append(causes, commonerrors.NewLLMSynthesisFailedError(fmt.Errorf("%v", response.Err)))
		}
	}

	if ctx.Err() != nil {
		log.Warn("request cancelled during processing", map[string]interface{}{"error": ctx.Err().Error()})
		return faulted(stages)
	}

	result.Success = data.Success && response.Success
	result.Response = response.Text
	result.Plan = &plan
	result.DataResult = &data
	result.Intent = &userIntent
	if len(causes) > 0 {
		result.Notice = commonerrors.UserMessage(commonerrors.GetErrorCategory(causes[0].Code))
		for _, c := range causes {
			log.Warn("answer degraded", map[string]interface{}{
				"errorCode": c.Code,
				"details":   c.Details,
			})
		}
	}

	if result.Success {
		o.deps.Cache.Set(ctx, query, filters, result)
		stages = append(stages, models.StageCached)
	}
	result.Stages = append(stages, models.StageAnswered)
	return result
}

func (o *Orchestrator) classify(ctx context.Context, query string) intent.Classification {
	if o.deps.Classifier == nil {
		return intent.Classification{Intent: models.DefaultIntent(), Defaulted: true, Reason: intent.ErrClassificationUnavailable}
	}
	start := o.now()
	defer func() {
		metrics.StageDuration.WithLabelValues("classify").Observe(o.now().Sub(start).Seconds())
	}()
	return o.deps.Classifier.Classify(ctx, query)
}

func (o *Orchestrator) reject(log logger.Logger, stages []models.Stage, code string, errs, warnings []string, retryAfter int) models.QueryResult {
	category := commonerrors.GetErrorCategory(commonerrors.ErrorCode(code))
	if category != commonerrors.CategoryRateLimit {
		category = commonerrors.CategoryMalformed
	}
	metrics.QueriesRejected.WithLabelValues(code).Inc()
	log.Info("query rejected", map[string]interface{}{
		"code":   code,
		"errors": errs,
	})

	message := commonerrors.UserMessage(category)
	return models.QueryResult{
		Success:    false,
		Response:   message,
		Notice:     message,
		RetryAfter: retryAfter,
		Errors:     append(append([]string{}, errs...), warnings...),
		Stages:     append(stages, models.StageAnswered),
	}
}

func (o *Orchestrator) finish(ctx context.Context, log logger.Logger, result models.QueryResult, start time.Time) {
	elapsed := o.now().Sub(start)
	metrics.StageDuration.WithLabelValues("total").Observe(elapsed.Seconds())
	metrics.QueriesProcessed.WithLabelValues(outcome(result)).Inc()

	planType := ""
	if result.Plan != nil {
		planType = string(result.Plan.Type)
	}
	o.deps.Observability.RecordQuery(context.WithoutCancel(ctx), planType, result.Success, result.Cached, elapsed)

	log.Info("query answered", map[string]interface{}{
		"planType":   planType,
		"success":    result.Success,
		"cached":     result.Cached,
		"degraded":   result.Degraded,
		"durationMs": elapsed.Milliseconds(),
	})
}

func faulted(stages []models.Stage) models.QueryResult {
	message := commonerrors.UserMessage(commonerrors.CategoryInternal)
	return models.QueryResult{
		Success:  false,
		Response: message,
		Notice:   message,
		Errors:   []string{},
		Stages:   append(stages, models.StageAnswered),
	}
}

func dataCause(data models.DataResult) *commonerrors.StandardError {
	code := commonerrors.ErrorCode(data.ErrorCode)
	if code == "" {
		code = commonerrors.ErrCodeQueryExecutionFailed
	}
	return &commonerrors.StandardError{Code: code, Message: data.Error, Details: data.Error}
}

func outcome(result models.QueryResult) string {
	switch {
	case result.Notice != "" && result.Notice == commonerrors.UserMessage(commonerrors.CategoryInternal):
		return "error"
	case result.Cached:
		return "cached"
	case result.Success:
		return "answered"
	case result.Plan != nil:
		return "degraded"
	case result.RetryAfter > 0:
		return "rate_limited"
	default:
		return "rejected"
	}
}

// displayText puts the notice ahead of a degraded answer so the reader sees
// the cause first.
func displayText(result models.QueryResult) string {
	if result.Notice == "" || result.Notice == result.Response {
		return result.Response
	}
	return result.Notice + "\n\n" + result.Response
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
