package dataaccess

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"procurement-assistant/internal/common/errors"
	"procurement-assistant/internal/common/logger"
	"procurement-assistant/internal/common/metrics"
	"procurement-assistant/internal/models"
	"procurement-assistant/internal/pipeline/dataaccess/queries"
)

const searchLimit = 10

type capability struct {
	run func(ctx context.Context, plan models.QueryPlan) (Result, error)
	// rankBy is the numeric column every returned row must carry.
	rankBy string
	sort   func(rows []models.Row)
}

// Facade dispatches plans to named capabilities.
type Facade struct {
	registry map[models.Operation]capability
	timeout  time.Duration
	logger   logger.Logger
}

// NewFacade wires store for every capability. A non-nil searcher replaces the
// store's own vendor search.
func NewFacade(store Store, searcher VendorSearcher, timeout time.Duration, log logger.Logger) *Facade {
	if searcher == nil {
		searcher = store
	}
	byVariance := func(rows []models.Row) { sortByDesc(rows, "price_variance_amount") }

	return &Facade{
		timeout: timeout,
		logger:  log.With(map[string]interface{}{"component": "dataaccess"}),
		registry: map[models.Operation]capability{
			models.OperationPrioritySummary: {
				run: func(ctx context.Context, _ models.QueryPlan) (Result, error) {
					return store.PrioritySummary(ctx)
				},
				rankBy: "total_savings_opportunity",
				sort:   sortByPriority,
			},
			models.OperationCrisisResponse: {
				run: func(ctx context.Context, _ models.QueryPlan) (Result, error) {
					return store.QueryMatrix(ctx, queries.CrisisFilters())
				},
				rankBy: "price_variance_amount",
				sort:   byVariance,
			},
			models.OperationQueryMatrix: {
				run: func(ctx context.Context, plan models.QueryPlan) (Result, error) {
					return store.QueryMatrix(ctx, plan.Filters)
				},
				rankBy: "price_variance_amount",
				sort:   byVariance,
			},
			models.OperationSearchVendors: {
				run: func(ctx context.Context, plan models.QueryPlan) (Result, error) {
					return searcher.SearchVendors(ctx, plan.SearchTerm, searchLimit)
				},
				rankBy: "estimated_savings_opportunity",
				sort:   func(rows []models.Row) { sortByDesc(rows, "estimated_savings_opportunity") },
			},
		},
	}
}

// Known reports whether op is a registered capability.
func (f *Facade) Known(op models.Operation) bool {
	_, ok := f.registry[op]
	return ok
}

// Execute runs plan and never fails: errors, timeouts, panics and malformed
// rows all come back as {success:false, rows:[]}. Unknown operations fall
// back to the priority summary.
func (f *Facade) Execute(ctx context.Context, plan models.QueryPlan) (result models.DataResult) {
	op := plan.Operation
	capab, ok := f.registry[op]
	if !ok {
		f.logger.Warn("unknown operation, using priority summary", map[string]interface{}{
			"operation": string(op),
		})
		op = models.OperationPrioritySummary
		capab = f.registry[op]
	}

	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("data_access").Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			result = f.fail(op, errors.NewInternalError(fmt.Errorf("panic: %v", r)))
		}
	}()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	res, err := capab.run(ctx, plan)
	if err != nil {
		return f.fail(op, classify(ctx, op, err))
	}

	for _, row := range res.Rows {
		if v, present := row[capab.rankBy]; !present || !isNumber(v) {
			return f.fail(op, errors.NewMalformedRowError(capab.rankBy, v))
		}
	}
	rows := res.Rows
	if rows == nil {
		rows = []models.Row{}
	}
	capab.sort(rows)

	return models.DataResult{
		Success:   true,
		Rows:      rows,
		Operation: op,
		Query:     res.Query,
	}
}

func (f *Facade) fail(op models.Operation, stdErr *errors.StandardError) models.DataResult {
	metrics.DataAccessFailures.WithLabelValues(string(op)).Inc()
	f.logger.Error("data access failed", map[string]interface{}{
		"operation": string(op),
		"errorCode": string(stdErr.Code),
		"details":   stdErr.Details,
	})
	res := models.FailedData(op, stdErr)
	res.Error = stdErr.Message
	res.ErrorCode = string(stdErr.Code)
	return res
}

func classify(ctx context.Context, op models.Operation, err error) *errors.StandardError {
	if stdErr, ok := errors.As(err); ok {
		return stdErr
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewQueryTimeoutError(string(op))
	}
	if op == models.OperationSearchVendors {
		return errors.NewSearchQueryFailedError(err)
	}
	return errors.NewQueryExecutionFailedError(string(op), err)
}

func isNumber(v interface{}) bool {
	switch v.(type) {
	case float64, float32, int, int32, int64:
		return true
	}
	return false
}

// number converts a numeric cell to float64; non-numbers count as zero.
func number(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
