// internal/pipeline/generator/generator.go
package generator

import (
	"context"
	"errors"
	"time"

	commonerrors "procurement-assistant/internal/common/errors"
	"procurement-assistant/internal/common/logger"
	"procurement-assistant/internal/common/metrics"
	"procurement-assistant/internal/models"
	"procurement-assistant/internal/pipeline/llm"
)

// Response is the generator outcome. Fallback responses carry Success=false
// and the cause in Err; Text is never empty.
type Response struct {
	Success  bool
	Text     string
	Fallback bool
	Err      error
}

type Options struct {
	Provider    string
	Temperature float64
	MaxTokens   int
}

type Generator struct {
	client llm.Client
	opts   Options
	logger logger.Logger
}

func New(client llm.Client, opts Options, log logger.Logger) *Generator {
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 2000
	}
	return &Generator{
		client: client,
		opts:   opts,
		logger: log.With(map[string]interface{}{"component": "generator"}),
	}
}

func (g *Generator) Generate(ctx context.Context, query string, plan models.QueryPlan, data models.DataResult, intent models.Intent) Response {
	if g.client == nil {
		return g.fallback(plan, data, commonerrors.NewLLMNotConfiguredError(g.opts.Provider))
	}

	start := time.Now()
	text, err := g.client.Complete(ctx, llm.Request{
		System:      SystemPrompt,
		User:        BuildUserPrompt(query, plan, data, intent),
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
	})
	if err != nil {
		return g.fallback(plan, data, g.wrap(err))
	}

	g.logger.Debug("response generated", map[string]interface{}{
		"planType":   plan.Type,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return Response{Success: true, Text: text}
}

func (g *Generator) fallback(plan models.QueryPlan, data models.DataResult, cause *commonerrors.StandardError) Response {
	metrics.FallbackResponses.WithLabelValues(string(plan.Type)).Inc()

	fields := map[string]interface{}{
		"planType":  plan.Type,
		"errorCode": cause.Code,
	}
	if cause.Code == commonerrors.ErrCodeLLMNotConfigured {
		g.logger.Debug("using fallback response", fields)
	} else {
		fields["error"] = cause.Details
		g.logger.Warn("using fallback response", fields)
	}

	return Response{
		Success:  false,
		Text:     Fallback(plan, data),
		Fallback: true,
		Err:      cause,
	}
}

func (g *Generator) wrap(err error) *commonerrors.StandardError {
	switch {
	case errors.Is(err, llm.ErrMissingCredential):
		return commonerrors.NewLLMNotConfiguredError(g.opts.Provider)
	case errors.Is(err, llm.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return commonerrors.NewLLMTimeoutError()
	default:
		return commonerrors.NewLLMSynthesisFailedError(err)
	}
}
