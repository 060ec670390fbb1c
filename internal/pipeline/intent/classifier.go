// internal/pipeline/intent/classifier.go
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"procurement-assistant/internal/common/logger"
	"procurement-assistant/internal/models"
	"procurement-assistant/internal/pipeline/llm"
)

var (
	ErrClassificationUnavailable = errors.New("CLASSIFICATION_UNAVAILABLE")
	ErrIntentParsingFailed       = errors.New("INTENT_PARSING_FAILED")
)

const systemPrompt = `You classify procurement questions for a Strategic Action Priority Matrix assistant. Respond with a single JSON object and nothing else.`

const promptTemplate = `Analyze the following procurement query and determine the intent and required data:

Query: "%s"

Respond with a JSON object containing:
{
  "intent": "explanation|analysis|project_plan|data_query|crisis_response",
  "entities": ["key entities mentioned"],
  "data_needed": ["what database views or tables are needed"],
  "urgency": "low|medium|high|critical",
  "response_type": "text|chart|table|project_plan"
}`

// replySchema is the contract a model reply must satisfy before it is trusted.
var replySchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"intent"},
	"properties": map[string]interface{}{
		"intent": map[string]interface{}{
			"type": "string",
			"enum": []interface{}{
				models.IntentExplanation, models.IntentAnalysis, models.IntentProjectPlan,
				models.IntentDataQuery, models.IntentCrisisResponse,
			},
		},
		"entities":    map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"data_needed": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"urgency": map[string]interface{}{
			"type": "string",
			"enum": []interface{}{"low", "medium", "high", "critical"},
		},
		"response_type": map[string]interface{}{
			"type": "string",
			"enum": []interface{}{"text", "chart", "table", "project_plan"},
		},
	},
}

// Classification is the classifier outcome. Defaulted is set whenever Intent
// is the deterministic default; Reason then says why.
type Classification struct {
	Intent    models.Intent
	Defaulted bool
	Reason    error
}

type Options struct {
	Temperature float64
	MaxTokens   int
}

type Classifier struct {
	client llm.Client
	opts   Options
	schema gojsonschema.JSONLoader
	logger logger.Logger
}

func New(client llm.Client, opts Options, log logger.Logger) *Classifier {
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 300
	}
	return &Classifier{
		client: client,
		opts:   opts,
		schema: gojsonschema.NewGoLoader(replySchema),
		logger: log.With(map[string]interface{}{"component": "intent"}),
	}
}

// Classify never fails: any problem yields the default intent.
func (c *Classifier) Classify(ctx context.Context, query string) Classification {
	if c.client == nil {
		return defaulted(ErrClassificationUnavailable)
	}

	start := time.Now()
	reply, err := c.client.Complete(ctx, llm.Request{
		System:      systemPrompt,
		User:        fmt.Sprintf(promptTemplate, query),
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	})
	if err != nil {
		if !errors.Is(err, llm.ErrMissingCredential) {
			c.logger.Warn("intent classification unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return defaulted(fmt.Errorf("%w: %v", ErrClassificationUnavailable, err))
	}

	parsed, err := c.Parse(reply)
	if err != nil {
		c.logger.Warn("intent reply rejected", map[string]interface{}{
			"error": err.Error(),
		})
		return defaulted(err)
	}

	c.logger.Debug("intent classified", map[string]interface{}{
		"intent":     parsed.Category,
		"urgency":    parsed.Urgency,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return Classification{Intent: parsed}
}

// Parse validates a model reply and fills optional fields from the default.
func (c *Classifier) Parse(reply string) (models.Intent, error) {
	body := StripCodeFence(reply)

	var doc interface{}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return models.Intent{}, fmt.Errorf("%w: %v", ErrIntentParsingFailed, err)
	}

	result, err := gojsonschema.Validate(c.schema, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return models.Intent{}, fmt.Errorf("%w: %v", ErrIntentParsingFailed, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return models.Intent{}, fmt.Errorf("%w: %s", ErrIntentParsingFailed, strings.Join(errs, "; "))
	}

	var out models.Intent
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return models.Intent{}, fmt.Errorf("%w: %v", ErrIntentParsingFailed, err)
	}

	def := models.DefaultIntent()
	if out.Entities == nil {
		out.Entities = def.Entities
	}
	if out.DataNeeded == nil {
		out.DataNeeded = def.DataNeeded
	}
	if out.Urgency == "" {
		out.Urgency = def.Urgency
	}
	if out.ResponseType == "" {
		out.ResponseType = def.ResponseType
	}
	return out, nil
}

// StripCodeFence removes a surrounding markdown code fence and any prose
// around the outermost JSON object.
func StripCodeFence(reply string) string {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "json")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	s = strings.TrimSpace(s)

	if !strings.HasPrefix(s, "{") {
		start := strings.IndexByte(s, '{')
		end := strings.LastIndexByte(s, '}')
		if start >= 0 && end > start {
			s = s[start : end+1]
		}
	}
	return s
}

func defaulted(reason error) Classification {
	return Classification{Intent: models.DefaultIntent(), Defaulted: true, Reason: reason}
}
