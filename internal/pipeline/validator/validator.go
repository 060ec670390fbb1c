// Package validator sanitizes and rate-limits raw user input before it
// enters the pipeline.
package validator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"procurement-assistant/internal/common/errors"
	"procurement-assistant/internal/common/logger"
	"procurement-assistant/internal/common/validation"
	"procurement-assistant/internal/models"
)

type Config struct {
	MaxQueryLength   int
	LongQueryWarning int
	RateLimit        int
	RateWindow       time.Duration
	IdleSessionTTL   time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxQueryLength:   1000,
		LongQueryWarning: 500,
		RateLimit:        30,
		RateWindow:       60 * time.Second,
		IdleSessionTTL:   time.Hour,
	}
}

// Denylisted words match on word boundaries, phrases as substrings.
var (
	deniedWords = []string{
		"DROP", "DELETE", "INSERT", "UPDATE", "ALTER", "TRUNCATE", "EXEC", "EXECUTE", "UNION",
		"SCRIPT", "JAVASCRIPT", "VBSCRIPT", "ONLOAD", "ONERROR", "ONCLICK",
	}
	deniedPhrases = []string{"DROP TABLE"}

	deniedWordPatterns = compileWordPatterns(deniedWords)
	whitespaceRun      = regexp.MustCompile(`\s+`)
	strippedChars      = strings.NewReplacer("<", "", ">", "", "'", "", `"`, "", "`", "", ";", "")
)

func compileWordPatterns(words []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		patterns[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return patterns
}

type Validator struct {
	config       Config
	rates        RateStore
	sink         SecuritySink
	logger       logger.Logger
	filterSchema validation.Schema
	now          func() time.Time
}

// New wires a validator. A nil RateStore selects the in-memory store and a
// nil sink logs security events.
func New(config Config, rates RateStore, sink SecuritySink, log logger.Logger) *Validator {
	if rates == nil {
		rates = NewMemoryRateStore(config.RateLimit, config.RateWindow)
	}
	if sink == nil {
		sink = NewLogSink(log)
	}
	return &Validator{
		config:       config,
		rates:        rates,
		sink:         sink,
		logger:       log.With(map[string]interface{}{"component": "validator"}),
		filterSchema: filterSchema(),
		now:          time.Now,
	}
}

// Validate never returns an error: every problem is reported in the result.
// The rate window records the request even when other checks fail.
func (v *Validator) Validate(ctx context.Context, raw, sessionID string) models.ValidationResult {
	result := models.ValidationResult{
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
	}
	reject := func(code errors.ErrorCode, msg string) {
		result.Valid = false
		result.Errors = append(result.Errors, msg)
		if result.Code == "" {
			result.Code = string(code)
		}
	}

	length := utf8.RuneCountInString(raw)
	if length > v.config.MaxQueryLength {
		reject(errors.ErrCodeQueryTooLong, fmt.Sprintf("Query too long. Maximum %d characters allowed.", v.config.MaxQueryLength))
	}
	if strings.TrimSpace(raw) == "" {
		reject(errors.ErrCodeQueryEmpty, "Query cannot be empty.")
	}

	decision, err := v.rates.Allow(ctx, sessionID, v.now())
	switch {
	case err != nil:
		v.logger.Warn("rate store unavailable, allowing request", map[string]interface{}{
			"sessionId": sessionID,
			"error":     err.Error(),
		})
	case !decision.Allowed:
		wait := decision.RetryAfterSeconds()
		result.RetryAfter = wait
		reject(errors.ErrCodeRateLimited, fmt.Sprintf("Rate limit exceeded. Please wait %d seconds.", wait))
		v.emit(ctx, models.SecurityEventRateLimited, sessionID, map[string]interface{}{
			"requestsInWindow": decision.Count,
			"retryAfter":       wait,
		})
	}

	if found := DeniedTokens(raw); len(found) > 0 {
		reject(errors.ErrCodeQueryForbidden, fmt.Sprintf("Query contains potentially dangerous content: %s", strings.Join(found, ", ")))
		v.emit(ctx, models.SecurityEventForbiddenContent, sessionID, map[string]interface{}{
			"keywords": found,
			"query":    Sanitize(raw),
		})
	}

	result.Sanitized = Sanitize(raw)

	if length > v.config.LongQueryWarning {
		result.Warnings = append(result.Warnings, "Long query detected. Consider breaking into smaller questions.")
	}

	return result
}

// DeniedTokens returns the denylist entries found in text, in denylist order.
func DeniedTokens(text string) []string {
	var found []string
	for i, re := range deniedWordPatterns {
		if re.MatchString(text) {
			found = append(found, deniedWords[i])
		}
	}
	normalized := strings.ToUpper(whitespaceRun.ReplaceAllString(text, " "))
	for _, phrase := range deniedPhrases {
		if strings.Contains(normalized, phrase) {
			found = append(found, phrase)
		}
	}
	return found
}

// Sanitize strips markup and quoting characters and collapses whitespace.
func Sanitize(text string) string {
	s := strings.TrimSpace(text)
	s = strippedChars.Replace(s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ValidateFilters checks caller-supplied filters against the allow-list.
func (v *Validator) ValidateFilters(filters models.Filters) models.FilterValidationResult {
	res := validation.ValidateInput(filters, v.filterSchema)
	return models.FilterValidationResult{
		Valid:     res.Valid,
		Errors:    res.GetErrorMessages(),
		Sanitized: models.Filters(res.Sanitized),
	}
}

// Cleanup drops rate windows of sessions idle longer than IdleSessionTTL.
func (v *Validator) Cleanup(ctx context.Context) int {
	removed, err := v.rates.Cleanup(ctx, v.now(), v.config.IdleSessionTTL)
	if err != nil {
		v.logger.Warn("rate window cleanup failed", map[string]interface{}{"error": err.Error()})
	}
	return removed
}

func (v *Validator) emit(ctx context.Context, kind, sessionID string, details map[string]interface{}) {
	v.sink.Emit(ctx, models.SecurityEvent{
		Timestamp: v.now().UTC(),
		Kind:      kind,
		SessionID: sessionID,
		Details:   details,
	})
}

func filterSchema() validation.Schema {
	freeText := validation.Property{Type: "string", Sanitize: Sanitize, MaxLength: validation.Int(200)}
	savings := validation.Property{Type: "number", Minimum: validation.Float(0), Message: "Invalid savings value: %v"}

	return validation.Schema{Properties: map[string]validation.Property{
		"priority": {Type: "string", Enum: models.Priorities, Message: "Invalid priority value: %v"},
		"timeline": {Type: "string", Enum: models.Timelines, Message: "Invalid timeline value: %v"},
		"limit": {
			Type:    "integer",
			Minimum: validation.Float(1),
			Maximum: validation.Float(100),
			Message: "Limit must be between 1 and 100",
		},
		"minSavings": savings,
		"maxSavings": savings,
		"riskLevel":  freeText,
		"vendor":     freeText,
		"commodity":  freeText,
	}}
}
