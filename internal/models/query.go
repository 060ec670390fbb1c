// internal/models/query.go
package models

import "time"

// Query is one user message as received.
type Query struct {
	Text       string    `json:"text"`
	SessionID  string    `json:"sessionId"`
	ReceivedAt time.Time `json:"receivedAt"`
}

type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	// Sanitized is filled even when the query is invalid.
	Sanitized string `json:"sanitizedQuery"`
	// RetryAfter is the wait hint in seconds; set only when rate limited.
	RetryAfter int `json:"retryAfter,omitempty"`
	// Code is the first rejection code, empty when valid.
	Code string `json:"code,omitempty"`
}

type FilterValidationResult struct {
	Valid     bool     `json:"valid"`
	Errors    []string `json:"errors"`
	Sanitized Filters  `json:"sanitizedFilters"`
}

// Filters maps a filter key (priority, timeline, limit, ...) to its value.
type Filters map[string]interface{}

// Clone returns a shallow copy; a nil receiver yields an empty map.
func (f Filters) Clone() Filters {
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Merge returns a copy of f with every key of override applied on top.
func (f Filters) Merge(override Filters) Filters {
	out := f.Clone()
	for k, v := range override {
		out[k] = v
	}
	return out
}

// Intent is the classifier's reading of a query.
type Intent struct {
	Category     string   `json:"intent"`
	Entities     []string `json:"entities"`
	DataNeeded   []string `json:"data_needed"`
	Urgency      string   `json:"urgency"`
	ResponseType string   `json:"response_type"`
}

const (
	IntentExplanation    = "explanation"
	IntentAnalysis       = "analysis"
	IntentProjectPlan    = "project_plan"
	IntentDataQuery      = "data_query"
	IntentCrisisResponse = "crisis_response"
)

// DefaultIntent is substituted whenever classification is unavailable.
func DefaultIntent() Intent {
	return Intent{
		Category:     IntentExplanation,
		Entities:     []string{},
		DataNeeded:   []string{"strategic_action_priority_matrix"},
		Urgency:      "medium",
		ResponseType: "text",
	}
}
