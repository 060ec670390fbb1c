package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is a display record. Turns are never mutated once appended.
type ConversationTurn struct {
	ID        string      `json:"id"`
	SessionID string      `json:"sessionId"`
	Role      Role        `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Plan      *QueryPlan  `json:"plan,omitempty"`
	Data      *DataResult `json:"data,omitempty"`
	Success   *bool       `json:"success,omitempty"`
}

// Stage is a step in the per-message state machine.
type Stage string

const (
	StageReceived    Stage = "received"
	StageValidated   Stage = "validated"
	StageCacheHit    Stage = "cache_hit"
	StageCacheMiss   Stage = "cache_miss"
	StagePlanned     Stage = "planned"
	StageDataFetched Stage = "data_fetched"
	StageResponded   Stage = "responded"
	StageCached      Stage = "cached"
	StageAnswered    Stage = "answered"
)

// Degradation kinds absorbed into an answer.
const (
	DegradedPlanning       = "planning_defaulted"
	DegradedData           = "data_unavailable"
	DegradedGeneration     = "generation_unavailable"
	DegradedClassification = "classification_unavailable"
)

// QueryResult is what callers of the pipeline receive.
type QueryResult struct {
	Success    bool        `json:"success"`
	Response   string      `json:"response"`
	Plan       *QueryPlan  `json:"plan,omitempty"`
	DataResult *DataResult `json:"dataResult,omitempty"`
	Intent     *Intent     `json:"intent,omitempty"`
	Cached     bool        `json:"cached"`
	Degraded   []string    `json:"degraded,omitempty"`
	// Notice names the cause category of a degraded or rejected answer.
	Notice     string   `json:"notice,omitempty"`
	RetryAfter int      `json:"retryAfter,omitempty"`
	Errors     []string `json:"errors,omitempty"`
	Stages     []Stage  `json:"stages"`
}
