// internal/workers/assistant/process-query/models.go
package processquery

import "procurement-assistant/internal/models"

type Input struct {
	Question  string         `json:"question"`
	SessionID string         `json:"sessionId"`
	Filters   models.Filters `json:"filters,omitempty"`
}

type Output struct {
	Success    bool               `json:"success"`
	Response   string             `json:"response"`
	PlanType   models.PlanType    `json:"planType,omitempty"`
	Operation  models.Operation   `json:"operation,omitempty"`
	Plan       *models.QueryPlan  `json:"plan,omitempty"`
	DataResult *models.DataResult `json:"dataResult,omitempty"`
	Intent     *models.Intent     `json:"intent,omitempty"`
	Cached     bool               `json:"cached"`
	Degraded   []string           `json:"degraded,omitempty"`
	Notice     string             `json:"notice,omitempty"`
	TurnID     string             `json:"turnId"`
}
