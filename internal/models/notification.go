// internal/models/notification.go
package models

import "time"

// SecurityEvent kinds.
const (
	SecurityEventForbiddenContent = "forbidden_content"
	SecurityEventRateLimited      = "rate_limit_exceeded"
)

// SecurityEvent is advisory telemetry about rejected input.
type SecurityEvent struct {
	Timestamp time.Time              `json:"timestamp"`
	Kind      string                 `json:"event"`
	SessionID string                 `json:"sessionId"`
	Details   map[string]interface{} `json:"details"`
}
