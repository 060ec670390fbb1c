// internal/workers/assistant/process-query/config.go
package processquery

import (
	"time"

	"procurement-assistant/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

// LoadConfig derives the handler settings from the worker's configuration.
func LoadConfig(wcfg config.WorkerConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Config{Timeout: timeout}
}
