// internal/pipeline/llm/llm.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"procurement-assistant/internal/common/config"
	"procurement-assistant/internal/common/logger"
)

var (
	ErrMissingCredential = errors.New("LLM_NOT_CONFIGURED")
	ErrUpstreamStatus    = errors.New("LLM_UPSTREAM_STATUS")
	ErrNetwork           = errors.New("LLM_NETWORK")
	ErrTimeout           = errors.New("LLM_TIMEOUT")
	ErrEmptyReply        = errors.New("LLM_EMPTY_REPLY")
)

// Request is one prompt exchange with the language model.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Client sends a prompt and returns the generated text.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// New builds the provider named in cfg. A missing API key is not an error
// here: the returned client fails every call with ErrMissingCredential so the
// pipeline keeps serving fallback answers.
func New(ctx context.Context, cfg config.GenAIConfig, log logger.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return &unconfigured{provider: cfg.Provider, logger: log}, nil
	}

	switch cfg.Provider {
	case "", "openai":
		return NewOpenAI(cfg, log), nil
	case "gemini":
		return NewGemini(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown genai provider %q", cfg.Provider)
	}
}

type unconfigured struct {
	provider string
	logger   logger.Logger
	once     sync.Once
}

func (u *unconfigured) Complete(ctx context.Context, req Request) (string, error) {
	u.once.Do(func() {
		u.logger.Warn("language model API key is not set; responses will use fallback templates", map[string]interface{}{
			"provider": u.provider,
		})
	})
	return "", ErrMissingCredential
}

// classify maps a transport failure onto the package sentinels.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
