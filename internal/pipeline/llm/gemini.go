// internal/pipeline/llm/gemini.go
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"procurement-assistant/internal/common/config"
	"procurement-assistant/internal/common/logger"
)

// Gemini generates text through the Google Gen AI SDK.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  logger.Logger
}

func NewGemini(ctx context.Context, cfg config.GenAIConfig, log logger.Logger) (*Gemini, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	// base_url defaults to the OpenAI endpoint; only honour an explicit override.
	if cfg.BaseURL != "" && !strings.Contains(cfg.BaseURL, "openai.com") {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Gemini{
		client:  client,
		model:   cfg.Model,
		timeout: config.GetDuration(cfg.Timeout),
		logger:  log.With(map[string]interface{}{"provider": "gemini", "model": cfg.Model}),
	}, nil
}

func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(req.User, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, genCfg)
	if err != nil {
		if ctx.Err() != nil {
			return "", classify(ctx, err)
		}
		g.logger.Warn("gemini generation failed", map[string]interface{}{"error": err.Error()})
		return "", fmt.Errorf("%w: %v", ErrUpstreamStatus, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
