package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GenAI generates text with Google's Gemini API.
type GenAI struct {
	client       *genai.Client
	defaultModel string
	timeout      time.Duration
	temperature  float32
	logger       *zap.Logger
}

type GenAIConfig struct {
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float32
}

func NewGenAI(ctx context.Context, cfg GenAIConfig, logger *zap.Logger) (*GenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAI{
		client:       client,
		defaultModel: cfg.Model,
		timeout:      cfg.Timeout,
		temperature:  cfg.Temperature,
		logger:       logger,
	}, nil
}

// ResolveModel maps a requested model onto one this backend serves.
// Non-Gemini names, such as the OpenAI ids older dashboards send, fall
// back to the configured default.
func (g *GenAI) ResolveModel(model string) string {
	if strings.HasPrefix(model, "gemini") {
		return model
	}
	return g.defaultModel
}

func (g *GenAI) Generate(ctx context.Context, req Request) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	model := g.ResolveModel(req.Model)

	cfg := &genai.GenerateContentConfig{}
	if g.temperature > 0 {
		cfg.Temperature = genai.Ptr(g.temperature)
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := resp.Text()
	g.logger.Debug("generated text",
		zap.String("model", model),
		zap.Int("chars", len(text)),
		zap.Duration("took", time.Since(start)))
	if strings.TrimSpace(text) == "" {
		return "", ErrEmpty
	}
	return text, nil
}
