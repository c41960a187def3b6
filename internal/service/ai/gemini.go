package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiConfig configures a GeminiGenerator.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature *float64
	MaxTokens   *int
}

// contentGenerator is the slice of *genai.Models the generator relies on.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator sends panel prompts to the Gemini API.
type GeminiGenerator struct {
	models contentGenerator
	model  string
	config *genai.GenerateContentConfig
	logger *zap.Logger
}

// NewGeminiGenerator creates a Gemini API client.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return newGeminiGenerator(client.Models, cfg, logger), nil
}

func newGeminiGenerator(models contentGenerator, cfg GeminiConfig, logger *zap.Logger) *GeminiGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	name := cfg.Model
	if name == "" {
		name = DefaultGeminiModel
	}

	var genCfg *genai.GenerateContentConfig
	if cfg.Temperature != nil || cfg.MaxTokens != nil {
		genCfg = &genai.GenerateContentConfig{}
		if cfg.Temperature != nil {
			temperature := float32(*cfg.Temperature)
			genCfg.Temperature = &temperature
		}
		if cfg.MaxTokens != nil {
			genCfg.MaxOutputTokens = int32(*cfg.MaxTokens)
		}
	}

	return &GeminiGenerator{models: models, model: name, config: genCfg, logger: logger}
}

// Model reports the Gemini model in use.
func (g *GeminiGenerator) Model() string { return g.model }

// Generate implements the panel Generator contract.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyCompletion
	}

	g.logger.Debug("gemini completion",
		zap.String("model", g.model),
		zap.Int("length", len(text)))
	return text, nil
}
