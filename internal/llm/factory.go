package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/simfinder/internal/config"
	"github.com/agenthands/simfinder/internal/logger"
)

const defaultOllamaURL = "http://localhost:11434"

// NewClient builds the client for the configured provider. Ollama is
// reached through its OpenAI-compatible endpoint.
func NewClient(ctx context.Context, cfg config.LLMConfig, log logger.Logger) (LLMClient, error) {
	if log == nil {
		log = logger.GetDefault()
	}
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)

	case "claude", "anthropic":
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "ollama":
		baseURL := OllamaBaseURL(cfg.BaseURL)
		log.Info("using ollama through openai-compatible api", "base_url", baseURL, "model", cfg.Model)

		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama" // ignored by ollama, required by the client
		}
		return NewOpenAIClient(apiKey, cfg.Model, baseURL), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}

// OllamaBaseURL appends the /v1 suffix of the OpenAI-compatible API.
func OllamaBaseURL(baseURL string) string {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(baseURL, "/v1") {
		return baseURL
	}
	return baseURL + "/v1"
}
