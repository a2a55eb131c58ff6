package engine

import (
	"context"
	"fmt"
)

// Backend names accepted by Detect.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
)

// DetectConfig holds parameters for backend selection.
type DetectConfig struct {
	Backend string
	BaseURL string
	APIKey  string
}

// Detect returns the Engine for the configured backend. An empty backend
// selects Ollama.
func Detect(ctx context.Context, cfg DetectConfig) (Engine, error) {
	switch cfg.Backend {
	case "", BackendOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return NewOllamaEngine(baseURL), nil
	case BackendOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai backend requires an API key")
		}
		return NewOpenAIEngine(cfg.APIKey, cfg.BaseURL), nil
	case BackendGemini:
		return NewGeminiEngine(ctx, cfg.APIKey, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unknown engine backend %q", cfg.Backend)
	}
}
