package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/kalambet/labeler/internal/proxy"
)

// ErrPullUnsupported is returned by hosted backends, which cannot download models.
var ErrPullUnsupported = errors.New("model pull is not supported by this backend")

// OpenAIEngine talks to an OpenAI-compatible chat completions API.
type OpenAIEngine struct {
	client *proxy.Client
}

// NewOpenAIEngine creates an engine for the given API key and base URL. An
// empty baseURL selects the public OpenAI endpoint.
func NewOpenAIEngine(apiKey, baseURL string) *OpenAIEngine {
	if baseURL == "" {
		return &OpenAIEngine{client: proxy.NewClient(apiKey)}
	}
	return &OpenAIEngine{client: proxy.NewClientWithBaseURL(apiKey, baseURL)}
}

func (e *OpenAIEngine) Chat(ctx context.Context, model string, messages []Message, schema *Schema) (string, error) {
	req := proxy.ChatRequest{Model: model, Messages: make([]proxy.Message, len(messages))}
	for i, m := range messages {
		req.Messages[i] = proxy.Message{Role: m.Role, Content: m.Content}
	}
	if schema != nil {
		zero := 0.0
		req.ResponseFormat = &proxy.ResponseFormat{
			Type:       "json_schema",
			JSONSchema: &proxy.JSONSchema{Name: "response", Strict: true, Schema: schema},
		}
		req.Temperature = &zero
	}

	resp, err := e.client.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion has no choices")
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", msg.Refusal)
	}
	return msg.Content, nil
}

func (e *OpenAIEngine) IsRunning(ctx context.Context) bool {
	_, err := e.client.ListModels(ctx)
	return err == nil
}

func (e *OpenAIEngine) ListModels(ctx context.Context) ([]string, error) {
	models, err := e.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.ID
	}
	return names, nil
}

func (e *OpenAIEngine) HasModel(ctx context.Context, name string) bool {
	names, err := e.ListModels(ctx)
	if err != nil {
		return false
	}
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func (e *OpenAIEngine) PullModel(context.Context, string, func(PullProgress)) error {
	return ErrPullUnsupported
}
