package engine

import "context"

// Engine abstracts a text-generation backend (local Ollama, an
// OpenAI-compatible hosted API, or Gemini). The labeling pipeline talks to
// this interface through internal/textgen and never to a concrete client.
type Engine interface {
	// Chat sends messages to the given model and returns the assistant's response.
	// When jsonSchema is non-nil, structured JSON output is requested.
	Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error)

	// IsRunning reports whether the backend is reachable.
	IsRunning(ctx context.Context) bool

	// ListModels returns the names of the models the backend can serve.
	ListModels(ctx context.Context) ([]string, error)

	// HasModel reports whether the given model name is available.
	HasModel(ctx context.Context, name string) bool

	// PullModel downloads a model. The optional callback receives progress updates.
	// Hosted backends return ErrPullUnsupported.
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}
