// Package textgen is the text-generation service used by every pipeline
// stage: free-text completions and schema-constrained structured
// completions over any engine.Engine backend.
package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/labeler/internal/engine"
)

// ErrSchemaViolation is returned when a structured reply does not conform to
// the requested schema.
var ErrSchemaViolation = errors.New("response does not match schema")

// Chatter is the slice of engine.Engine the service needs.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []engine.Message, jsonSchema *engine.Schema) (string, error)
}

// Generator is implemented by Service and by test doubles.
type Generator interface {
	// GenerateText returns a free-text completion for one system prompt and
	// an ordered list of user prompts.
	GenerateText(ctx context.Context, system string, users ...string) (string, error)

	// GenerateStructured requests a completion constrained to schema and
	// decodes it into out. It fails rather than return a partially-typed
	// value.
	GenerateStructured(ctx context.Context, system string, users []string, schema *engine.Schema, out any) error
}

// Service sends prompts to a fixed model.
type Service struct {
	chat    Chatter
	model   string
	timeout time.Duration
}

// DefaultTimeout bounds a single generation call.
const DefaultTimeout = 2 * time.Minute

// New creates a Service for model on the given backend.
func New(chat Chatter, model string) *Service {
	return &Service{chat: chat, model: model, timeout: DefaultTimeout}
}

// Model returns the model name the service targets.
func (s *Service) Model() string { return s.model }

func messages(system string, users []string) []engine.Message {
	msgs := make([]engine.Message, 0, len(users)+1)
	msgs = append(msgs, engine.Message{Role: engine.RoleSystem, Content: system})
	for _, u := range users {
		msgs = append(msgs, engine.Message{Role: engine.RoleUser, Content: u})
	}
	return msgs
}

func (s *Service) GenerateText(ctx context.Context, system string, users ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	out, err := s.chat.Chat(ctx, s.model, messages(system, users), nil)
	if err != nil {
		return "", fmt.Errorf("generating text: %w", err)
	}
	slog.Debug("text generated", "model", s.model, "duration", time.Since(start), "chars", len(out))

	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("generating text: empty completion")
	}
	return out, nil
}

func (s *Service) GenerateStructured(ctx context.Context, system string, users []string, schema *engine.Schema, out any) error {
	if schema == nil {
		return errors.New("generating structured output: nil schema")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.chat.Chat(ctx, s.model, messages(system, users), schema)
	if err != nil {
		return fmt.Errorf("generating structured output: %w", err)
	}
	slog.Debug("structured output generated", "model", s.model, "duration", time.Since(start))

	return Decode(raw, schema, out)
}

// Decode validates raw JSON against schema and unmarshals it into out.
// Markdown code fences around the payload are tolerated.
func Decode(raw string, schema *engine.Schema, out any) error {
	payload := stripFences(raw)

	var doc any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrSchemaViolation, err)
	}
	if err := Validate(doc, schema); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Structured is GenerateStructured returning a typed value.
func Structured[T any](ctx context.Context, g Generator, system string, users []string, schema *engine.Schema) (T, error) {
	var out T
	err := g.GenerateStructured(ctx, system, users, schema, &out)
	return out, err
}
