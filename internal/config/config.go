package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Engine   EngineConfig
	Pipeline PipelineConfig
	Storage  StorageConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port  int
	Token string
}

// EngineConfig selects the text-generation backend.
type EngineConfig struct {
	Backend string // ollama, openai or gemini
	BaseURL string // empty selects the backend default
	Model   string
	APIKey  string
}

type PipelineConfig struct {
	MaxParallelism int // 0 means runtime.NumCPU
	MaxAttempts    int
	TablesPath     string // empty uses the embedded reference tables
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level  string
	Format string
}

// Default models per backend.
var defaultModels = map[string]string{
	"ollama": "qwen2.5:7b",
	"openai": "gpt-4o-mini",
	"gemini": "gemini-2.0-flash",
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Engine: EngineConfig{
			Backend: "ollama",
		},
		Pipeline: PipelineConfig{
			MaxAttempts: 3,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.labeler.app) and secrets
// fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/labeler/config.json
// and secrets come from environment variables or the labeler secrets file.
//
// Environment variables (LABELER_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	applySecrets(&cfg, kc)

	cfg.Engine.Backend = strings.ToLower(strings.TrimSpace(cfg.Engine.Backend))
	model, ok := defaultModels[cfg.Engine.Backend]
	if !ok {
		return Config{}, fmt.Errorf("invalid engine.backend %q (want ollama, openai or gemini)", cfg.Engine.Backend)
	}
	if cfg.Engine.Model == "" {
		cfg.Engine.Model = model
	}

	if cfg.Engine.Backend != "ollama" && cfg.Engine.APIKey == "" {
		msg := "missing required config: API key for engine backend " + cfg.Engine.Backend + ". " +
			"Set it via environment variable LABELER_ENGINE_API_KEY" +
			apiKeyHint()
		return Config{}, fmt.Errorf("%s", msg)
	}
	if cfg.Pipeline.MaxAttempts < 1 {
		return Config{}, fmt.Errorf("invalid pipeline.max_attempts %d: must be at least 1", cfg.Pipeline.MaxAttempts)
	}
	if cfg.Pipeline.MaxParallelism < 0 {
		return Config{}, fmt.Errorf("invalid pipeline.max_parallelism %d: must not be negative", cfg.Pipeline.MaxParallelism)
	}

	return cfg, nil
}

// applySecrets fills secrets that are still empty from the platform keychain.
func applySecrets(cfg *Config, kc keychain) {
	for _, s := range specs {
		if !s.secret || s.extract(*cfg) != "" {
			continue
		}
		if v, err := kc.Get(keychainService, s.account()); err == nil && v != "" {
			s.apply(cfg, v)
		}
	}
}

const keychainService = "labeler"

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
