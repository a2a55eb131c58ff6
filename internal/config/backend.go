package config

// appName names the labeler's config domain, data directory and secret
// store service on every platform.
const appName = "labeler"

// ConfigBackend abstracts platform-specific config storage. Keys are the
// dotted names of the key table ("engine.model", "pipeline.max_attempts").
// Secrets never go through a backend; they live in the platform secret store.
// macOS uses UserDefaults (via `defaults` CLI); other platforms use a JSON
// file under XDG_CONFIG_HOME.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
