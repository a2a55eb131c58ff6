//go:build !darwin

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// errSecretNotFound is returned when the secrets file has no entry for the
// requested service and account.
var errSecretNotFound = errors.New("secret not found")

// secretsFilePath is the 0600 file standing in for a keychain off macOS:
// {"labeler": {"engine_api_key": "...", "server_token": "..."}}.
func secretsFilePath() string {
	dir, ok := xdgDir("XDG_DATA_HOME", ".local", "share")
	if !ok {
		dir = filepath.Join(".", appName)
	}
	return filepath.Join(dir, "secrets.json")
}

func readSecrets(p string) (map[string]map[string]string, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	var secrets map[string]map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file %s: %w", p, err)
	}
	return secrets, nil
}

func keychainExec(service, account string) ([]byte, error) {
	secrets, err := readSecrets(secretsFilePath())
	if err != nil {
		return nil, fmt.Errorf("secret store not available: %w", err)
	}
	val, ok := secrets[service][account]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", errSecretNotFound, service, account)
	}
	return []byte(val), nil
}

// keychainSet stores value, keeping the other secrets. A secrets file that
// exists but cannot be parsed is left untouched.
func keychainSet(service, account, value string) error {
	p := secretsFilePath()

	secrets, err := readSecrets(p)
	switch {
	case errors.Is(err, os.ErrNotExist):
		secrets = make(map[string]map[string]string)
	case err != nil:
		return fmt.Errorf("refusing to overwrite secrets: %w", err)
	case secrets == nil:
		secrets = make(map[string]map[string]string)
	}
	if secrets[service] == nil {
		secrets[service] = make(map[string]string)
	}
	secrets[service][account] = value

	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, out, 0o600)
}
