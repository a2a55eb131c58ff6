//go:build !darwin

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileBackend_RoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	b := newPlatformBackend()
	if err := b.SetString("engine.model", "llama3"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	if err := b.SetInt("server.port", 4200); err != nil {
		t.Fatalf("SetInt: %v", err)
	}

	reloaded := newPlatformBackend()
	if v, ok, err := reloaded.GetString("engine.model"); err != nil || !ok || v != "llama3" {
		t.Errorf("GetString = %q, %v, %v", v, ok, err)
	}
	if v, ok, err := reloaded.GetInt("server.port"); err != nil || !ok || v != 4200 {
		t.Errorf("GetInt = %d, %v, %v", v, ok, err)
	}

	if err := reloaded.Delete("engine.model"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := newPlatformBackend().GetString("engine.model"); ok {
		t.Error("deleted key still present")
	}
}

func TestFileBackend_InvalidInt(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	path := filepath.Join(dir, "labeler", "config.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`{"server.port": 4.5}`), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, _, err := newPlatformBackend().GetInt("server.port"); err == nil {
		t.Error("expected error for fractional port")
	}
}

func TestSecretsFile(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	if _, err := keychainExec("labeler", "engine_api_key"); err == nil {
		t.Fatal("expected error before any secret is stored")
	}
	if err := keychainSet("labeler", "engine_api_key", "sk-file"); err != nil {
		t.Fatalf("keychainSet: %v", err)
	}
	got, err := keychainReader{}.Get("labeler", "engine_api_key")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "sk-file" {
		t.Errorf("Get = %q, want sk-file", got)
	}
}

func TestSecretsFile_KeepsOtherSecrets(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	if err := keychainSet("labeler", "engine_api_key", "sk-1"); err != nil {
		t.Fatal(err)
	}
	if err := keychainSet("labeler", "server_token", "tok"); err != nil {
		t.Fatal(err)
	}
	if v, err := keychainExec("labeler", "engine_api_key"); err != nil || string(v) != "sk-1" {
		t.Errorf("engine_api_key = %q, %v", v, err)
	}
	if _, err := keychainExec("labeler", "missing"); !errors.Is(err, errSecretNotFound) {
		t.Errorf("err = %v, want errSecretNotFound", err)
	}
}

func TestSecretsFile_CorruptFileNotOverwritten(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	path := filepath.Join(dir, "labeler", "secrets.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := keychainSet("labeler", "engine_api_key", "sk-new"); err == nil {
		t.Fatal("expected error for unparsable secrets file")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{not json" {
		t.Errorf("secrets file rewritten: %q", data)
	}
}

func TestFileBackend_CorruptFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	path := filepath.Join(dir, "labeler", "config.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`{"engine.model": "x",`), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, ok, _ := newPlatformBackend().GetString("engine.model"); ok {
		t.Error("corrupt config file must not yield values")
	}
}

func TestDefaultDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	if got, want := defaultDataDir(), filepath.Join(dir, "labeler"); got != want {
		t.Errorf("defaultDataDir = %q, want %q", got, want)
	}
}
