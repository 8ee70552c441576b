package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	var cfg Config
	if cfg.Sensitivity() != 50 {
		t.Fatalf("default sensitivity = %d, want 50", cfg.Sensitivity())
	}
	if !cfg.AutoDelete() {
		t.Fatal("auto-delete should default to true")
	}
	if !cfg.HoneypotEnabled() {
		t.Fatal("honeypot should default to enabled")
	}
	if !cfg.SkipRegistered() {
		t.Fatal("skip-registered should default to true")
	}
	if cfg.MinElapsedSeconds() != 3 {
		t.Fatalf("default min elapsed = %d, want 3", cfg.MinElapsedSeconds())
	}
	if cfg.RemoteTimeout() != 3*time.Second {
		t.Fatalf("default remote timeout = %v, want 3s", cfg.RemoteTimeout())
	}
}

func TestSensitivityClamped(t *testing.T) {
	cfg := Config{Moderation: ModerationConfig{Sensitivity: 250}}
	if cfg.Sensitivity() != 100 {
		t.Fatalf("expected clamp to 100, got %d", cfg.Sensitivity())
	}
	cfg.Moderation.Sensitivity = -5
	if cfg.Sensitivity() != 0 {
		t.Fatalf("expected clamp to 0, got %d", cfg.Sensitivity())
	}
}

func TestExplicitFalseOverridesDefault(t *testing.T) {
	off := false
	cfg := Config{Moderation: ModerationConfig{AutoDelete: &off, HoneypotEnabled: &off, SkipRegistered: &off}}
	if cfg.AutoDelete() || cfg.HoneypotEnabled() || cfg.SkipRegistered() {
		t.Fatal("explicit false must override the default true")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(sensitivityEnv, "80")
	t.Setenv(autoDeleteEnv, "false")
	t.Setenv(portEnv, "9999")
	t.Setenv(remoteProviderEnv, "http")
	t.Setenv(remoteURLEnv, "https://classifier.example/v1/spam")

	cfg := Load()
	if cfg.Sensitivity() != 80 {
		t.Fatalf("sensitivity override lost: %d", cfg.Sensitivity())
	}
	if cfg.AutoDelete() {
		t.Fatal("auto-delete override lost")
	}
	if cfg.Server.Port != "9999" {
		t.Fatalf("port override lost: %s", cfg.Server.Port)
	}
	if cfg.Remote.Provider != "http" || cfg.Remote.URL != "https://classifier.example/v1/spam" {
		t.Fatalf("remote overrides lost: %+v", cfg.Remote)
	}
}

func TestInvalidEnvFallsBack(t *testing.T) {
	t.Setenv(sensitivityEnv, "not-a-number")
	t.Setenv(autoDeleteEnv, "maybe")

	cfg := Load()
	if cfg.Sensitivity() != 50 {
		t.Fatalf("invalid sensitivity should keep default, got %d", cfg.Sensitivity())
	}
	if !cfg.AutoDelete() {
		t.Fatal("invalid auto-delete should keep default true")
	}
	if len(cfg.Warnings()) != 2 {
		t.Fatalf("expected one warning per invalid value, got %v", cfg.Warnings())
	}
}

func TestYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quell.yaml")
	data := []byte(`
server:
  port: "7070"
moderation:
  sensitivity: 30
  autoDelete: false
remote:
  provider: claude
  apiKey: test-key
  timeoutSeconds: 5
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()
	if cfg.Server.Port != "7070" {
		t.Fatalf("yaml port lost: %s", cfg.Server.Port)
	}
	if cfg.Sensitivity() != 30 || cfg.AutoDelete() {
		t.Fatalf("yaml moderation settings lost: %+v", cfg.Moderation)
	}
	if cfg.Remote.Provider != "claude" || cfg.RemoteTimeout() != 5*time.Second {
		t.Fatalf("yaml remote settings lost: %+v", cfg.Remote)
	}
}

func TestUnreadableYAMLFallsBack(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	cfg := Load()
	if cfg.Sensitivity() != 50 {
		t.Fatalf("expected defaults, got sensitivity %d", cfg.Sensitivity())
	}
	if len(cfg.Warnings()) == 0 {
		t.Fatal("unreadable file should be surfaced as a warning")
	}
}
