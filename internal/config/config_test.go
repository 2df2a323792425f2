package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Defaults.Worker != "general" {
		t.Errorf("expected default worker general, got %s", cfg.Defaults.Worker)
	}
	if cfg.Defaults.MaxConcurrency != 4 {
		t.Errorf("expected max concurrency 4, got %d", cfg.Defaults.MaxConcurrency)
	}
	if cfg.Defaults.MaxAttempts != 2 {
		t.Errorf("expected max attempts 2, got %d", cfg.Defaults.MaxAttempts)
	}
	if cfg.Defaults.TaskTimeout != 3*time.Minute {
		t.Errorf("expected task timeout 3m, got %v", cfg.Defaults.TaskTimeout)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
anthropic:
  api_key: sk-ant-test123
  model: claude-sonnet-4-5
defaults:
  worker: nova
  max_concurrency: 8
  task_timeout: 90s
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "sk-ant-test123" {
		t.Errorf("unexpected api key: %s", cfg.Anthropic.APIKey)
	}
	if cfg.Defaults.Worker != "nova" {
		t.Errorf("expected worker nova, got %s", cfg.Defaults.Worker)
	}
	if cfg.Defaults.MaxConcurrency != 8 {
		t.Errorf("expected max concurrency 8, got %d", cfg.Defaults.MaxConcurrency)
	}
	if cfg.Defaults.TaskTimeout != 90*time.Second {
		t.Errorf("expected 90s timeout, got %v", cfg.Defaults.TaskTimeout)
	}
	// Unset keys keep their defaults.
	if cfg.Defaults.MaxAttempts != 2 {
		t.Errorf("expected default max attempts, got %d", cfg.Defaults.MaxAttempts)
	}
}

func TestLoadFromPathExpandsEnv(t *testing.T) {
	t.Setenv("TEST_FOREMAN_KEY", "sk-ant-from-env")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "anthropic:\n  api_key: ${TEST_FOREMAN_KEY}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-ant-from-env" {
		t.Errorf("expected env expansion, got %s", cfg.Anthropic.APIKey)
	}
}

func TestSaveAndReload(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.Anthropic.APIKey = "sk-ant-saved"
	cfg.Defaults.Worker = "quinn"

	if err := Save(cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := LoadFromPath(GetUserConfigPath())
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Anthropic.APIKey != "sk-ant-saved" {
		t.Errorf("expected saved key, got %s", loaded.Anthropic.APIKey)
	}
	if loaded.Defaults.Worker != "quinn" {
		t.Errorf("expected worker quinn, got %s", loaded.Defaults.Worker)
	}
}

func TestGetAnthropicKeyPrecedence(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env-wins")

	cfg := Default()
	cfg.Anthropic.APIKey = "sk-ant-from-file"

	key, err := GetAnthropicKey(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "sk-ant-env-wins" {
		t.Errorf("expected env to win, got %s", key)
	}
}

func TestGetAnthropicKeyMissing(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	if _, err := GetAnthropicKey(Default()); err != ErrNoAPIKey {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestValidateAnthropicKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid", "sk-ant-abcdefghijklmnop", false},
		{"empty", "", true},
		{"wrong prefix", "sk-openai-abcdefghijk", true},
		{"too short", "sk-ant-x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAnthropicKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAnthropicKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := MaskAPIKey(""); got != "(not set)" {
		t.Errorf("expected placeholder for empty key, got %s", got)
	}
	if got := MaskAPIKey("short"); got != "*****" {
		t.Errorf("expected full mask for short key, got %s", got)
	}
	masked := MaskAPIKey("sk-ant-REDACTED")
	if masked[:7] != "sk-ant-" || masked[len(masked)-4:] != "1234" {
		t.Errorf("unexpected mask: %s", masked)
	}
}
