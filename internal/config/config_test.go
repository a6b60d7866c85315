package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Executor.MaxConcurrent != 10 {
		t.Errorf("MaxConcurrent = %d, want 10", cfg.Executor.MaxConcurrent)
	}
	if cfg.Executor.PollInterval != 10*time.Millisecond {
		t.Errorf("PollInterval = %s, want 10ms", cfg.Executor.PollInterval)
	}
	if cfg.Auth.Option != "auth-token" || cfg.Auth.EnvVar != "CMDEXEC_AUTH_TOKEN" {
		t.Errorf("auth defaults = %+v", cfg.Auth)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
executor:
  max_concurrent: 3
  poll_interval: 5ms
  task_timeout: 2s
auth:
  protected: [deploy, secret]
logging:
  level: debug
  json: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Executor.MaxConcurrent != 3 || cfg.Executor.PollInterval != 5*time.Millisecond || cfg.Executor.TaskTimeout != 2*time.Second {
		t.Errorf("executor = %+v", cfg.Executor)
	}
	if len(cfg.Auth.Protected) != 2 || cfg.Auth.Protected[1] != "secret" {
		t.Errorf("auth.protected = %v", cfg.Auth.Protected)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.JSON {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "executor:\n  max_concurrent: 3\n")
	t.Setenv("CMDEXEC_EXECUTOR_MAX_CONCURRENT", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Executor.MaxConcurrent != 7 {
		t.Errorf("MaxConcurrent = %d, want env override 7", cfg.Executor.MaxConcurrent)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() of a missing explicit file should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.Executor.MaxConcurrent = 0 }},
		{"zero poll interval", func(c *Config) { c.Executor.PollInterval = 0 }},
		{"negative timeout", func(c *Config) { c.Executor.TaskTimeout = -time.Second }},
		{"empty auth option", func(c *Config) { c.Auth.Option = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Executor: ExecutorConfig{MaxConcurrent: 1, PollInterval: time.Millisecond},
				Auth:     AuthConfig{Option: "auth-token"},
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestYAML(t *testing.T) {
	cfg := &Config{Executor: ExecutorConfig{MaxConcurrent: 4, PollInterval: 10 * time.Millisecond}}
	data, err := cfg.YAML()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "max_concurrent: 4") || !strings.Contains(string(data), "poll_interval: 10ms") {
		t.Errorf("YAML() =\n%s", data)
	}
}
