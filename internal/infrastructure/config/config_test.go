package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
service:
  id: "test-service"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
genservice:
  base_url: "https://gen.example.com"
  poll_interval: 3
  max_poll_attempts: 20
api:
  host: "0.0.0.0"
  port: 8080
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.ID != "test-service" {
		t.Errorf("Service.ID = %q, want %q", cfg.Service.ID, "test-service")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.GenService.BaseURL != "https://gen.example.com" {
		t.Errorf("GenService.BaseURL = %q, want %q", cfg.GenService.BaseURL, "https://gen.example.com")
	}

	if cfg.GenService.PollInterval != 3 {
		t.Errorf("GenService.PollInterval = %d, want 3", cfg.GenService.PollInterval)
	}

	// Defaults survive partial configs
	if cfg.Pipeline.MaxConcurrentViewpoints != 4 {
		t.Errorf("Pipeline.MaxConcurrentViewpoints = %d, want default 4", cfg.Pipeline.MaxConcurrentViewpoints)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
service:
  id: ""
database:
  path: "/tmp/test.db"
genservice:
  base_url: "https://gen.example.com"
api:
  port: 8080
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty service.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.GenService.BaseURL = "https://gen.example.com"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing service id",
			mutate:  func(cfg *Config) { cfg.Service.ID = "" },
			wantErr: true,
		},
		{
			name:    "missing database path",
			mutate:  func(cfg *Config) { cfg.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "missing genservice base url",
			mutate:  func(cfg *Config) { cfg.GenService.BaseURL = "" },
			wantErr: true,
		},
		{
			name:    "zero poll interval",
			mutate:  func(cfg *Config) { cfg.GenService.PollInterval = 0 },
			wantErr: true,
		},
		{
			name:    "zero poll attempts",
			mutate:  func(cfg *Config) { cfg.GenService.MaxPollAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "zero retry attempts",
			mutate:  func(cfg *Config) { cfg.GenService.Retry.MaxAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "negative fan-out limit",
			mutate:  func(cfg *Config) { cfg.Pipeline.MaxConcurrentViewpoints = -1 },
			wantErr: true,
		},
		{
			name:    "invalid cache backend",
			mutate:  func(cfg *Config) { cfg.Cache.Backend = "memcached" },
			wantErr: true,
		},
		{
			name:    "port too large",
			mutate:  func(cfg *Config) { cfg.API.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "port zero",
			mutate:  func(cfg *Config) { cfg.API.Port = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("TOURFORGE_DATABASE_PATH", "/override/path.db")
	t.Setenv("TOURFORGE_GENSERVICE_TOKEN", "secret-token")
	t.Setenv("TOURFORGE_API_PORT", "9090")

	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/override/path.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.GenService.Token != "secret-token" {
		t.Errorf("GenService.Token = %q, want env override", cfg.GenService.Token)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
}

func TestApplyEnvOverrides_InvalidPort(t *testing.T) {
	t.Setenv("TOURFORGE_API_PORT", "not-a-number")

	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want default 8080 for invalid override", cfg.API.Port)
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := defaultConfig()
	cfg.GenService.PollInterval = 5
	cfg.Cache.TTLHours = 12

	if got := cfg.GetPollInterval(); got != 5*time.Second {
		t.Errorf("GetPollInterval() = %v, want 5s", got)
	}
	if got := cfg.GetCacheTTL(); got != 12*time.Hour {
		t.Errorf("GetCacheTTL() = %v, want 12h", got)
	}
	if got := cfg.GetReadTimeout(); got != 30*time.Second {
		t.Errorf("GetReadTimeout() = %v, want 30s", got)
	}
}
