package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
database:
  path: "/tmp/regions-test.db"
  wal_mode: true
  busy_timeout: 5
api:
  host: "127.0.0.1"
  port: 8280
catalog:
  url: "http://regions.example.com/regions-v3.json"
  refresh_interval: 60
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/regions-test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/regions-test.db")
	}
	if cfg.API.Port != 8280 {
		t.Errorf("API.Port = %d, want 8280", cfg.API.Port)
	}
	if cfg.Catalog.URL != "http://regions.example.com/regions-v3.json" {
		t.Errorf("Catalog.URL = %q", cfg.Catalog.URL)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "data/regioncore.db" {
		t.Errorf("default Database.Path = %q", cfg.Database.Path)
	}
	if !cfg.Database.WALMode {
		t.Error("default Database.WALMode = false, want true")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Catalog.RefreshInterval != 1440 {
		t.Errorf("default Catalog.RefreshInterval = %d, want 1440", cfg.Catalog.RefreshInterval)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
database:
  path: ""
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Error("Load() expected validation error for empty database path, got nil")
	}
}

func TestLoad_ShortJWTSecretRejected(t *testing.T) {
	content := `
security:
  jwt:
    secret: "too-short"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Error("Load() expected validation error for short JWT secret, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("REGIONCORE_DATABASE_PATH", "/tmp/override.db")
	t.Setenv("REGIONCORE_CATALOG_URL", "http://override.example.com/regions.json")

	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("env override Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Catalog.URL != "http://override.example.com/regions.json" {
		t.Errorf("env override Catalog.URL = %q", cfg.Catalog.URL)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := defaultConfig()
	cfg.API.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for port 0, got nil")
	}
}

func TestValidate_MQTTEnabledWithoutHost(t *testing.T) {
	cfg := defaultConfig()
	cfg.MQTT.Enabled = true
	cfg.MQTT.Broker.Host = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for enabled MQTT without host, got nil")
	}
}
