package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Provider.BaseURL != "https://api.mistral.ai/v1" {
		t.Errorf("unexpected base URL %s", cfg.Provider.BaseURL)
	}
	if cfg.Provider.Model != "mistral-ocr-latest" {
		t.Errorf("unexpected model %s", cfg.Provider.Model)
	}
	if cfg.Provider.UploadTimeout != 180 || cfg.Provider.SignTimeout != 30 || cfg.Provider.SubmitTimeout != 180 {
		t.Errorf("unexpected timeouts %d/%d/%d",
			cfg.Provider.UploadTimeout, cfg.Provider.SignTimeout, cfg.Provider.SubmitTimeout)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.BaseDelay != 1 {
		t.Errorf("unexpected retry defaults %d/%d", cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay)
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("unexpected port %d", cfg.Server.Port)
	}
}

func TestLoadCreatesDataDir(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "nested", "docuscan")
	cfg, err := Load("", dataDir)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(dataDir); err != nil {
		t.Errorf("expected data dir to be created: %v", err)
	}
	if cfg.Storage.DataDir != dataDir {
		t.Errorf("unexpected data dir %s", cfg.Storage.DataDir)
	}
	if cfg.Storage.SQLitePath != filepath.Join(dataDir, "docuscan.db") {
		t.Errorf("unexpected sqlite path %s", cfg.Storage.SQLitePath)
	}
}

func TestLoadFromFile(t *testing.T) {
	dataDir := t.TempDir()
	configPath := filepath.Join(dataDir, "docuscan.yaml")
	content := `
provider:
  base_url: https://ocr.internal/v1
  requests_per_minute: 30
retry:
  max_attempts: 5
server:
  port: 9000
  admin_password: hunter2
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath, dataDir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.BaseURL != "https://ocr.internal/v1" {
		t.Errorf("unexpected base URL %s", cfg.Provider.BaseURL)
	}
	if cfg.Provider.RequestsPerMinute != 30 {
		t.Errorf("unexpected rpm %d", cfg.Provider.RequestsPerMinute)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("unexpected max attempts %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Server.Port != 9000 || cfg.Server.AdminPassword != "hunter2" {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DOCUSCAN_PROVIDER_API_KEY", "env-key")
	t.Setenv("DOCUSCAN_PROVIDER_BASE_URL", "https://env.example/v1")

	cfg, err := Load("", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.APIKey != "env-key" {
		t.Errorf("expected API key from env, got %q", cfg.Provider.APIKey)
	}
	if cfg.Provider.BaseURL != "https://env.example/v1" {
		t.Errorf("expected base URL from env, got %q", cfg.Provider.BaseURL)
	}
}

func TestMissingAPIKeyIsNotAnError(t *testing.T) {
	t.Setenv("DOCUSCAN_PROVIDER_API_KEY", "")

	cfg, err := Load("", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.APIKey != "" {
		t.Errorf("expected empty API key, got %q", cfg.Provider.APIKey)
	}
}

func TestJWTSecretGenerated(t *testing.T) {
	cfg, err := Load("", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.JWTSecret == "" {
		t.Error("expected a generated JWT secret")
	}

	other, err := Load("", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.JWTSecret == other.Server.JWTSecret {
		t.Error("expected generated secrets to differ")
	}
}
