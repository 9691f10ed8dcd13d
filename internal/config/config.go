// Package config loads docuscan configuration from file, environment,
// and defaults.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for docuscan.
type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	Watch    WatchConfig    `mapstructure:"watch"`
}

// ProviderConfig holds OCR provider settings. Timeouts are in seconds.
type ProviderConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	APIKey            string `mapstructure:"api_key"`
	Model             string `mapstructure:"model"`
	UploadTimeout     int    `mapstructure:"upload_timeout"`
	SignTimeout       int    `mapstructure:"sign_timeout"`
	SubmitTimeout     int    `mapstructure:"submit_timeout"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// RetryConfig holds submission retry settings.
type RetryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
	BaseDelay   int `mapstructure:"base_delay"` // seconds
}

// StorageConfig holds local storage settings.
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// ServerConfig holds the local API server settings.
type ServerConfig struct {
	Address       string   `mapstructure:"address"`
	Port          int      `mapstructure:"port"`
	AdminPassword string   `mapstructure:"admin_password"`
	JWTSecret     string   `mapstructure:"jwt_secret"`
	AllowOrigins  []string `mapstructure:"allow_origins"`
}

// WatchConfig holds directory-watch settings.
type WatchConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load loads configuration from file, env, and defaults.
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.Set("storage.sqlite_path", filepath.Join(dataDir, "docuscan.db"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "docuscan.yaml")
	}
	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Environment variables (DOCUSCAN_PROVIDER_API_KEY, DOCUSCAN_SERVER_PORT, ...)
	v.SetEnvPrefix("DOCUSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider.base_url", "https://api.mistral.ai/v1")
	v.SetDefault("provider.model", "mistral-ocr-latest")
	v.SetDefault("provider.upload_timeout", 180)
	v.SetDefault("provider.sign_timeout", 30)
	v.SetDefault("provider.submit_timeout", 180)
	v.SetDefault("provider.requests_per_minute", 0)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", 1)

	v.SetDefault("server.address", "127.0.0.1")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.allow_origins", []string{"*"})
}

func getDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "docuscan")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".local", "share", "docuscan")
}

// loadEnvOverrides covers the keys Viper's AutomaticEnv misses during Unmarshal.
func loadEnvOverrides(cfg *Config) {
	getEnv := func(key, fallback string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return fallback
	}

	cfg.Provider.APIKey = getEnv("DOCUSCAN_PROVIDER_API_KEY", cfg.Provider.APIKey)
	cfg.Provider.BaseURL = getEnv("DOCUSCAN_PROVIDER_BASE_URL", cfg.Provider.BaseURL)
	cfg.Provider.Model = getEnv("DOCUSCAN_PROVIDER_MODEL", cfg.Provider.Model)
	cfg.Server.AdminPassword = getEnv("DOCUSCAN_SERVER_ADMIN_PASSWORD", cfg.Server.AdminPassword)
	cfg.Server.JWTSecret = getEnv("DOCUSCAN_SERVER_JWT_SECRET", cfg.Server.JWTSecret)
}

func validate(cfg *Config) error {
	if cfg.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if cfg.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be positive")
	}

	// A missing API key is not a config error: it surfaces as a
	// missing-credential failure when processing starts.

	if cfg.Server.JWTSecret == "" {
		cfg.Server.JWTSecret = generateRandomString(32)
	}
	return nil
}

func generateRandomString(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "docuscan-insecure-fallback-secret"
	}
	return hex.EncodeToString(b)[:n]
}
