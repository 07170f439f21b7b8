package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configFileEnv     = "CONFIG_FILE"
	defaultSQLitePath = "data.db"
)

var validate = validator.New()

type AppConfig struct {
	CWAAPIKey             string        `yaml:"cwa_api_key"`
	CWAEndpoint           string        `yaml:"cwa_endpoint" validate:"omitempty,url"`
	CWAInsecureSkipVerify bool          `yaml:"cwa_insecure_skip_verify"`
	CWAMaxRetries         int           `yaml:"cwa_max_retries" validate:"min=0,max=10"`
	HTTPTimeout           time.Duration `yaml:"http_timeout" validate:"gt=0"`

	// LocalPayloadPath is tried before the remote API.
	LocalPayloadPath string `yaml:"local_payload_path"`

	StoreDriver  string `yaml:"store_driver" validate:"oneof=sqlite postgres memory"`
	StoreDSN     string `yaml:"store_dsn" validate:"required_if=StoreDriver postgres"`
	SyncStrategy string `yaml:"sync_strategy" validate:"oneof=recreate upsert"`

	// ExpectedRows only triggers a warning when it differs from the written count (0 = off).
	ExpectedRows int `yaml:"expected_rows" validate:"min=0"`

	// SyncInterval re-runs the sync from the dashboard process (0 = disabled).
	SyncInterval time.Duration `yaml:"sync_interval" validate:"min=0"`

	Port     string `yaml:"port" validate:"required,numeric"`
	LogLevel string `yaml:"log_level"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *AppConfig {
	return &AppConfig{
		CWAInsecureSkipVerify: true,
		HTTPTimeout:           30 * time.Second,
		LocalPayloadPath:      "~/Downloads/F-A0010-001.json",
		StoreDriver:           "sqlite",
		SyncStrategy:          "recreate",
		ExpectedRows:          42,
		Port:                  "8501",
		LogLevel:              "info",
	}
}

// Load reads configuration from an optional .env file, an optional YAML file named
// by CONFIG_FILE and the environment, in increasing order of precedence.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := Defaults()

	if path := os.Getenv(configFileEnv); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	cfg.LocalPayloadPath = expandHome(cfg.LocalPayloadPath)
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.SyncStrategy = strings.ToLower(strings.TrimSpace(cfg.SyncStrategy))
	if cfg.StoreDriver == "sqlite" && cfg.StoreDSN == "" {
		cfg.StoreDSN = defaultSQLitePath
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	var err error

	cfg.CWAAPIKey = getenvDefault("CWA_API_KEY", cfg.CWAAPIKey)
	cfg.CWAEndpoint = getenvDefault("CWA_ENDPOINT", cfg.CWAEndpoint)
	if cfg.CWAInsecureSkipVerify, err = getenvBool("CWA_INSECURE_SKIP_VERIFY", cfg.CWAInsecureSkipVerify); err != nil {
		return err
	}
	if cfg.CWAMaxRetries, err = getenvInt("CWA_MAX_RETRIES", cfg.CWAMaxRetries); err != nil {
		return err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", cfg.HTTPTimeout); err != nil {
		return err
	}

	cfg.LocalPayloadPath = getenvDefault("LOCAL_PAYLOAD_PATH", cfg.LocalPayloadPath)
	cfg.StoreDriver = getenvDefault("STORE_DRIVER", cfg.StoreDriver)
	cfg.StoreDSN = getenvDefault("STORE_DSN", cfg.StoreDSN)
	cfg.SyncStrategy = getenvDefault("SYNC_STRATEGY", cfg.SyncStrategy)
	if cfg.ExpectedRows, err = getenvInt("EXPECTED_ROWS", cfg.ExpectedRows); err != nil {
		return err
	}
	if cfg.SyncInterval, err = getenvDuration("SYNC_INTERVAL", cfg.SyncInterval); err != nil {
		return err
	}

	cfg.Port = getenvDefault("PORT", cfg.Port)
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
