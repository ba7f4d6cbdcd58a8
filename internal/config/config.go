package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL    = "http://localhost:4096"
	DefaultProviderID = "anthropic"
	DefaultModelID    = "claude-3-5-sonnet-20241022"
	DefaultPort       = 3000
	DefaultTitle      = "opencode-web session"
)

// Config holds application configuration
type Config struct {
	BaseURL    string        `yaml:"base_url"`
	ProviderID string        `yaml:"provider_id"`
	ModelID    string        `yaml:"model_id"`
	Timeout    time.Duration `yaml:"timeout"`
	AppInfoTTL time.Duration `yaml:"app_info_ttl"` // 0 disables the app info cache

	Port         int    `yaml:"port"`
	SessionTitle string `yaml:"session_title"`

	LogDir  string `yaml:"log_dir"`
	DataDir string `yaml:"data_dir"`
	Debug   bool   `yaml:"debug"`
}

// Default returns the configuration used when no file or env override is present
func Default() *Config {
	return &Config{
		BaseURL:      DefaultBaseURL,
		ProviderID:   DefaultProviderID,
		ModelID:      DefaultModelID,
		Timeout:      120 * time.Second,
		AppInfoTTL:   5 * time.Second,
		Port:         DefaultPort,
		SessionTitle: DefaultTitle,
		LogDir:       "logs",
		DataDir:      ".",
	}
}

// DefaultPath returns ~/.config/opencodeweb/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "opencodeweb", "config.yaml")
}

// Load reads the YAML file at path (a missing file means defaults) and applies env overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("invalid config file %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("OPENCODE_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("OPENCODE_PROVIDER_ID"); v != "" {
		cfg.ProviderID = v
	}
	if v := os.Getenv("OPENCODE_MODEL_ID"); v != "" {
		cfg.ModelID = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	return nil
}

// DBPath is the location of the request journal
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "opencodeweb.db")
}
