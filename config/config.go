// Package config loads the finsight configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/etnz/finsight/gemini"
	"github.com/etnz/finsight/logging"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// GeminiConfig configures the generation client.
type GeminiConfig struct {
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
}

// StorageConfig selects where reports and the vault are kept.
type StorageConfig struct {
	Driver    string `yaml:"driver"`
	Workspace string `yaml:"workspace"`
}

// VaultConfig bounds the vault context injected in prompts.
type VaultConfig struct {
	MaxItems      int  `yaml:"max_items"` // unbounded when zero
	MaxBytes      int  `yaml:"max_bytes"` // unbounded when zero
	UseInAnalysis bool `yaml:"use_in_analysis"`
}

// ServerConfig configures `finsight serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ReportConfig configures rendering and exports.
type ReportConfig struct {
	Currency string `yaml:"currency"` // ISO code of chart values, plain numbers when empty
}

// IntegrationsConfig configures the integration connector.
type IntegrationsConfig struct {
	Delay time.Duration `yaml:"delay"`
}

// Config is the top-level configuration.
type Config struct {
	Gemini       GeminiConfig       `yaml:"gemini"`
	Storage      StorageConfig      `yaml:"storage"`
	Vault        VaultConfig        `yaml:"vault"`
	Log          logging.Config     `yaml:"log"`
	Server       ServerConfig       `yaml:"server"`
	Report       ReportConfig       `yaml:"report"`
	Integrations IntegrationsConfig `yaml:"integrations"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Gemini: GeminiConfig{
			Model:   gemini.DefaultModel,
			Timeout: gemini.DefaultTimeout,
		},
		Storage: StorageConfig{
			Driver:    DriverJSON,
			Workspace: defaultWorkspace(),
		},
		Vault:        VaultConfig{UseInAnalysis: true},
		Log:          logging.Config{Level: "info", Format: "text", Output: "stderr"},
		Server:       ServerConfig{Addr: ":8080"},
		Report:       ReportConfig{Currency: "USD"},
		Integrations: IntegrationsConfig{Delay: 2 * time.Second},
	}
}

// DefaultPath is the configuration file read when none is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "finsight.yaml"
	}
	return filepath.Join(dir, "finsight", "config.yaml")
}

func defaultWorkspace() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".finsight"
	}
	return filepath.Join(home, ".finsight")
}

// Load reads path over the defaults and applies the environment overrides.
// A missing file is not an error, and neither is a missing API key: the
// credential is only required when a generation call is made.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("cannot parse %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv(os.Getenv)
	cfg.Storage.Workspace = expandHome(cfg.Storage.Workspace)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return cfg, nil
}

// expandHome replaces a leading "~" with the user home directory.
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

func (c *Config) applyEnv(getenv func(string) string) {
	for _, key := range []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"} {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			c.Gemini.APIKey = v
		}
	}
	if v := getenv("FINSIGHT_MODEL"); v != "" {
		c.Gemini.Model = v
	}
	if v := getenv("FINSIGHT_WORKSPACE"); v != "" {
		c.Storage.Workspace = v
	}
	if v := getenv("FINSIGHT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks the values that cannot be fixed by a default.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case DriverJSON, DriverSQLite, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of json, sqlite, memory", c.Storage.Driver))
	}
	if c.Storage.Workspace == "" && c.Storage.Driver != DriverMemory {
		errs = append(errs, errors.New("storage.workspace is empty"))
	}
	if c.Vault.MaxItems < 0 {
		errs = append(errs, fmt.Errorf("vault.max_items %d is negative", c.Vault.MaxItems))
	}
	if c.Vault.MaxBytes < 0 {
		errs = append(errs, fmt.Errorf("vault.max_bytes %d is negative", c.Vault.MaxBytes))
	}
	if c.Gemini.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("gemini.requests_per_minute %d is negative", c.Gemini.RequestsPerMinute))
	}
	return errors.Join(errs...)
}

// GeminiClient returns the generation client configuration.
func (c *Config) GeminiClient() gemini.Config {
	return gemini.Config{
		APIKey:            c.Gemini.APIKey,
		Model:             c.Gemini.Model,
		Timeout:           c.Gemini.Timeout,
		RequestsPerMinute: c.Gemini.RequestsPerMinute,
	}
}
