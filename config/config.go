// Package config loads duckgate settings from file and environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	configDirName  = "duckgate"

	// DefaultDatabase is used when no database is configured.
	DefaultDatabase = "default"

	defaultListen = ":8000"
)

// Config for duckgate. Populated once at startup; treat values as immutable
// afterwards.
type Config struct {
	// APIKey is the MotherDuck service API key forwarded to the delegate.
	APIKey string `yaml:"api_key"`
	// Database is the database name forwarded to the delegate.
	Database string `yaml:"database"`
	// BearerToken is the shared secret callers must present. Empty disables
	// the secured surface.
	BearerToken string `yaml:"bearer_token"`

	Listen      string   `yaml:"listen"`
	LogLevel    string   `yaml:"log_level"`
	LogFormat   string   `yaml:"log_format"`
	UpstreamURL string   `yaml:"upstream_url"`
	CORSOrigins []string `yaml:"cors_origins"`

	// Connection options forwarded to the delegate alongside the credentials.
	ReadOnly bool   `yaml:"read_only"`
	SaaSMode bool   `yaml:"saas_mode"`
	HomeDir  string `yaml:"home_dir"`
}

// LoadFrom loads config from path. Missing files are not an error; the
// environment always wins over the file.
func LoadFrom(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Load loads config from the default path.
func Load() (Config, error) {
	return LoadFrom(defaultConfigPath())
}

// FromEnv builds a Config from environment variables only. Used by the
// serverless entry points, which keep per-request semantics instead of
// rejecting at startup: a missing API key must surface as a request-time
// error, not a crash loop.
func FromEnv() (Config, error) {
	var cfg Config
	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// RequireAPIKey rejects server startup when the upstream key is absent.
func (c Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return errors.New("MOTHERDUCK_API_KEY is required")
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v, ok := os.LookupEnv("MOTHERDUCK_API_KEY"); ok {
		c.APIKey = v
	}
	if v, ok := os.LookupEnv("MOTHERDUCK_DATABASE"); ok {
		c.Database = v
	}
	if v, ok := os.LookupEnv("API_BEARER_TOKEN"); ok {
		c.BearerToken = v
	}
	if v, ok := os.LookupEnv("DUCKGATE_LISTEN"); ok {
		c.Listen = v
	}
	if v, ok := os.LookupEnv("DUCKGATE_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv("DUCKGATE_LOG_FORMAT"); ok {
		c.LogFormat = v
	}
	if v, ok := os.LookupEnv("DUCKGATE_UPSTREAM_URL"); ok {
		c.UpstreamURL = v
	}
	if v, ok := os.LookupEnv("DUCKGATE_CORS_ORIGINS"); ok {
		c.CORSOrigins = splitCSV(v)
	}
	if v, ok := os.LookupEnv("DUCKGATE_HOME_DIR"); ok {
		c.HomeDir = v
	}

	if v, ok := os.LookupEnv("DUCKGATE_READ_ONLY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse DUCKGATE_READ_ONLY: %w", err)
		}
		c.ReadOnly = b
	}
	if v, ok := os.LookupEnv("DUCKGATE_SAAS_MODE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse DUCKGATE_SAAS_MODE: %w", err)
		}
		c.SaaSMode = b
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
}

func (c *Config) validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	if c.UpstreamURL != "" {
		u, err := url.Parse(c.UpstreamURL)
		if err != nil {
			return fmt.Errorf("parse upstream_url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("upstream_url must be http or https, got %q", c.UpstreamURL)
		}
	}
	return nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, configDirName, configFileName)
}
