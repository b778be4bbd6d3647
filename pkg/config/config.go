package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"igunfollow/pkg/logger"
)

// Backend selects which account client implementation performs Instagram
// calls
type Backend string

const (
	BackendAPI     Backend = "api"
	BackendBrowser Backend = "browser"
)

// Config holds all configuration options for igunfollow
type Config struct {
	// Backend selects api or browser at construction time
	Backend Backend `yaml:"backend" json:"backend"`

	// Instagram request settings
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Unfollow run settings
	Unfollow UnfollowConfig `yaml:"unfollow" json:"unfollow"`

	// Rate limiting for paginated fetches
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Session file storage
	Session SessionConfig `yaml:"session" json:"session"`

	// Browser-backed login settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Logging configuration
	Logging logger.Config `yaml:"logging" json:"logging"`
}

// InstagramConfig holds Instagram request configuration
type InstagramConfig struct {
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// UnfollowConfig holds the throttling contract for unfollow runs. The
// delay is drawn uniformly from [DelayMin, DelayMax] before every call;
// it is configurable but deliberately never zero by default.
type UnfollowConfig struct {
	DelayMin time.Duration `yaml:"delay_min" json:"delay_min"`
	DelayMax time.Duration `yaml:"delay_max" json:"delay_max"`
}

// RateLimitConfig paces the paginated following/followers fetches
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// SessionConfig holds session store configuration
type SessionConfig struct {
	// Directory for session files; empty selects the per-user default
	Directory string `yaml:"directory" json:"directory"`
}

// BrowserConfig configures the visibly driven Chrome used for interactive
// login
type BrowserConfig struct {
	// ChromePath overrides browser discovery; CHROME_PATH and CHROME_BIN
	// env vars take precedence over this field
	ChromePath string `yaml:"chrome_path" json:"chrome_path"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendAPI,
		Instagram: InstagramConfig{
			UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			RequestTimeout: 30 * time.Second,
		},
		Unfollow: UnfollowConfig{
			DelayMin: 2 * time.Second,
			DelayMax: 5 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
		},
		Logging: logger.Config{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if backend := os.Getenv("IGUNFOLLOW_BACKEND"); backend != "" {
		c.Backend = Backend(strings.ToLower(backend))
	}
	if userAgent := os.Getenv("IGUNFOLLOW_USER_AGENT"); userAgent != "" {
		c.Instagram.UserAgent = userAgent
	}
	if rpm := os.Getenv("IGUNFOLLOW_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if delayMin := os.Getenv("IGUNFOLLOW_DELAY_MIN"); delayMin != "" {
		if d, err := time.ParseDuration(delayMin); err == nil {
			c.Unfollow.DelayMin = d
		}
	}
	if delayMax := os.Getenv("IGUNFOLLOW_DELAY_MAX"); delayMax != "" {
		if d, err := time.ParseDuration(delayMax); err == nil {
			c.Unfollow.DelayMax = d
		}
	}
	if dir := os.Getenv("IGUNFOLLOW_SESSION_DIR"); dir != "" {
		c.Session.Directory = dir
	}
	// CHROME_PATH / CHROME_BIN are honored the way the desktop tool always
	// has; the prefixed variable wins if both are set.
	for _, name := range []string{"IGUNFOLLOW_CHROME_PATH", "CHROME_PATH", "CHROME_BIN"} {
		if path := strings.Trim(os.Getenv(name), `" `); path != "" {
			c.Browser.ChromePath = path
			break
		}
	}
	if logLevel := os.Getenv("IGUNFOLLOW_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".igunfollow.yaml",
		".igunfollow.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "igunfollow", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "igunfollow", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".igunfollow.yaml"),
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendAPI, BackendBrowser:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q (want api or browser)", c.Backend))
	}

	if c.Unfollow.DelayMin <= 0 {
		errs = append(errs, errors.New("unfollow delay minimum must be positive"))
	}
	if c.Unfollow.DelayMax < c.Unfollow.DelayMin {
		errs = append(errs, errors.New("unfollow delay maximum must be at least the minimum"))
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.Instagram.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if backend, ok := flags["backend"].(string); ok && backend != "" {
		c.Backend = Backend(strings.ToLower(backend))
	}
	if delayMin, ok := flags["delay-min"].(time.Duration); ok && delayMin > 0 {
		c.Unfollow.DelayMin = delayMin
	}
	if delayMax, ok := flags["delay-max"].(time.Duration); ok && delayMax > 0 {
		c.Unfollow.DelayMax = delayMax
	}
	if dir, ok := flags["session-dir"].(string); ok && dir != "" {
		c.Session.Directory = dir
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > env vars > .env file > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igunfollow.env"))

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg.MergeCommandLineFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
