package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/lynxcheck/internal/engine"
)

// DefaultDBPath is the default location of the settings database
const DefaultDBPath = "~/.lynxcheck/lynxcheck.db"

// Environment variables read by ApplyEnv
const (
	EnvDBPath              = "LYNX_DB_PATH"
	EnvLogLevel            = "LYNX_LOG_LEVEL"
	EnvCacheLifespan       = "LYNX_CACHE_LIFESPAN"
	EnvParallelSessions    = "LYNX_PARALLEL_SESSIONS"
	EnvSocketURL           = "LYNX_SOCKET_URL"
	EnvAuthURL             = "LYNX_AUTH_URL"
	EnvProtocolErrorPolicy = "LYNX_PROTOCOL_ERROR_POLICY"
)

// ErrInvalid is wrapped by every validation error
var ErrInvalid = errors.New("invalid configuration")

// Config is the process configuration. The settings it carries only seed the
// settings database on first start.
type Config struct {
	DBPath         string `yaml:"db_path"`
	LogLevel       string `yaml:"log_level"`
	LogDevelopment bool   `yaml:"log_development"`

	SocketURL           string `yaml:"socket_url"`
	AuthURL             string `yaml:"auth_url"`
	ProtocolErrorPolicy string `yaml:"protocol_error_policy"` // fail-fast or hang
	DialAttempts        int    `yaml:"dial_attempts"`

	CacheLifespan    time.Duration `yaml:"cache_lifespan"`
	CacheCapacity    int           `yaml:"cache_capacity"`
	ParallelSessions int           `yaml:"parallel_sessions"`
	DebounceInterval time.Duration `yaml:"debounce_interval"`
	Workers          int           `yaml:"workers"` // Files checked in parallel by project checks
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		DBPath:              DefaultDBPath,
		LogLevel:            "info",
		SocketURL:           engine.DefaultEndpoint,
		AuthURL:             engine.DefaultAuthURL,
		ProtocolErrorPolicy: engine.PolicyFailFast.String(),
		DialAttempts:        1,
		CacheLifespan:       30 * time.Minute,
		CacheCapacity:       10000,
		ParallelSessions:    5,
		DebounceInterval:    3 * time.Second,
	}
}

// Load reads the YAML file at path over the defaults and then applies the
// environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the LYNX_* variables found by lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDBPath); ok && v != "" {
		c.DBPath = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvSocketURL); ok && v != "" {
		c.SocketURL = v
	}
	if v, ok := lookup(EnvAuthURL); ok && v != "" {
		c.AuthURL = v
	}
	if v, ok := lookup(EnvProtocolErrorPolicy); ok && v != "" {
		c.ProtocolErrorPolicy = v
	}
	if v, ok := lookup(EnvCacheLifespan); ok && v != "" {
		d, err := parseLifespan(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, EnvCacheLifespan, err)
		}
		c.CacheLifespan = d
	}
	if v, ok := lookup(EnvParallelSessions); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, EnvParallelSessions, err)
		}
		c.ParallelSessions = n
	}
	return nil
}

// parseLifespan accepts a duration ("45m") or a bare number of minutes
func parseLifespan(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Minute, nil
	}
	return time.ParseDuration(v)
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.CacheLifespan <= 0 {
		return fmt.Errorf("%w: cache lifespan must be positive", ErrInvalid)
	}
	if c.ParallelSessions <= 0 {
		return fmt.Errorf("%w: parallel sessions must be positive", ErrInvalid)
	}
	if c.DebounceInterval < 0 {
		return fmt.Errorf("%w: debounce interval cannot be negative", ErrInvalid)
	}
	if c.CacheCapacity < 0 {
		return fmt.Errorf("%w: cache capacity cannot be negative", ErrInvalid)
	}
	if c.DialAttempts < 0 {
		return fmt.Errorf("%w: dial attempts cannot be negative", ErrInvalid)
	}
	if !strings.HasPrefix(c.SocketURL, "ws://") && !strings.HasPrefix(c.SocketURL, "wss://") {
		return fmt.Errorf("%w: socket url must use ws or wss, got %q", ErrInvalid, c.SocketURL)
	}
	if _, err := c.Policy(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Policy returns the parsed protocol error policy
func (c *Config) Policy() (engine.ProtocolErrorPolicy, error) {
	return engine.ParsePolicy(c.ProtocolErrorPolicy)
}

// ResolveDBPath expands a leading ~ and creates the parent directory.
// ":memory:" is returned unchanged.
func (c *Config) ResolveDBPath() (string, error) {
	path := c.DBPath
	if path == "" {
		path = DefaultDBPath
	}
	if path == ":memory:" {
		return path, nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return path, nil
}
