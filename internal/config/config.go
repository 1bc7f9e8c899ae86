// Package config loads emotitle configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Environment variables (EMOTITLE_*)
//  2. Config file
//  3. Built-in defaults
//
// Config file search order:
//  1. .emotitle.yaml in current directory
//  2. ~/.config/emotitle/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all emotitle configuration.
type Config struct {
	// Multiplexer: "tmux", "zellij" or empty to auto-detect.
	Mux string `yaml:"mux"`
	// Session scopes tmux to one session; empty follows the current client.
	Session string `yaml:"session"`

	// Daemon settings
	PollInterval string `yaml:"poll_interval"` // Go duration string, e.g. "1s"
	SocketPath   string `yaml:"socket_path"`
	EventHistory int    `yaml:"event_history"` // tab index event log capacity

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs, e.g. "Authorization=Basic abc123"

	// Parsed durations (not from YAML, set after loading)
	PollDuration time.Duration `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// DefaultPollInterval is used when poll_interval is unset.
const DefaultPollInterval = time.Second

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		PollInterval: "1s",
		SocketPath:   DefaultSocketPath(),
		EventHistory: 200,
	}
}

// DefaultSocketPath returns $XDG_RUNTIME_DIR/emotitle/emotitle.sock, or a
// per-user socket in the temp dir when XDG_RUNTIME_DIR is unset.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "emotitle", "emotitle.sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("emotitle-%d.sock", os.Getuid()))
}

// Load reads configuration from file and environment variables.
// Environment variables always override file values.
func Load() (*Config, error) {
	path, data, err := findConfigFile()
	if err != nil {
		return finish(Defaults())
	}
	return parse(path, data)
}

// LoadFile reads configuration from path instead of searching for it.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return parse(path, data)
}

func parse(path string, data []byte) (*Config, error) {
	cfg := Defaults()
	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	cfg.ConfigFile = path
	mergeFile(cfg, &fileCfg)
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	// Environment variables override everything
	mergeEnv(cfg)

	var err error
	cfg.PollDuration, err = parseDurationOrDisable(cfg.PollInterval, DefaultPollInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid poll interval %q: %w", cfg.PollInterval, err)
	}
	if cfg.PollDuration <= 0 {
		return nil, fmt.Errorf("invalid poll interval %q: must be positive", cfg.PollInterval)
	}
	if cfg.EventHistory <= 0 {
		return nil, fmt.Errorf("invalid event history %d: must be positive", cfg.EventHistory)
	}
	return cfg, nil
}

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile() (string, []byte, error) {
	// 1. Current directory
	if data, err := os.ReadFile(".emotitle.yaml"); err == nil {
		return ".emotitle.yaml", data, nil
	}

	// 2. ~/.config
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "emotitle", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.Mux != "" {
		cfg.Mux = file.Mux
	}
	if file.Session != "" {
		cfg.Session = file.Session
	}
	if file.PollInterval != "" {
		cfg.PollInterval = file.PollInterval
	}
	if file.SocketPath != "" {
		cfg.SocketPath = file.SocketPath
	}
	if file.EventHistory != 0 {
		cfg.EventHistory = file.EventHistory
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) {
	if v := os.Getenv("EMOTITLE_MUX"); v != "" {
		cfg.Mux = v
	}
	if v := os.Getenv("EMOTITLE_SESSION"); v != "" {
		cfg.Session = v
	}
	if v := os.Getenv("EMOTITLE_POLL_INTERVAL"); v != "" {
		cfg.PollInterval = v
	}
	if v := os.Getenv("EMOTITLE_SOCKET"); v != "" {
		cfg.SocketPath = v
	}
	if v := os.Getenv("EMOTITLE_EVENT_HISTORY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.EventHistory = n
		}
	}
	if v := os.Getenv("EMOTITLE_OTEL_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("EMOTITLE_OTEL_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}

	// Standard OTLP fallbacks
	if cfg.OTELEndpoint == "" {
		if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
			cfg.OTELEndpoint = v
		}
	}
	if cfg.OTELHeaders == "" {
		if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
			cfg.OTELHeaders = v
		}
	}
}

// parseDurationOrDisable parses a duration string. "0", "off", "disable" return 0.
// Empty string returns the fallback value.
func parseDurationOrDisable(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	if s == "0" || s == "off" || s == "disable" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
