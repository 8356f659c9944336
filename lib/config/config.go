// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when no --config flag is
// given.
const EnvironmentVariable = "NODESCOPE_CONFIG"

// ErrNoConfig is returned by Load when NODESCOPE_CONFIG is not set.
var ErrNoConfig = errors.New(EnvironmentVariable + " environment variable not set")

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the daemon configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Debugger DebuggerConfig `yaml:"debugger"`
	Control  ControlConfig  `yaml:"control"`
	Logging  LoggingConfig  `yaml:"logging"`

	// Per-environment overrides, applied after the base config.
	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds the sections an environment may override. Within a
// present section, non-zero values replace the base value; Enabled is
// always taken from the override.
type Overrides struct {
	Debugger *DebuggerConfig `yaml:"debugger,omitempty"`
	Control  *ControlConfig  `yaml:"control,omitempty"`
	Logging  *LoggingConfig  `yaml:"logging,omitempty"`
}

// DebuggerConfig configures the ingestion server.
type DebuggerConfig struct {
	// Enabled starts listening as soon as the daemon is up. When
	// false the debugger waits for an enable request on the control
	// socket.
	Enabled bool `yaml:"enabled"`

	// Host to bind. Empty binds every IPv4 interface.
	Host string `yaml:"host"`

	// Port for debug connections. Default: 4447
	Port int `yaml:"port"`

	// Backlog for listen(2). Default: 1
	Backlog int `yaml:"backlog"`

	// ReadChunkSize is the per-read buffer of each connection worker.
	// Default: 32
	ReadChunkSize int `yaml:"read_chunk_size"`

	// MaxPayloadBytes caps the compressed bytes accepted from one
	// connection. Default: 64 MiB
	MaxPayloadBytes int `yaml:"max_payload_bytes"`

	// MaxInflatedBytes caps the decompressed size of one payload.
	// Default: 64 MiB
	MaxInflatedBytes int64 `yaml:"max_inflated_bytes"`

	// TickInterval is the aggregation period. Default: 40ms
	TickInterval time.Duration `yaml:"tick_interval"`

	// ReapInterval is the shutdown coordinator poll period.
	// Default: 500ms
	ReapInterval time.Duration `yaml:"reap_interval"`

	// DisplayMode is the initial viewer mode: live or mixed.
	// Default: live
	DisplayMode string `yaml:"display_mode"`
}

// ControlConfig configures the local control socket.
type ControlConfig struct {
	// SocketPath is the Unix socket path.
	// Default: /run/nodescope/control.sock
	SocketPath string `yaml:"socket_path"`

	// HeartbeatInterval is the period of a watch stream's heartbeat
	// frames. They are sent on schedule whether or not events went out
	// in between, and carry the stream's dropped-event count.
	// Default: 5s
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string `yaml:"level"`

	// Format is auto, text or json. Auto picks text for a terminal
	// and json otherwise. Default: auto
	Format string `yaml:"format"`
}

// Default returns the configuration used as the base before a file
// is applied.
func Default() *Config {
	return &Config{
		Environment: Development,
		Debugger: DebuggerConfig{
			Port:             4447,
			Backlog:          1,
			ReadChunkSize:    32,
			MaxPayloadBytes:  64 << 20,
			MaxInflatedBytes: 64 << 20,
			TickInterval:     40 * time.Millisecond,
			ReapInterval:     500 * time.Millisecond,
			DisplayMode:      "live",
		},
		Control: ControlConfig{
			SocketPath:        "/run/nodescope/control.sock",
			HeartbeatInterval: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads the file named by NODESCOPE_CONFIG. It returns
// ErrNoConfig when the variable is unset; callers that can run on
// defaults check for it with errors.Is.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%w; set it to the path of your nodescope config file, or use --config", ErrNoConfig)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path over the defaults, applies
// environment overrides and variable expansion, and validates.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// loadFile merges a single file into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is valid YAML, so one decoder serves both once comments
		// and trailing commas are stripped.
		data = jsonc.ToJSON(data)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &Overrides{
				Logging: &LoggingConfig{Level: "info", Format: "json"},
			}
		}
	}

	if overrides == nil {
		return
	}

	if debugger := overrides.Debugger; debugger != nil {
		c.Debugger.Enabled = debugger.Enabled
		if debugger.Host != "" {
			c.Debugger.Host = debugger.Host
		}
		if debugger.Port != 0 {
			c.Debugger.Port = debugger.Port
		}
		if debugger.Backlog != 0 {
			c.Debugger.Backlog = debugger.Backlog
		}
		if debugger.ReadChunkSize != 0 {
			c.Debugger.ReadChunkSize = debugger.ReadChunkSize
		}
		if debugger.MaxPayloadBytes != 0 {
			c.Debugger.MaxPayloadBytes = debugger.MaxPayloadBytes
		}
		if debugger.MaxInflatedBytes != 0 {
			c.Debugger.MaxInflatedBytes = debugger.MaxInflatedBytes
		}
		if debugger.TickInterval != 0 {
			c.Debugger.TickInterval = debugger.TickInterval
		}
		if debugger.ReapInterval != 0 {
			c.Debugger.ReapInterval = debugger.ReapInterval
		}
		if debugger.DisplayMode != "" {
			c.Debugger.DisplayMode = debugger.DisplayMode
		}
	}

	if control := overrides.Control; control != nil {
		if control.SocketPath != "" {
			c.Control.SocketPath = control.SocketPath
		}
		if control.HeartbeatInterval != 0 {
			c.Control.HeartbeatInterval = control.HeartbeatInterval
		}
	}

	if logging := overrides.Logging; logging != nil {
		if logging.Level != "" {
			c.Logging.Level = logging.Level
		}
		if logging.Format != "" {
			c.Logging.Format = logging.Format
		}
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME":            os.Getenv("HOME"),
		"XDG_RUNTIME_DIR": os.Getenv("XDG_RUNTIME_DIR"),
	}
	c.Control.SocketPath = expandVars(c.Control.SocketPath, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case Development, Staging, Production:
	default:
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Debugger.Port < 0 || c.Debugger.Port > 65535 {
		errs = append(errs, fmt.Errorf("debugger.port must be between 0 and 65535, got %d", c.Debugger.Port))
	}
	if c.Debugger.Backlog < 1 {
		errs = append(errs, fmt.Errorf("debugger.backlog must be at least 1, got %d", c.Debugger.Backlog))
	}
	if c.Debugger.ReadChunkSize < 1 {
		errs = append(errs, fmt.Errorf("debugger.read_chunk_size must be at least 1, got %d", c.Debugger.ReadChunkSize))
	}
	if c.Debugger.MaxPayloadBytes < 1 {
		errs = append(errs, fmt.Errorf("debugger.max_payload_bytes must be positive"))
	}
	if c.Debugger.MaxInflatedBytes < 1 {
		errs = append(errs, fmt.Errorf("debugger.max_inflated_bytes must be positive"))
	}
	if c.Debugger.TickInterval < 0 {
		errs = append(errs, fmt.Errorf("debugger.tick_interval must not be negative"))
	}
	if c.Debugger.ReapInterval < 0 {
		errs = append(errs, fmt.Errorf("debugger.reap_interval must not be negative"))
	}
	if !contains([]string{"live", "mixed"}, c.Debugger.DisplayMode) {
		errs = append(errs, fmt.Errorf("debugger.display_mode must be live or mixed, got %q", c.Debugger.DisplayMode))
	}

	if c.Control.SocketPath == "" {
		errs = append(errs, fmt.Errorf("control.socket_path is required"))
	}
	if c.Control.HeartbeatInterval <= 0 {
		errs = append(errs, fmt.Errorf("control.heartbeat_interval must be positive"))
	}

	levels := []string{"debug", "info", "warn", "error"}
	if !contains(levels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: %v", levels))
	}
	formats := []string{"auto", "text", "json"}
	if !contains(formats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of: %v", formats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsureSocketDir creates the control socket's parent directory.
func (c *Config) EnsureSocketDir() error {
	dir := filepath.Dir(c.Control.SocketPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
