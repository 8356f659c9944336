// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Debugger.Port != 4447 {
		t.Errorf("expected port=4447, got %d", cfg.Debugger.Port)
	}
	if cfg.Debugger.Backlog != 1 {
		t.Errorf("expected backlog=1, got %d", cfg.Debugger.Backlog)
	}
	if cfg.Debugger.ReadChunkSize != 32 {
		t.Errorf("expected read_chunk_size=32, got %d", cfg.Debugger.ReadChunkSize)
	}
	if cfg.Debugger.TickInterval != 40*time.Millisecond {
		t.Errorf("expected tick_interval=40ms, got %v", cfg.Debugger.TickInterval)
	}
	if cfg.Debugger.Enabled {
		t.Error("expected the debugger to start disabled")
	}
	if cfg.Control.SocketPath != "/run/nodescope/control.sock" {
		t.Errorf("expected socket_path=/run/nodescope/control.sock, got %s", cfg.Control.SocketPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoad_RequiresEnvironmentVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if !errors.Is(err, ErrNoConfig) {
		t.Fatalf("expected ErrNoConfig when %s is not set, got %v", EnvironmentVariable, err)
	}
}

func TestLoad_WithEnvironmentVariable(t *testing.T) {
	path := writeConfig(t, "nodescope.yaml", `
environment: staging
debugger:
  enabled: true
  port: 5000
  tick_interval: 10ms
control:
  socket_path: /test/control.sock
`)
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}
	if !cfg.Debugger.Enabled {
		t.Error("expected enabled=true")
	}
	if cfg.Debugger.Port != 5000 {
		t.Errorf("expected port=5000, got %d", cfg.Debugger.Port)
	}
	if cfg.Debugger.TickInterval != 10*time.Millisecond {
		t.Errorf("expected tick_interval=10ms, got %v", cfg.Debugger.TickInterval)
	}
	// Unset values keep their defaults.
	if cfg.Debugger.ReapInterval != 500*time.Millisecond {
		t.Errorf("expected default reap_interval=500ms, got %v", cfg.Debugger.ReapInterval)
	}
	if cfg.Control.SocketPath != "/test/control.sock" {
		t.Errorf("expected socket_path=/test/control.sock, got %s", cfg.Control.SocketPath)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	path := writeConfig(t, "nodescope.jsonc", `{
  // Listen on loopback only.
  "debugger": {
    "host": "127.0.0.1",
    "port": 4500,
    "reap_interval": "2s", /* slower */
  },
  "logging": {"level": "debug", "format": "text"},
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Debugger.Host != "127.0.0.1" || cfg.Debugger.Port != 4500 {
		t.Errorf("expected 127.0.0.1:4500, got %s:%d", cfg.Debugger.Host, cfg.Debugger.Port)
	}
	if cfg.Debugger.ReapInterval != 2*time.Second {
		t.Errorf("expected reap_interval=2s, got %v", cfg.Debugger.ReapInterval)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("expected debug/text logging, got %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{
			name:    "malformed yaml",
			file:    "bad.yaml",
			content: "debugger: [unterminated",
			want:    "parsing config",
		},
		{
			name:    "bad duration",
			file:    "bad.yaml",
			content: "debugger:\n  tick_interval: soon\n",
			want:    "parsing config",
		},
		{
			name:    "invalid value",
			file:    "invalid.yaml",
			content: "debugger:\n  port: 70000\n",
			want:    "debugger.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.file, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadFile() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadFile(missing) error = %v, want os.ErrNotExist", err)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantPort    int
		wantEnabled bool
		wantFormat  string
	}{
		{
			name: "development section applies",
			content: `
environment: development
development:
  debugger:
    enabled: true
    port: 9000
`,
			wantPort:    9000,
			wantEnabled: true,
			wantFormat:  "auto",
		},
		{
			name: "other sections ignored",
			content: `
environment: development
production:
  debugger:
    port: 9000
`,
			wantPort:   4447,
			wantFormat: "auto",
		},
		{
			name:       "production defaults to json logging",
			content:    "environment: production\n",
			wantPort:   4447,
			wantFormat: "json",
		},
		{
			name: "explicit production section replaces the defaults",
			content: `
environment: production
production:
  logging:
    format: text
`,
			wantPort:   4447,
			wantFormat: "text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFile(writeConfig(t, "nodescope.yaml", tt.content))
			if err != nil {
				t.Fatalf("LoadFile() failed: %v", err)
			}
			if cfg.Debugger.Port != tt.wantPort {
				t.Errorf("expected port=%d, got %d", tt.wantPort, cfg.Debugger.Port)
			}
			if cfg.Debugger.Enabled != tt.wantEnabled {
				t.Errorf("expected enabled=%v, got %v", tt.wantEnabled, cfg.Debugger.Enabled)
			}
			if cfg.Logging.Format != tt.wantFormat {
				t.Errorf("expected format=%s, got %s", tt.wantFormat, cfg.Logging.Format)
			}
		})
	}
}

func TestSocketPathExpansion(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	cfg, err := LoadFile(writeConfig(t, "nodescope.yaml", `
control:
  socket_path: ${XDG_RUNTIME_DIR}/nodescope.sock
`))
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Control.SocketPath != "/run/user/1000/nodescope.sock" {
		t.Errorf("expected expanded socket path, got %s", cfg.Control.SocketPath)
	}
}

func TestExpandVars(t *testing.T) {
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{
			input:    "${HOME}/nodescope",
			vars:     map[string]string{"HOME": "/home/user"},
			expected: "/home/user/nodescope",
		},
		{
			input:    "${NODESCOPE_TEST_MISSING:-default}",
			vars:     map[string]string{},
			expected: "default",
		},
		{
			input:    "${PRESENT:-default}",
			vars:     map[string]string{"PRESENT": "value"},
			expected: "value",
		},
		{
			input:    "${A}/${B}",
			vars:     map[string]string{"A": "first", "B": "second"},
			expected: "first/second",
		},
		{
			input:    "no variables here",
			vars:     map[string]string{},
			expected: "no variables here",
		},
	}

	for _, tt := range tests {
		result := expandVars(tt.input, tt.vars)
		if result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "ephemeral port",
			modify:  func(c *Config) { c.Debugger.Port = 0 },
			wantErr: false,
		},
		{
			name:    "manual tick",
			modify:  func(c *Config) { c.Debugger.TickInterval = 0 },
			wantErr: false,
		},
		{
			name:    "invalid environment",
			modify:  func(c *Config) { c.Environment = "invalid" },
			wantErr: true,
		},
		{
			name:    "negative port",
			modify:  func(c *Config) { c.Debugger.Port = -1 },
			wantErr: true,
		},
		{
			name:    "zero backlog",
			modify:  func(c *Config) { c.Debugger.Backlog = 0 },
			wantErr: true,
		},
		{
			name:    "zero chunk size",
			modify:  func(c *Config) { c.Debugger.ReadChunkSize = 0 },
			wantErr: true,
		},
		{
			name:    "negative tick",
			modify:  func(c *Config) { c.Debugger.TickInterval = -time.Second },
			wantErr: true,
		},
		{
			name:    "unknown display mode",
			modify:  func(c *Config) { c.Debugger.DisplayMode = "fancy" },
			wantErr: true,
		},
		{
			name:    "empty socket path",
			modify:  func(c *Config) { c.Control.SocketPath = "" },
			wantErr: true,
		},
		{
			name:    "zero heartbeat",
			modify:  func(c *Config) { c.Control.HeartbeatInterval = 0 },
			wantErr: true,
		},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "unknown log format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnsureSocketDir(t *testing.T) {
	cfg := Default()
	cfg.Control.SocketPath = filepath.Join(t.TempDir(), "run", "nodescope", "control.sock")

	if err := cfg.EnsureSocketDir(); err != nil {
		t.Fatalf("EnsureSocketDir failed: %v", err)
	}

	info, err := os.Stat(filepath.Dir(cfg.Control.SocketPath))
	if err != nil {
		t.Fatalf("socket directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("socket directory is not a directory")
	}
}
