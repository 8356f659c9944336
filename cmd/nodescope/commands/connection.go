// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/nodescope/lib/config"
	"github.com/bureau-foundation/nodescope/lib/control"
)

// SocketEnvVar overrides the default control socket path.
const SocketEnvVar = "NODESCOPE_SOCKET"

// SocketConnection holds the --socket flag shared by every command
// that talks to the daemon.
type SocketConnection struct {
	SocketPath string
}

// AddFlags registers --socket. The default comes from SocketEnvVar,
// then the built-in configuration default.
func (c *SocketConnection) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.SocketPath, "socket", defaultSocketPath(),
		"daemon control socket (env "+SocketEnvVar+")")
}

func (c *SocketConnection) client() *control.Client {
	return control.NewClient(c.SocketPath)
}

func defaultSocketPath() string {
	if path := os.Getenv(SocketEnvVar); path != "" {
		return path
	}
	return config.Default().Control.SocketPath
}

// callContext bounds a request-response call. Every action is an
// in-memory lookup or a listener toggle.
func callContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 10*time.Second)
}

// parseUID reads a positional entity uid.
func parseUID(text string) (int64, error) {
	uid, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid entity uid %q: %w", text, err)
	}
	return uid, nil
}

// formatTime renders a packet time mark.
func formatTime(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}
