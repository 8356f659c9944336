// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"

	"github.com/bureau-foundation/nodescope/cmd/nodescope/commands"
	"github.com/bureau-foundation/nodescope/lib/logging"
	"github.com/bureau-foundation/nodescope/lib/process"
)

// logLevelEnvVar raises or lowers CLI diagnostics; warn by default so
// command output stays clean.
const logLevelEnvVar = "NODESCOPE_LOG_LEVEL"

func main() {
	process.Run(run)
}

func run(ctx context.Context) error {
	level := os.Getenv(logLevelEnvVar)
	if level == "" {
		level = "warn"
	}
	logger, err := logging.New(logging.Options{Level: level, Format: logging.FormatText})
	if err != nil {
		return err
	}
	return commands.Root(os.Stdout).Execute(ctx, os.Args[1:], logger)
}
