// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the nodescope command tree. Every command
// except send and version talks to a running nodescope-debugd over
// its control socket.
package commands

import (
	"io"

	"github.com/bureau-foundation/nodescope/cmd/nodescope/cli"
)

// Root builds the complete command tree. Command output is written to
// stdout; help and usage go to stderr.
func Root(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name: "nodescope",
		Description: `nodescope: inspect and drive a remote debugger daemon.

Nodes report their state to nodescope-debugd over TCP. This tool asks
the daemon what it has seen, switches the listener on and off, and
streams state changes as they are merged.`,
		Subcommands: []*cli.Command{
			statusCommand(stdout),
			enableCommand(stdout),
			disableCommand(stdout),
			entitiesCommand(stdout),
			queryCommand(stdout),
			historyCommand(stdout),
			modeCommand(stdout),
			resetCommand(stdout),
			watchCommand(stdout),
			sendCommand(stdout),
			versionCommand(stdout),
		},
		Examples: []cli.Example{
			{
				Description: "Check whether the daemon is listening",
				Command:     "nodescope status",
			},
			{
				Description: "Start listening on the default port",
				Command:     "nodescope enable",
			},
			{
				Description: "Follow state changes of entity 42",
				Command:     "nodescope watch --uid 42",
			},
			{
				Description: "Report a state by hand",
				Command:     "nodescope send --id 42 --time 1.5 --state 42,3,ready",
			},
		},
	}
}
