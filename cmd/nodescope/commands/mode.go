// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/nodescope/cmd/nodescope/cli"
	"github.com/bureau-foundation/nodescope/lib/control"
	"github.com/bureau-foundation/nodescope/lib/debugger"
)

type modeParams struct {
	cli.JSONOutput
	SocketConnection
}

func modeCommand(stdout io.Writer) *cli.Command {
	var params modeParams

	return &cli.Command{
		Name:    "mode",
		Summary: "Show or set the display mode",
		Description: `Show the viewer display mode, or set it to "live" (show only the
debugged nodes' reported states) or "mixed" (overlay them on local
state). Watchers are notified when the mode changes.`,
		Usage: "nodescope mode [live|mixed] [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("mode", &params)
		},
		Args: cli.MaxArgs(1),
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			fields := map[string]any{}
			if len(args) == 1 {
				// Validate locally for a better message than the daemon's.
				if _, err := debugger.ParseDisplayMode(args[0]); err != nil {
					return err
				}
				fields["mode"] = args[0]
			}
			callCtx, cancel := callContext(ctx)
			defer cancel()

			var response control.ModeResponse
			if err := params.client().Call(callCtx, control.ActionMode, fields, &response); err != nil {
				return err
			}
			if done, err := params.EmitJSON(stdout, response); done {
				return err
			}
			fmt.Fprintln(stdout, response.Mode)
			return nil
		},
	}
}

type resetParams struct {
	SocketConnection
}

func resetCommand(stdout io.Writer) *cli.Command {
	var params resetParams

	return &cli.Command{
		Name:    "reset",
		Summary: "Discard every recorded timeline",
		Usage:   "nodescope reset [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("reset", &params)
		},
		Args: cli.NoArgs,
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			callCtx, cancel := callContext(ctx)
			defer cancel()

			if err := params.client().Call(callCtx, control.ActionReset, nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "timelines cleared")
			return nil
		},
	}
}
