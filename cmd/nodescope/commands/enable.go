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
)

type enableParams struct {
	cli.JSONOutput
	SocketConnection
	Port int `json:"port" flag:"port,p" desc:"TCP port to listen on (default: the daemon's configured port)"`
}

func enableCommand(stdout io.Writer) *cli.Command {
	var params enableParams

	return &cli.Command{
		Name:    "enable",
		Summary: "Start the debug listener",
		Description: `Start accepting debug connections. Enabling a daemon that is already
listening restarts the listener with a new session. If the port
cannot be bound the daemon stays stopped and the error is reported.`,
		Usage: "nodescope enable [--port <port>] [flags]",
		Examples: []cli.Example{
			{
				Description: "Listen on the configured port",
				Command:     "nodescope enable",
			},
			{
				Description: "Listen on port 5000",
				Command:     "nodescope enable --port 5000",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("enable", &params)
		},
		Args: cli.NoArgs,
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if params.Port < 0 || params.Port > 65535 {
				return fmt.Errorf("--port %d is outside 0-65535", params.Port)
			}

			fields := map[string]any{}
			if params.Port > 0 {
				fields["port"] = params.Port
			}
			callCtx, cancel := callContext(ctx)
			defer cancel()

			var response control.StatusResponse
			if err := params.client().Call(callCtx, control.ActionEnable, fields, &response); err != nil {
				return err
			}
			logger.Debug("debugger enabled", "session_id", response.Debugger.SessionID)
			if done, err := params.EmitJSON(stdout, response); done {
				return err
			}
			return printStatus(stdout, response)
		},
	}
}

type disableParams struct {
	cli.JSONOutput
	SocketConnection
}

func disableCommand(stdout io.Writer) *cli.Command {
	var params disableParams

	return &cli.Command{
		Name:    "disable",
		Summary: "Stop the debug listener",
		Description: `Stop accepting debug connections. Connections already accepted keep
running in the background and their payloads are discarded when they
end. Timelines are kept.`,
		Usage: "nodescope disable [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("disable", &params)
		},
		Args: cli.NoArgs,
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			callCtx, cancel := callContext(ctx)
			defer cancel()

			var response control.StatusResponse
			if err := params.client().Call(callCtx, control.ActionDisable, nil, &response); err != nil {
				return err
			}
			if done, err := params.EmitJSON(stdout, response); done {
				return err
			}
			return printStatus(stdout, response)
		},
	}
}
