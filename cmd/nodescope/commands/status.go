// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/nodescope/cmd/nodescope/cli"
	"github.com/bureau-foundation/nodescope/lib/control"
)

type statusParams struct {
	cli.JSONOutput
	SocketConnection
}

func statusCommand(stdout io.Writer) *cli.Command {
	var params statusParams

	return &cli.Command{
		Name:    "status",
		Summary: "Show listener state and ingestion counters",
		Description: `Show whether the daemon is listening, on which address and since
when, the display mode, and the counters it has kept since it started.`,
		Usage: "nodescope status [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("status", &params)
		},
		Args: cli.NoArgs,
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			callCtx, cancel := callContext(ctx)
			defer cancel()

			var response control.StatusResponse
			if err := params.client().Call(callCtx, control.ActionStatus, nil, &response); err != nil {
				return err
			}
			if done, err := params.EmitJSON(stdout, response); done {
				return err
			}
			return printStatus(stdout, response)
		},
	}
}

// printStatus renders a status response as aligned key/value lines.
// enable and disable print the same block.
func printStatus(stdout io.Writer, response control.StatusResponse) error {
	status := response.Debugger
	writer := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "State:\t%s\n", status.State)
	fmt.Fprintf(writer, "Port:\t%d\n", status.Port)
	if status.Address != "" {
		fmt.Fprintf(writer, "Address:\t%s\n", status.Address)
		fmt.Fprintf(writer, "Session:\t%s\n", status.SessionID)
		uptime := time.Duration(status.UptimeSeconds * float64(time.Second)).Round(time.Second)
		fmt.Fprintf(writer, "Uptime:\t%s\n", uptime)
	}
	fmt.Fprintf(writer, "Display mode:\t%s\n", status.DisplayMode)
	fmt.Fprintf(writer, "Entities:\t%d\n", status.Entities)
	fmt.Fprintf(writer, "Watchers:\t%d\n", status.Subscribers)

	stats := status.Stats
	fmt.Fprintf(writer, "Connections:\t%d accepted, %d active, %d pending shutdown\n",
		stats.ConnectionsAccepted, stats.ActiveWorkers, stats.PendingShutdowns)
	fmt.Fprintf(writer, "Payloads:\t%d bytes, %d merged, %d empty, %d undecodable, %d read errors\n",
		stats.BytesReceived, stats.BatchesMerged, stats.EmptyPayloads, stats.DecodeErrors, stats.ReadErrors)
	fmt.Fprintf(writer, "Messages:\t%d records, %d state (%d invalid), %d plain\n",
		stats.Records, stats.StateMessages, stats.InvalidStateMessages, stats.PlainMessages)
	if stats.DiscardedWorkers > 0 {
		fmt.Fprintf(writer, "Discarded:\t%d connections\n", stats.DiscardedWorkers)
	}
	fmt.Fprintf(writer, "Daemon:\t%s (%s)\n", response.Build.Version, response.Build.Commit)
	return writer.Flush()
}
