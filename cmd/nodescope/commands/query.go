// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/nodescope/cmd/nodescope/cli"
	"github.com/bureau-foundation/nodescope/lib/control"
	"github.com/bureau-foundation/nodescope/lib/debugger"
)

type entitiesParams struct {
	cli.JSONOutput
	SocketConnection
}

func entitiesCommand(stdout io.Writer) *cli.Command {
	var params entitiesParams

	return &cli.Command{
		Name:    "entities",
		Summary: "List entities with recorded state",
		Usage:   "nodescope entities [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("entities", &params)
		},
		Args: cli.NoArgs,
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			callCtx, cancel := callContext(ctx)
			defer cancel()

			var entities []debugger.EntitySummary
			if err := params.client().Call(callCtx, control.ActionEntities, nil, &entities); err != nil {
				return err
			}
			if done, err := params.EmitJSON(stdout, entities); done {
				return err
			}
			if len(entities) == 0 {
				fmt.Fprintln(stdout, "no entities")
				return nil
			}

			writer := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(writer, "UID\tENTRIES\tTIME\tSTATE\tTEXT\n")
			for _, entity := range entities {
				fmt.Fprintf(writer, "%d\t%d\t%s\t%d\t%s\n",
					entity.UID, entity.Entries, formatTime(entity.Latest.Time),
					entity.Latest.Value.State, entity.Latest.Value.Text)
			}
			return writer.Flush()
		},
	}
}

type queryParams struct {
	cli.JSONOutput
	SocketConnection
	At cli.OptionalFloat `json:"at" flag:"at" desc:"report the state in effect at this time mark instead of the latest"`
}

func queryCommand(stdout io.Writer) *cli.Command {
	var params queryParams

	return &cli.Command{
		Name:    "query",
		Summary: "Show an entity's last known state",
		Description: `Show the state of one entity: the latest merged state, or with --at
the state in effect at that time mark (the last entry at or before
it). Exits with status 1 when the entity has no such state.`,
		Usage: "nodescope query <uid> [--at <time>] [flags]",
		Examples: []cli.Example{
			{
				Description: "Latest state of entity 42",
				Command:     "nodescope query 42",
			},
			{
				Description: "State of entity 42 at time mark 12.5",
				Command:     "nodescope query 42 --at 12.5",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("query", &params)
		},
		Args: cli.ExactArgs(1),
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			uid, err := parseUID(args[0])
			if err != nil {
				return err
			}
			fields := map[string]any{"uid": uid}
			if params.At.Value != nil {
				fields["at"] = *params.At.Value
			}
			callCtx, cancel := callContext(ctx)
			defer cancel()

			var response control.QueryResponse
			if err := params.client().Call(callCtx, control.ActionQuery, fields, &response); err != nil {
				return err
			}

			if done, err := params.EmitJSON(stdout, response); done {
				if err == nil && !response.Found {
					return &cli.ExitError{Code: 1}
				}
				return err
			}
			if !response.Found || response.Entry == nil {
				fmt.Fprintf(stdout, "entity %d has no recorded state\n", uid)
				return &cli.ExitError{Code: 1}
			}

			entry := response.Entry
			writer := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(writer, "UID:\t%d\n", uid)
			fmt.Fprintf(writer, "Time:\t%s\n", formatTime(entry.Time))
			fmt.Fprintf(writer, "State:\t%d\n", entry.Value.State)
			if entry.Value.Text != "" {
				fmt.Fprintf(writer, "Text:\t%s\n", entry.Value.Text)
			}
			return writer.Flush()
		},
	}
}

type historyParams struct {
	cli.JSONOutput
	SocketConnection
	From cli.OptionalFloat `json:"from" flag:"from" desc:"earliest time mark (inclusive)"`
	To   cli.OptionalFloat `json:"to" flag:"to" desc:"latest time mark (inclusive)"`
}

func historyCommand(stdout io.Writer) *cli.Command {
	var params historyParams

	return &cli.Command{
		Name:    "history",
		Summary: "List an entity's recorded states",
		Description: `List the states merged for one entity in time order, optionally
restricted to a closed time window.`,
		Usage: "nodescope history <uid> [--from <time>] [--to <time>] [flags]",
		Examples: []cli.Example{
			{
				Description: "Everything recorded for entity 42",
				Command:     "nodescope history 42",
			},
			{
				Description: "States between time marks 10 and 20",
				Command:     "nodescope history 42 --from 10 --to 20",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("history", &params)
		},
		Args: cli.ExactArgs(1),
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			uid, err := parseUID(args[0])
			if err != nil {
				return err
			}
			fields := map[string]any{"uid": uid}
			if params.From.Value != nil {
				fields["from"] = *params.From.Value
			}
			if params.To.Value != nil {
				fields["to"] = *params.To.Value
			}
			callCtx, cancel := callContext(ctx)
			defer cancel()

			var entries []debugger.Entry
			if err := params.client().Call(callCtx, control.ActionHistory, fields, &entries); err != nil {
				return err
			}
			if done, err := params.EmitJSON(stdout, entries); done {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(stdout, "no states recorded for entity %d\n", uid)
				return nil
			}

			writer := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(writer, "TIME\tSTATE\tTEXT\n")
			for _, entry := range entries {
				fmt.Fprintf(writer, "%s\t%d\t%s\n", formatTime(entry.Time), entry.Value.State, entry.Value.Text)
			}
			return writer.Flush()
		},
	}
}
