// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/nodescope/cmd/nodescope/cli"
	"github.com/bureau-foundation/nodescope/lib/control"
	"github.com/bureau-foundation/nodescope/lib/debugger"
)

// errWatchComplete stops the stream once --count events arrived.
var errWatchComplete = errors.New("watch complete")

type watchParams struct {
	cli.JSONOutput
	SocketConnection
	UIDs   []int64 `json:"uids" flag:"uid,u" desc:"only report updates of these entities (repeatable)"`
	Buffer int     `json:"buffer" flag:"buffer" desc:"daemon-side event buffer for this watcher" default:"64"`
	Count  int     `json:"count" flag:"count,n" desc:"exit after this many events (0: run until interrupted)"`
}

func watchCommand(stdout io.Writer) *cli.Command {
	var params watchParams

	return &cli.Command{
		Name:    "watch",
		Summary: "Stream debugger events",
		Description: `Stream events from the daemon: listener starts and stops, display
mode changes, and entity state updates as payloads are merged. Runs
until interrupted, the daemon shuts down, or --count events arrived.

When this watcher falls behind, the daemon drops events rather than
slowing down ingestion; the number dropped is reported.

With --json every frame (heartbeats included) is written as one JSON
object per line.`,
		Usage: "nodescope watch [--uid <uid>]... [flags]",
		Examples: []cli.Example{
			{
				Description: "Follow everything",
				Command:     "nodescope watch",
			},
			{
				Description: "Follow two entities",
				Command:     "nodescope watch --uid 42 --uid 43",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("watch", &params)
		},
		Args: cli.NoArgs,
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if params.Buffer < 1 {
				return fmt.Errorf("--buffer must be at least 1")
			}

			fields := map[string]any{"buffer": params.Buffer}
			if len(params.UIDs) > 0 {
				fields["uids"] = params.UIDs
			}

			lines := cli.NewJSONLines(stdout)
			events := 0
			var reportedDropped uint64
			err := params.client().Watch(ctx, fields, func(frame control.Frame) error {
				if params.OutputJSON {
					if err := lines.Write(frame); err != nil {
						return err
					}
				} else {
					if frame.Dropped > reportedDropped {
						fmt.Fprintf(stdout, "(%d events dropped)\n", frame.Dropped-reportedDropped)
						reportedDropped = frame.Dropped
					}
					if frame.Event != nil {
						fmt.Fprintln(stdout, formatEvent(*frame.Event))
					}
				}

				if frame.Type == control.FrameEvent {
					events++
					if params.Count > 0 && events >= params.Count {
						return errWatchComplete
					}
				}
				return nil
			})
			if errors.Is(err, errWatchComplete) {
				return nil
			}
			logger.Debug("watch ended", "events", events)
			return err
		},
	}
}

// formatEvent renders one event as a single line.
func formatEvent(event debugger.Event) string {
	switch event.Type {
	case debugger.EventServerStarted:
		return fmt.Sprintf("listening on %s (session %s)", event.Address, event.SessionID)
	case debugger.EventServerStopped:
		return fmt.Sprintf("stopped (session %s)", event.SessionID)
	case debugger.EventDisplayModeChanged:
		return "display mode " + event.DisplayMode
	case debugger.EventEntityUpdated:
		if event.State == nil {
			return fmt.Sprintf("entity %d at %s", event.UID, formatTime(event.Time))
		}
		line := fmt.Sprintf("entity %d at %s: state %d", event.UID, formatTime(event.Time), event.State.State)
		if event.State.Text != "" {
			line += " " + event.State.Text
		}
		return line
	default:
		return string(event.Type)
	}
}
