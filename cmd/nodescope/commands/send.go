// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/nodescope/cmd/nodescope/cli"
	"github.com/bureau-foundation/nodescope/transport"
	"github.com/bureau-foundation/nodescope/lib/wire"
)

type sendParams struct {
	cli.JSONOutput
	Address  string        `json:"addr" flag:"addr" desc:"debugger listen address" default:"127.0.0.1:4447"`
	ID       int64         `json:"id" flag:"id" desc:"entity id of the packet"`
	Time     float64       `json:"time" flag:"time,t" desc:"packet time mark"`
	States   []string      `json:"states" flag:"state,s" desc:"state message body uid,state[,text] (repeatable)"`
	Messages []string      `json:"messages" flag:"message,m" desc:"plain message text (repeatable)"`
	File     string        `json:"file" flag:"file" desc:"send this file's bytes as the payload, unmodified"`
	Timeout  time.Duration `json:"timeout" flag:"timeout" desc:"connect and write timeout" default:"5s"`
}

// sendResult is the --json output of send.
type sendResult struct {
	Address string `json:"address"`
	Bytes   int    `json:"bytes"`
	Digest  string `json:"digest"`
}

func sendCommand(stdout io.Writer) *cli.Command {
	var params sendParams

	return &cli.Command{
		Name:    "send",
		Summary: "Send one debug payload to a listening daemon",
		Description: `Act as a debugged node: connect to the debug listener, send one
compressed packet, and disconnect. State messages are sent before
plain messages. With --file the payload is sent exactly as stored,
which is useful for replaying captured or deliberately corrupt data.

The printed digest matches the "digest" field the daemon logs for the
connection.`,
		Usage: "nodescope send --id <uid> --time <t> [--state <body>]... [--message <text>]... [flags]",
		Examples: []cli.Example{
			{
				Description: "Report state 3 with a note for entity 42",
				Command:     "nodescope send --id 42 --time 1.5 --state 42,3,ready",
			},
			{
				Description: "Replay a captured payload",
				Command:     "nodescope send --file capture.bin --addr 10.0.0.5:4447",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("send", &params)
		},
		Args: cli.NoArgs,
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			payload, err := buildPayload(&params)
			if err != nil {
				return err
			}

			sendCtx, cancel := context.WithTimeout(ctx, params.Timeout)
			defer cancel()
			if err := sendPayload(sendCtx, &transport.TCPDialer{Timeout: params.Timeout}, params.Address, payload); err != nil {
				return err
			}

			result := sendResult{
				Address: params.Address,
				Bytes:   len(payload),
				Digest:  wire.Digest(payload),
			}
			logger.Debug("payload sent", "addr", result.Address, "bytes", result.Bytes, "digest", result.Digest)
			if done, err := params.EmitJSON(stdout, result); done {
				return err
			}
			fmt.Fprintf(stdout, "sent %d bytes to %s (digest %s)\n", result.Bytes, result.Address, result.Digest[:16])
			return nil
		},
	}
}

func buildPayload(params *sendParams) ([]byte, error) {
	if params.File != "" {
		if len(params.States) > 0 || len(params.Messages) > 0 {
			return nil, fmt.Errorf("--file cannot be combined with --state or --message")
		}
		payload, err := os.ReadFile(params.File)
		if err != nil {
			return nil, fmt.Errorf("reading payload: %w", err)
		}
		return payload, nil
	}

	if len(params.States) == 0 && len(params.Messages) == 0 {
		return nil, fmt.Errorf("nothing to send: give --state, --message or --file")
	}
	messages := make([]string, 0, len(params.States)+len(params.Messages))
	for _, state := range params.States {
		messages = append(messages, wire.MarkerState+state)
	}
	messages = append(messages, params.Messages...)

	payload, err := wire.Encode(wire.Packet{ID: params.ID, Time: params.Time, Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return payload, nil
}

// sendPayload writes payload on a fresh connection and closes it; the
// daemon treats end of stream as end of payload.
func sendPayload(ctx context.Context, dialer transport.Dialer, address string, payload []byte) error {
	conn, err := dialer.DialContext(ctx, address)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", address, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	}
	if _, err := conn.Write(payload); err != nil {
		conn.Close()
		return fmt.Errorf("sending to %s: %w", address, err)
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("closing connection to %s: %w", address, err)
	}
	return nil
}
