// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/nodescope/lib/config"
	"github.com/bureau-foundation/nodescope/lib/control"
	"github.com/bureau-foundation/nodescope/lib/debugger"
	"github.com/bureau-foundation/nodescope/lib/logging"
	"github.com/bureau-foundation/nodescope/lib/process"
	"github.com/bureau-foundation/nodescope/lib/version"
)

func main() {
	process.Run(func(ctx context.Context) error {
		return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	})
}

type daemonFlags struct {
	configPath    string
	port          int
	enable        bool
	controlSocket string
	showVersion   bool
}

func parseFlags(args []string) (*pflag.FlagSet, daemonFlags, error) {
	var flags daemonFlags
	flagSet := pflag.NewFlagSet("nodescope-debugd", pflag.ContinueOnError)
	flagSet.StringVar(&flags.configPath, "config", "", "config file (default: $"+config.EnvironmentVariable+", then built-in defaults)")
	flagSet.IntVar(&flags.port, "port", 0, "debug listener port (overrides debugger.port)")
	flagSet.BoolVar(&flags.enable, "enable", false, "start listening immediately (overrides debugger.enabled)")
	flagSet.StringVar(&flags.controlSocket, "control-socket", "", "control socket path (overrides control.socket_path)")
	flagSet.BoolVar(&flags.showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(args); err != nil {
		return nil, flags, err
	}
	if flagSet.NArg() > 0 {
		return nil, flags, fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}
	return flagSet, flags, nil
}

// loadConfig resolves the configuration and applies flag overrides.
func loadConfig(flagSet *pflag.FlagSet, flags daemonFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.Load()
		if errors.Is(err, config.ErrNoConfig) {
			cfg, err = config.Default(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	if flagSet.Changed("port") {
		cfg.Debugger.Port = flags.port
	}
	if flagSet.Changed("enable") {
		cfg.Debugger.Enabled = flags.enable
	}
	if flags.controlSocket != "" {
		cfg.Control.SocketPath = flags.controlSocket
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// debuggerOptions maps the debugger section onto debugger.Options.
// The daemon always ticks on its own; a zero interval means the
// default rather than manual ticking.
func debuggerOptions(cfg *config.Config) (debugger.Options, error) {
	mode, err := debugger.ParseDisplayMode(cfg.Debugger.DisplayMode)
	if err != nil {
		return debugger.Options{}, err
	}
	tickInterval := cfg.Debugger.TickInterval
	if tickInterval <= 0 {
		tickInterval = debugger.DefaultTickInterval
	}
	return debugger.Options{
		Server: debugger.Config{
			Host:             cfg.Debugger.Host,
			Backlog:          cfg.Debugger.Backlog,
			ReadChunkSize:    cfg.Debugger.ReadChunkSize,
			MaxPayloadBytes:  cfg.Debugger.MaxPayloadBytes,
			MaxInflatedBytes: cfg.Debugger.MaxInflatedBytes,
			TickInterval:     tickInterval,
			ReapInterval:     cfg.Debugger.ReapInterval,
		},
		Port:        cfg.Debugger.Port,
		DisplayMode: mode,
	}, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flagSet, flags, err := parseFlags(args)
	if err != nil {
		return err
	}
	if flags.showVersion {
		fmt.Fprintf(stdout, "nodescope-debugd %s\n", version.Full())
		return nil
	}

	cfg, err := loadConfig(flagSet, flags)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: stderr,
	})
	if err != nil {
		return err
	}

	options, err := debuggerOptions(cfg)
	if err != nil {
		return err
	}
	options.Server.Logger = logger
	d := debugger.New(options)
	defer d.Close()

	if err := cfg.EnsureSocketDir(); err != nil {
		return err
	}
	socketServer := control.NewSocketServer(cfg.Control.SocketPath, logger)
	control.NewService(d, control.ServiceConfig{
		Logger:            logger,
		HeartbeatInterval: cfg.Control.HeartbeatInterval,
	}).Register(socketServer)

	socketDone := make(chan error, 1)
	go func() {
		socketDone <- socketServer.Serve(ctx)
	}()

	logger.Info("nodescope-debugd running",
		"version", version.Info(),
		"environment", string(cfg.Environment),
		"control_socket", cfg.Control.SocketPath,
		"port", cfg.Debugger.Port,
	)

	// A listener that cannot bind is not fatal: the daemon stays up
	// stopped so the operator can enable it on another port.
	if cfg.Debugger.Enabled {
		if err := d.Enable(0); err != nil {
			logger.Error("debug listener failed to start", "port", cfg.Debugger.Port, "error", err)
		}
	}

	select {
	case <-ctx.Done():
	case err := <-socketDone:
		if err != nil {
			return fmt.Errorf("control socket: %w", err)
		}
		return nil
	}
	logger.Info("shutting down")

	if err := <-socketDone; err != nil {
		logger.Error("control socket error", "error", err)
	}
	return nil
}
