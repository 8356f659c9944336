// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// exitCoder is implemented by errors that carry their own exit code.
type exitCoder interface {
	ExitCode() int
}

// Fatal writes "error: err" to stderr and exits with code 1. An error
// with an ExitCode method exits with that code and prints nothing: the
// command has already reported the outcome. Use it in main() for
// errors from run().
func Fatal(err error) {
	var coder exitCoder
	if !errors.As(err, &coder) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(ExitCode(err))
}

// ExitCode returns the code Fatal would exit with: 0 for nil, the
// error's ExitCode when it has one, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder exitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

// Run calls run with a context cancelled on SIGINT or SIGTERM and
// exits through Fatal if it fails. A second signal kills the process
// with the default handler.
func Run(run func(ctx context.Context) error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	if err := run(ctx); err != nil {
		Fatal(err)
	}
}
