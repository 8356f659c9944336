// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "strconv"

// ExitError ends the process with Code and no further message. A
// command returns it after printing its own output when a non-zero
// status is an answer rather than a failure: "nodescope query" exits
// 1 for an entity with no recorded state.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return "exit code " + strconv.Itoa(e.Code)
}

// ExitCode is the hook process.Fatal looks for.
func (e *ExitError) ExitCode() int {
	return e.Code
}
