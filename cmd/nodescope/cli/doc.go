// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command tree framework behind the nodescope
// binary. A [Command] owns a pflag flag set (usually built from a
// params struct by [FlagsFromParams]), optional subcommands and a Run
// function. Positional arguments are checked by an [ArgsValidator]
// before Run. Unknown commands and flags get edit-distance suggestions.
//
// Commands that support machine-readable output embed [JSONOutput] in
// their params struct and call [JSONOutput.EmitJSON] before falling
// back to text.
package cli
