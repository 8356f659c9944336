// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports which build of nodescope is running. The
// CLI and daemon print it for --version, and the daemon includes it in
// every status response so a mismatched CLI is easy to spot.
package version
