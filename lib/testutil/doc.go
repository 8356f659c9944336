// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive], [RequireSend] and [RequireClosed] wrap the
// select-with-timeout pattern so tests waiting on worker results or
// notification channels fail with a message instead of hanging.
// [Eventually] polls state that has no channel to wait on. These are
// the only place tests use a wall-clock timeout; everything else is
// driven by the fake clock or by explicit aggregator ticks.
//
// [SocketPath] returns a short temporary path for Unix control
// sockets, whose paths are limited to 108 bytes.
//
// Helpers call t.Fatalf on failure.
package testutil
