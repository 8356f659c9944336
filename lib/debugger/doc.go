// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package debugger is the ingestion side of the remote debugger:
// instrumented processes connect over TCP, send one zlib-compressed
// payload of [wire] packets, and close; the debugger folds the state
// messages into per-entity timelines that can be queried for the
// latest or as-of state.
//
// # Components
//
// [Server] is the aggregator. It owns the listening socket and every
// timeline, and moves through Stopped → Starting → Listening →
// Stopping → Stopped. While listening, a periodic [Server.Tick]
// polls the acceptor for new connections, spawns one worker goroutine
// per connection, and merges the results of workers that have
// finished. Tick never blocks.
//
// A worker owns a single connection. It reads fixed-size chunks until
// the peer closes (the close is the end-of-data marker), parses the
// accumulated bytes once, and publishes the result into a private
// channel with room for exactly one value. Workers never touch shared
// state, so the timelines have a single writer: the tick.
//
// [Server.Stop] with wait=false hands the still-running workers to a
// shutdown coordinator goroutine that joins them in turn; a slower
// reap tick retires coordinators as they finish and stops itself when
// none are left.
//
// [Debugger] wraps a Server with the surface a user interface needs:
// an enabled switch, a display mode, queries, and a subscription
// stream of [Event] values.
//
// # Driving the tick
//
// With Config.TickInterval > 0 the server runs its own tick goroutine
// on Config.Clock. With TickInterval == 0 the embedder calls Tick from
// its own event loop; [Server.Ready] signals when a worker has
// published, so such a loop need not poll blindly. ReapInterval works
// the same way for [Server.Reap].
package debugger
