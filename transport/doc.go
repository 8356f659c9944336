// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport provides the TCP plumbing between instrumented
// processes and the debugger.
//
// The debugger's aggregator is a polled loop that must never block, but
// net.Listener.Accept does. [Acceptor] bridges the two: it owns the
// listening socket, runs the blocking accept in its own goroutine, and
// hands connections over one at a time through an unbuffered channel
// that [Acceptor.Poll] drains without blocking. Connections the
// aggregator has not polled yet stay queued in the kernel backlog,
// which [Listen] sets explicitly (the debugger uses a backlog of 1).
//
// [TCPDialer] is the client side, used by tools that push debug
// payloads at a running debugger. [IsPeerGone] classifies the errors a
// write sees when the other end has already hung up.
package transport
