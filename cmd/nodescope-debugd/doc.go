// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Nodescope-debugd is the remote debugger daemon. It accepts debug
// payloads from nodes over TCP, merges the reported states into
// per-entity timelines, and serves them to the nodescope CLI over a
// local control socket.
//
// Configuration comes from --config, else the file named by
// NODESCOPE_CONFIG, else built-in defaults. Flags override the file:
//
//	nodescope-debugd --config /etc/nodescope/debugd.yaml --enable --port 5000
//
// The listener starts disabled unless debugger.enabled or --enable is
// set; "nodescope enable" starts it later. SIGINT or SIGTERM stops
// the listener, waits for in-flight connections, and exits.
package main
