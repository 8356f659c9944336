// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package transport

import "net"

// listenTCP falls back to the net package, which does not expose the
// listen backlog.
func listenTCP(address string, _ int) (net.Listener, error) {
	return net.Listen("tcp", address)
}
