// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"net"
	"time"
)

// Dialer opens connections to a debugger's listening address.
type Dialer interface {
	DialContext(ctx context.Context, address string) (net.Conn, error)
}

// Compile-time interface check.
var _ Dialer = (*TCPDialer)(nil)

// TCPDialer opens TCP connections to a debugger.
type TCPDialer struct {
	// Timeout bounds connection establishment. Zero means only the
	// context deadline applies.
	Timeout time.Duration
}

// DialContext opens a TCP connection to address (host:port).
func (d *TCPDialer) DialContext(ctx context.Context, address string) (net.Conn, error) {
	return (&net.Dialer{Timeout: d.Timeout}).DialContext(ctx, "tcp", address)
}
