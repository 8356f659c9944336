// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package transport

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// listenTCP creates the listening socket by hand so the backlog passed
// to listen(2) is the one requested rather than the system maximum the
// net package uses.
func listenTCP(address string, backlog int) (net.Listener, error) {
	tcpAddress, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("resolving address: %w", err)
	}

	family, sockaddr := socketAddress(tcpAddress)

	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("creating socket: %w", err)
	}
	unix.CloseOnExec(fd)

	// Matches the net package: a restarted debugger must be able to
	// rebind its port while old connections sit in TIME_WAIT.
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("setting SO_REUSEADDR: %w", err)
	}
	if err := unix.Bind(fd, sockaddr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("binding: %w", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen: %w", err)
	}

	// FileListener duplicates the descriptor; the original is closed
	// with file.
	file := os.NewFile(uintptr(fd), "tcp-listener")
	defer file.Close()
	listener, err := net.FileListener(file)
	if err != nil {
		return nil, fmt.Errorf("wrapping listener: %w", err)
	}
	return listener, nil
}

func socketAddress(address *net.TCPAddr) (int, unix.Sockaddr) {
	if address.IP == nil || address.IP.To4() != nil {
		sockaddr := &unix.SockaddrInet4{Port: address.Port}
		if ip4 := address.IP.To4(); ip4 != nil {
			copy(sockaddr.Addr[:], ip4)
		}
		return unix.AF_INET, sockaddr
	}
	sockaddr := &unix.SockaddrInet6{Port: address.Port}
	copy(sockaddr.Addr[:], address.IP.To16())
	return unix.AF_INET6, sockaddr
}
