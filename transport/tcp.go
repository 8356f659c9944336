// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
)

// DefaultBacklog is the listen(2) backlog used when none is given.
const DefaultBacklog = 1

// Acceptor owns a listening TCP socket and exposes accepted
// connections through a non-blocking Poll.
type Acceptor struct {
	listener net.Listener
	logger   *slog.Logger

	// accepted is unbuffered: the accept goroutine holds at most one
	// connection in hand, the rest wait in the kernel backlog.
	accepted chan net.Conn

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error

	// done is closed when the accept goroutine exits.
	done chan struct{}
}

// Listen binds address (host:port; ":0" picks a free port) with the
// given listen backlog and starts accepting. backlog <= 0 selects
// DefaultBacklog. A nil logger discards log output.
func Listen(address string, backlog int, logger *slog.Logger) (*Acceptor, error) {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	listener, err := listenTCP(address, backlog)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", address, err)
	}

	acceptor := &Acceptor{
		listener: listener,
		logger:   logger,
		accepted: make(chan net.Conn),
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go acceptor.run()
	return acceptor, nil
}

func (a *Acceptor) run() {
	defer close(a.done)
	for {
		conn, err := a.listener.Accept()
		if err != nil {
			select {
			case <-a.closed:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			a.logger.Warn("accept failed", "error", err)
			continue
		}

		select {
		case a.accepted <- conn:
		case <-a.closed:
			// Accepted but never polled: nobody owns it.
			conn.Close()
			return
		}
	}
}

// Poll returns every connection that is ready to hand over, without
// blocking. It returns nil when nothing is pending or the acceptor is
// closed.
func (a *Acceptor) Poll() []net.Conn {
	var conns []net.Conn
	for {
		select {
		case conn := <-a.accepted:
			conns = append(conns, conn)
		default:
			return conns
		}
	}
}

// Addr returns the bound address, useful when listening on port 0.
func (a *Acceptor) Addr() net.Addr {
	return a.listener.Addr()
}

// Close stops accepting and waits for the accept goroutine to exit.
// Connections already returned by Poll are unaffected. Close is
// idempotent.
func (a *Acceptor) Close() error {
	a.closeOnce.Do(func() {
		close(a.closed)
		a.closeErr = a.listener.Close()
		<-a.done
	})
	return a.closeErr
}
