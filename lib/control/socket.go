// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bureau-foundation/nodescope/lib/codec"
	"github.com/bureau-foundation/nodescope/transport"
)

// ActionFunc answers one request-response action. raw is the whole
// CBOR request, action field included, for the handler to decode.
// A nil result is sent as a bare {ok: true}; an error as
// {ok: false, error}.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// StreamFunc takes over the connection for a streaming action once
// the request is read. It writes its own acknowledgement and frames
// and returns when the stream ends; the server then closes conn. ctx
// is cancelled at shutdown.
type StreamFunc func(ctx context.Context, raw []byte, conn net.Conn)

const (
	// socketMode admits the daemon's user and group.
	socketMode = 0o660

	// requestTimeout bounds the wait for a request after accept.
	requestTimeout = 30 * time.Second

	responseTimeout = 10 * time.Second

	maxRequestBytes = 64 << 10
)

// route is the handler for one action. Exactly one field is set.
type route struct {
	call   ActionFunc
	stream StreamFunc
}

// SocketServer serves the control protocol on a Unix socket. All
// routes must be registered before Serve.
type SocketServer struct {
	path   string
	logger *slog.Logger
	routes map[string]route

	connections sync.WaitGroup
	ready       chan struct{}
}

// NewSocketServer returns a server for the socket at path.
func NewSocketServer(path string, logger *slog.Logger) *SocketServer {
	return &SocketServer{
		path:   path,
		logger: logger,
		routes: make(map[string]route),
		ready:  make(chan struct{}),
	}
}

// Handle routes action to a request-response handler.
func (s *SocketServer) Handle(action string, handler ActionFunc) {
	s.add(action, route{call: handler})
}

// HandleStream routes action to a streaming handler.
func (s *SocketServer) HandleStream(action string, handler StreamFunc) {
	s.add(action, route{stream: handler})
}

func (s *SocketServer) add(action string, r route) {
	if _, taken := s.routes[action]; taken {
		panic(fmt.Sprintf("control: action %q registered twice", action))
	}
	s.routes[action] = r
}

// Ready is closed once Serve accepts connections.
func (s *SocketServer) Ready() <-chan struct{} {
	return s.ready
}

// Serve accepts connections until ctx is cancelled, then waits for
// in-flight connections to finish. The socket file exists only while
// Serve runs. A SocketServer serves once.
func (s *SocketServer) Serve(ctx context.Context) error {
	listener, err := transport.ListenUnix(s.path, socketMode)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()
	defer listener.Close()

	s.logger.Info("control socket listening", "path", s.path)
	close(s.ready)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("control socket accept failed", "error", err)
			continue
		}
		s.connections.Go(func() { s.serveConn(ctx, conn) })
	}

	s.connections.Wait()
	return nil
}

func (s *SocketServer) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	raw, action, err := readRequest(conn)
	switch {
	case errors.Is(err, io.EOF):
		return
	case err != nil:
		s.reply(conn, Response{Error: err.Error()})
		return
	}

	r, known := s.routes[action]
	switch {
	case !known:
		s.reply(conn, Response{Error: fmt.Sprintf("unknown action %q", action)})
	case r.stream != nil:
		// A stream lasts as long as the client listens.
		conn.SetDeadline(time.Time{})
		r.stream(ctx, raw, conn)
	default:
		s.reply(conn, s.call(ctx, action, r.call, raw))
	}
}

// readRequest reads one CBOR request and extracts its action. CBOR
// items are self-delimiting, so the request needs no length prefix.
func readRequest(conn net.Conn) ([]byte, string, error) {
	conn.SetReadDeadline(time.Now().Add(requestTimeout))

	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestBytes)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("invalid request: %w", err)
	}
	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		return nil, "", fmt.Errorf("invalid request: %w", err)
	}
	if header.Action == "" {
		return nil, "", errors.New("missing required field: action")
	}
	return raw, header.Action, nil
}

func (s *SocketServer) call(ctx context.Context, action string, handler ActionFunc, raw []byte) Response {
	result, err := handler(ctx, raw)
	if err != nil {
		s.logger.Debug("control action failed", "action", action, "error", err)
		return Response{Error: err.Error()}
	}
	if result == nil {
		return Response{OK: true}
	}
	data, err := codec.Marshal(result)
	if err != nil {
		return Response{Error: fmt.Sprintf("internal: encoding %s result: %v", action, err)}
	}
	return Response{OK: true, Data: data}
}

func (s *SocketServer) reply(conn net.Conn, response Response) {
	conn.SetWriteDeadline(time.Now().Add(responseTimeout))
	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("control response not delivered", "error", err)
	}
}
