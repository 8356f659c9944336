// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"time"

	"github.com/bureau-foundation/nodescope/lib/clock"
	"github.com/bureau-foundation/nodescope/lib/codec"
	"github.com/bureau-foundation/nodescope/lib/debugger"
	"github.com/bureau-foundation/nodescope/lib/version"
	"github.com/bureau-foundation/nodescope/transport"
)

const (
	// DefaultHeartbeatInterval is the watch heartbeat period when the
	// service is given none.
	DefaultHeartbeatInterval = 5 * time.Second

	// defaultWatchBuffer is the per-watcher event buffer. At the
	// default tick rate one entity update per tick fills it in under
	// three seconds of a stalled reader.
	defaultWatchBuffer = 64

	maxWatchBuffer = 4096
)

// Service binds debugger operations to control actions.
type Service struct {
	debugger          *debugger.Debugger
	clock             clock.Clock
	logger            *slog.Logger
	heartbeatInterval time.Duration
}

// ServiceConfig configures a Service. Zero values pick defaults.
type ServiceConfig struct {
	Clock             clock.Clock
	Logger            *slog.Logger
	HeartbeatInterval time.Duration
}

// NewService returns a Service for d.
func NewService(d *debugger.Debugger, config ServiceConfig) *Service {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = DefaultHeartbeatInterval
	}
	return &Service{
		debugger:          d,
		clock:             config.Clock,
		logger:            config.Logger,
		heartbeatInterval: config.HeartbeatInterval,
	}
}

// Register installs every action on server.
func (s *Service) Register(server *SocketServer) {
	server.Handle(ActionStatus, s.handleStatus)
	server.Handle(ActionEnable, s.handleEnable)
	server.Handle(ActionDisable, s.handleDisable)
	server.Handle(ActionQuery, s.handleQuery)
	server.Handle(ActionHistory, s.handleHistory)
	server.Handle(ActionEntities, s.handleEntities)
	server.Handle(ActionMode, s.handleMode)
	server.Handle(ActionReset, s.handleReset)
	server.HandleStream(ActionWatch, s.handleWatch)
}

func (s *Service) status() StatusResponse {
	return StatusResponse{
		Debugger: s.debugger.Status(),
		Build:    version.Current(),
	}
}

func (s *Service) handleStatus(ctx context.Context, raw []byte) (any, error) {
	return s.status(), nil
}

func (s *Service) handleEnable(ctx context.Context, raw []byte) (any, error) {
	var request EnableRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid enable request: %w", err)
	}
	if err := s.debugger.Enable(request.Port); err != nil {
		return nil, err
	}
	return s.status(), nil
}

func (s *Service) handleDisable(ctx context.Context, raw []byte) (any, error) {
	s.debugger.Disable()
	return s.status(), nil
}

func (s *Service) handleQuery(ctx context.Context, raw []byte) (any, error) {
	var request QueryRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid query request: %w", err)
	}
	entry, found := s.debugger.Query(request.UID, request.At)
	if !found {
		return QueryResponse{}, nil
	}
	return QueryResponse{Found: true, Entry: &entry}, nil
}

func (s *Service) handleHistory(ctx context.Context, raw []byte) (any, error) {
	var request HistoryRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid history request: %w", err)
	}
	from, to := math.Inf(-1), math.Inf(1)
	if request.From != nil {
		from = *request.From
	}
	if request.To != nil {
		to = *request.To
	}
	if from > to {
		return nil, fmt.Errorf("history range is empty: from %v is after to %v", from, to)
	}
	entries := s.debugger.History(request.UID, from, to)
	if entries == nil {
		entries = []debugger.Entry{}
	}
	return entries, nil
}

func (s *Service) handleEntities(ctx context.Context, raw []byte) (any, error) {
	return s.debugger.Entities(), nil
}

func (s *Service) handleMode(ctx context.Context, raw []byte) (any, error) {
	var request ModeRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid mode request: %w", err)
	}
	if request.Mode != "" {
		mode, err := debugger.ParseDisplayMode(request.Mode)
		if err != nil {
			return nil, err
		}
		s.debugger.SetDisplayMode(mode)
	}
	return ModeResponse{Mode: s.debugger.DisplayMode().String()}, nil
}

func (s *Service) handleReset(ctx context.Context, raw []byte) (any, error) {
	s.debugger.Reset()
	return nil, nil
}

// handleWatch streams debugger events to one client:
//
//	Server → Client: StreamAck{OK: true}
//	Server → Client: Frame{Type: "event", Event: ...}
//	Server → Client: Frame{Type: "heartbeat", Dropped: n}   (periodic)
//
// The stream ends when the client disconnects, the server shuts down,
// or the debugger is closed.
func (s *Service) handleWatch(ctx context.Context, raw []byte, conn net.Conn) {
	encoder := codec.NewEncoder(conn)

	var request WatchRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		encoder.Encode(StreamAck{Error: fmt.Sprintf("invalid watch request: %v", err)})
		return
	}
	buffer := request.Buffer
	if buffer <= 0 {
		buffer = defaultWatchBuffer
	}
	buffer = min(buffer, maxWatchBuffer)

	// Subscribe before acknowledging so that nothing published after
	// the client sees the ack is missed.
	subscription := s.debugger.Subscribe(buffer, request.UIDs...)
	defer subscription.Close()

	if err := encoder.Encode(StreamAck{OK: true}); err != nil {
		s.logger.Debug("watch: failed to write ack", "error", err)
		return
	}
	s.logger.Info("watch stream started", "uids", request.UIDs, "buffer", buffer)
	defer func() {
		s.logger.Info("watch stream ended", "dropped", subscription.Dropped())
	}()

	// The client sends nothing after the request; a read returning
	// means it went away.
	clientGone := make(chan struct{})
	go func() {
		var discard [1]byte
		conn.Read(discard[:])
		close(clientGone)
	}()

	handlerDone := make(chan struct{})
	defer close(handlerDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-handlerDone:
		}
	}()

	heartbeat := s.clock.NewTicker(s.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-subscription.Events():
			if !ok {
				return
			}
			if err := encoder.Encode(Frame{Type: FrameEvent, Event: &event}); err != nil {
				s.logWriteError("event", err)
				return
			}

		case <-heartbeat.C:
			if err := encoder.Encode(Frame{Type: FrameHeartbeat, Dropped: subscription.Dropped()}); err != nil {
				s.logWriteError("heartbeat", err)
				return
			}

		case <-clientGone:
			return

		case <-ctx.Done():
			return
		}
	}
}

// logWriteError reports a failed stream write. A watcher that left is
// routine; anything else is worth a warning.
func (s *Service) logWriteError(frame string, err error) {
	if transport.IsPeerGone(err) {
		s.logger.Debug("watch: client gone", "frame", frame, "error", err)
		return
	}
	s.logger.Warn("watch: failed to write frame", "frame", frame, "error", err)
}
