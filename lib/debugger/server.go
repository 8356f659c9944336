// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debugger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/nodescope/lib/clock"
	"github.com/bureau-foundation/nodescope/lib/timeline"
	"github.com/bureau-foundation/nodescope/lib/wire"
	"github.com/bureau-foundation/nodescope/transport"
)

const (
	DefaultPort            = 4447
	DefaultReadChunkSize   = 32
	DefaultMaxPayloadBytes = 64 << 20
	DefaultTickInterval    = 40 * time.Millisecond
	DefaultReapInterval    = 500 * time.Millisecond
)

// ErrInvalidPort is returned by Start for a port outside 0-65535.
var ErrInvalidPort = errors.New("invalid port")

// Config configures a Server. Zero values select the defaults noted
// on each field, except the two intervals: zero there means the
// embedder calls Tick or Reap itself.
type Config struct {
	// Host to bind. Empty binds every IPv4 interface.
	Host string

	// Backlog for listen(2). Default transport.DefaultBacklog.
	Backlog int

	// ReadChunkSize is the per-read buffer of each worker. Default
	// DefaultReadChunkSize.
	ReadChunkSize int

	// MaxPayloadBytes caps the compressed bytes read from one
	// connection. Default DefaultMaxPayloadBytes; negative disables
	// the cap.
	MaxPayloadBytes int

	// MaxInflatedBytes caps the decompressed size of one payload.
	// Default wire.DefaultMaxInflatedSize.
	MaxInflatedBytes int64

	TickInterval time.Duration
	ReapInterval time.Duration

	// Clock drives the tick and reap tickers. Default clock.Real().
	Clock clock.Clock

	// Logger receives lifecycle and per-connection logs. Nil discards.
	Logger *slog.Logger

	// Observer receives notifications. Nil ignores them.
	Observer Observer
}

func (c Config) withDefaults() Config {
	if c.Backlog <= 0 {
		c.Backlog = transport.DefaultBacklog
	}
	if c.ReadChunkSize <= 0 {
		c.ReadChunkSize = DefaultReadChunkSize
	}
	if c.MaxPayloadBytes == 0 {
		c.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	if c.MaxInflatedBytes <= 0 {
		c.MaxInflatedBytes = wire.DefaultMaxInflatedSize
	}
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.Observer == nil {
		c.Observer = nopObserver{}
	}
	return c
}

// Server is the aggregator: it accepts debug connections, runs one
// worker per connection, and merges finished workers' batches into
// per-entity timelines of state messages.
type Server struct {
	config Config
	logger *slog.Logger
	clock  clock.Clock

	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex

	// tickStop and tickDone belong to the tick goroutine of the
	// current session. Guarded by lifecycle.
	tickStop chan struct{}
	tickDone chan struct{}

	// ready is poked by workers after publishing.
	ready chan struct{}

	// mu guards everything below.
	mu           sync.Mutex
	state        State
	acceptor     *transport.Acceptor
	sessionID    string
	startedAt    time.Time
	port         int
	workers      []*worker
	nextWorkerID uint64
	coordinators []*shutdownCoordinator
	reaping      bool
	store        *timeline.Store[wire.StateMessage]
	stats        Stats
}

// NewServer returns a stopped Server.
func NewServer(config Config) *Server {
	config = config.withDefaults()
	return &Server{
		config: config,
		logger: config.Logger,
		clock:  config.Clock,
		ready:  make(chan struct{}, 1),
		store:  timeline.NewStore[wire.StateMessage](),
	}
}

// Start binds the listener on port and begins accepting. A server
// that is already listening is first stopped with Stop(true). On
// bind failure the server stays stopped and the error is returned;
// the caller decides whether that matters. An out-of-range port is
// rejected before anything changes, so a listening server keeps
// listening.
func (s *Server) Start(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.State() == StateListening {
		s.stopLocked(true)
	}

	s.setState(StateStarting)

	address := net.JoinHostPort(s.config.Host, strconv.Itoa(port))
	acceptor, err := transport.Listen(address, s.config.Backlog, s.logger)
	if err != nil {
		s.setState(StateStopped)
		s.logger.Error("debug server failed to start", "address", address, "error", err)
		return fmt.Errorf("starting debug server: %w", err)
	}

	sessionID := uuid.NewString()

	s.mu.Lock()
	s.acceptor = acceptor
	s.sessionID = sessionID
	s.startedAt = s.clock.Now()
	s.port = port
	s.state = StateListening
	s.mu.Unlock()

	if s.config.TickInterval > 0 {
		s.tickStop = make(chan struct{})
		s.tickDone = make(chan struct{})
		go s.runTicks(s.tickStop, s.tickDone)
	}

	s.logger.Info("debug server listening",
		"address", acceptor.Addr().String(),
		"session_id", sessionID,
		"backlog", s.config.Backlog,
	)
	s.config.Observer.ServerStarted(sessionID, acceptor.Addr())
	return nil
}

// Stop closes the listener and stops the tick. With wait, it then
// joins every active worker before returning. Without wait, the
// active workers are handed to a shutdown coordinator and Stop
// returns immediately. Either way, results from connections still
// being read are discarded. Stop on a server that is not listening
// does nothing.
func (s *Server) Stop(wait bool) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stopLocked(wait)
}

// stopLocked is Stop with lifecycle held.
func (s *Server) stopLocked(wait bool) {
	s.mu.Lock()
	if s.state != StateListening {
		s.mu.Unlock()
		return
	}
	s.state = StateStopping
	acceptor := s.acceptor
	s.acceptor = nil
	workers := s.workers
	s.workers = nil
	sessionID := s.sessionID
	s.stats.DiscardedWorkers += uint64(len(workers))
	s.mu.Unlock()

	if err := acceptor.Close(); err != nil {
		s.logger.Warn("closing debug listener", "session_id", sessionID, "error", err)
	}

	// The tick goroutine may be waiting on mu; it must be released
	// before waiting for the goroutine to exit.
	if s.tickStop != nil {
		close(s.tickStop)
		<-s.tickDone
		s.tickStop, s.tickDone = nil, nil
	}

	if wait {
		for _, w := range workers {
			w.join()
			s.discard(w)
		}
	} else if len(workers) > 0 {
		coordinator := startShutdownCoordinator(workers, s.clock.Now())
		s.mu.Lock()
		s.coordinators = append(s.coordinators, coordinator)
		startReaper := !s.reaping && s.config.ReapInterval > 0
		if startReaper {
			s.reaping = true
		}
		s.mu.Unlock()
		if startReaper {
			go s.runReaper()
		}
	}

	s.setState(StateStopped)
	s.logger.Info("debug server stopped",
		"session_id", sessionID,
		"wait", wait,
		"discarded_workers", len(workers),
	)
	s.config.Observer.ServerStopped(sessionID)
}

// discard logs the result of a worker joined at stop time.
func (s *Server) discard(w *worker) {
	result, ok := w.poll()
	if !ok {
		return
	}
	s.logger.Debug("discarding debug payload received during shutdown",
		"worker", w.id,
		"peer", w.peer,
		"bytes", result.bytes,
		"packets", result.batch.Packets(),
	)
}

// Tick performs one aggregation step: hand newly accepted connections
// to workers, then merge and retire every worker that has finished.
// Tick never blocks on I/O and does nothing unless listening.
func (s *Server) Tick() {
	s.mu.Lock()
	if s.state != StateListening {
		s.mu.Unlock()
		return
	}

	for _, conn := range s.acceptor.Poll() {
		s.spawnLocked(conn)
	}

	touched := make(map[int64]struct{})
	remaining := make([]*worker, 0, len(s.workers))
	for _, w := range s.workers {
		result, ok := w.poll()
		if !ok {
			remaining = append(remaining, w)
			continue
		}
		s.mergeLocked(w, result, touched)
		w.join()
	}
	s.workers = remaining

	updates := make([]int64, 0, len(touched))
	for uid := range touched {
		updates = append(updates, uid)
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i] < updates[j] })
	latest := make([]Entry, len(updates))
	for index, uid := range updates {
		latest[index], _ = s.store.Latest(uid)
	}
	s.mu.Unlock()

	for index, uid := range updates {
		s.config.Observer.EntityUpdated(uid, latest[index])
	}
}

func (s *Server) spawnLocked(conn net.Conn) {
	s.nextWorkerID++
	s.stats.ConnectionsAccepted++
	w := startWorker(&worker{
		id:          s.nextWorkerID,
		conn:        conn,
		peer:        conn.RemoteAddr().String(),
		clock:       s.clock,
		logger:      s.logger,
		chunkSize:   s.config.ReadChunkSize,
		maxPayload:  s.config.MaxPayloadBytes,
		maxInflated: s.config.MaxInflatedBytes,
		ready:       s.ready,
	})
	s.workers = append(s.workers, w)
	s.logger.Debug("debug connection accepted", "worker", w.id, "peer", w.peer)
}

// mergeLocked folds one worker's batch into the store. For each
// record, the last valid state message is inserted at the record's
// time; plain and malformed state messages are only counted.
func (s *Server) mergeLocked(w *worker, result workerResult, touched map[int64]struct{}) {
	s.stats.BatchesMerged++
	s.stats.BytesReceived += uint64(result.bytes)
	if result.readErr != nil {
		s.stats.ReadErrors++
	}
	if result.decodeErr != nil {
		s.stats.DecodeErrors++
	}
	if len(result.batch) == 0 {
		s.stats.EmptyPayloads++
	}

	inserted := 0
	for uid, records := range result.batch {
		for _, record := range records {
			s.stats.Records++
			s.stats.PlainMessages += uint64(len(record.Messages.Plain))
			for _, message := range record.Messages.State {
				s.stats.StateMessages++
				if !message.Valid {
					s.stats.InvalidStateMessages++
					s.logger.Debug("malformed state message",
						"worker", w.id,
						"entity", uid,
						"time", record.Time,
						"raw", message.Raw,
					)
				}
			}
			state, ok := record.Messages.LastValidState()
			if !ok {
				continue
			}
			s.store.Insert(uid, record.Time, state)
			touched[uid] = struct{}{}
			inserted++
		}
	}

	attributes := []any{
		"worker", w.id,
		"peer", w.peer,
		"bytes", result.bytes,
		"digest", result.digest,
		"entities", len(result.batch),
		"packets", result.batch.Packets(),
		"inserted", inserted,
		"duration", result.duration,
	}
	if result.readErr != nil {
		attributes = append(attributes, "read_error", result.readErr)
	}
	if result.decodeErr != nil {
		attributes = append(attributes, "decode_error", result.decodeErr)
	}
	if result.readErr != nil || result.decodeErr != nil {
		s.logger.Warn("debug payload merged with errors", attributes...)
		return
	}
	s.logger.Info("debug payload merged", attributes...)
}

func (s *Server) runTicks(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := s.clock.NewTicker(s.config.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Tick()
		case <-stop:
			return
		}
	}
}

func (s *Server) runReaper() {
	ticker := s.clock.NewTicker(s.config.ReapInterval)
	defer ticker.Stop()
	for range ticker.C {
		s.mu.Lock()
		s.reapLocked()
		if len(s.coordinators) == 0 {
			s.reaping = false
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
}

// Reap retires every shutdown coordinator whose workers have all
// exited and returns how many are still pending.
func (s *Server) Reap() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reapLocked()
	return len(s.coordinators)
}

func (s *Server) reapLocked() {
	pending := s.coordinators[:0]
	for _, coordinator := range s.coordinators {
		if !coordinator.poll() {
			pending = append(pending, coordinator)
			continue
		}
		s.logger.Debug("shutdown coordinator finished",
			"workers", len(coordinator.workers),
			"elapsed", s.clock.Now().Sub(coordinator.startedAt),
		)
	}
	clear(s.coordinators[len(pending):])
	s.coordinators = pending
}

// Ready is signaled (coalescing) whenever a worker publishes a result.
// Embedders that drive Tick themselves can select on it.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

func (s *Server) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Addr returns the bound listener address, or nil when not listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acceptor == nil {
		return nil
	}
	return s.acceptor.Addr()
}

// Session describes the current or most recent listening period.
type Session struct {
	ID        string
	Port      int
	StartedAt time.Time
}

// Session returns the current or most recent session. The zero value
// means the server has never listened.
func (s *Server) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Session{ID: s.sessionID, Port: s.port, StartedAt: s.startedAt}
}

// Stats returns a snapshot of the counters.
func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := s.stats
	stats.ActiveWorkers = len(s.workers)
	stats.PendingShutdowns = len(s.coordinators)
	return stats
}

// Get returns the entity's latest state message when at is nil, and
// the state as of *at otherwise.
func (s *Server) Get(uid int64, at *float64) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(uid, at)
}

// History returns the entity's entries with from <= time <= to in
// ascending time order.
func (s *Server) History(uid int64, from, to float64) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []Entry
	s.store.Range(uid, from, to, func(entry Entry) bool {
		entries = append(entries, entry)
		return true
	})
	return entries
}

// EntitySummary describes one entity's timeline.
type EntitySummary struct {
	UID     int64 `cbor:"uid" json:"uid"`
	Entries int   `cbor:"entries" json:"entries"`
	Latest  Entry `cbor:"latest" json:"latest"`
}

// Entities summarizes every entity with a timeline, by ascending uid.
func (s *Server) Entities() []EntitySummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	uids := s.store.Entities()
	summaries := make([]EntitySummary, 0, len(uids))
	for _, uid := range uids {
		latest, _ := s.store.Latest(uid)
		summaries = append(summaries, EntitySummary{
			UID:     uid,
			Entries: s.store.Len(uid),
			Latest:  latest,
		})
	}
	return summaries
}

// Reset discards every timeline. The listener and workers are not
// affected; payloads merged afterwards start fresh timelines.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := s.store.Count()
	s.store.Reset()
	s.logger.Info("timelines reset", "entities", dropped)
}
