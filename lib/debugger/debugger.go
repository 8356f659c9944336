// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debugger

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/nodescope/lib/wire"
)

// EventType names a Debugger event.
type EventType string

const (
	EventServerStarted      EventType = "server_started"
	EventServerStopped      EventType = "server_stopped"
	EventDisplayModeChanged EventType = "display_mode_changed"
	EventEntityUpdated      EventType = "entity_updated"
)

// Event is one notification delivered to subscribers. Fields other
// than Type are set according to the event type.
type Event struct {
	Type        EventType          `cbor:"type" json:"type"`
	SessionID   string             `cbor:"session_id,omitempty" json:"session_id,omitempty"`
	Address     string             `cbor:"address,omitempty" json:"address,omitempty"`
	DisplayMode string             `cbor:"display_mode,omitempty" json:"display_mode,omitempty"`
	UID         int64              `cbor:"uid,omitempty" json:"uid,omitempty"`
	Time        float64            `cbor:"time,omitempty" json:"time,omitempty"`
	State       *wire.StateMessage `cbor:"state,omitempty" json:"state,omitempty"`
}

// Options configures a Debugger.
type Options struct {
	// Server configures the aggregator. Its Observer field is
	// replaced by the Debugger.
	Server Config

	// Port is used by Enable(0). Default DefaultPort.
	Port int

	DisplayMode DisplayMode
}

// Debugger is the surface a viewer uses: an on/off switch around a
// Server, the display mode, queries, and an event stream.
type Debugger struct {
	server *Server
	logger *slog.Logger

	mu      sync.Mutex
	enabled bool
	port    int
	mode    DisplayMode

	subscribersMu sync.RWMutex
	subscribers   map[*Subscription]struct{}
}

// New returns a disabled Debugger.
func New(options Options) *Debugger {
	if options.Port <= 0 {
		options.Port = DefaultPort
	}
	d := &Debugger{
		port:        options.Port,
		mode:        options.DisplayMode,
		subscribers: make(map[*Subscription]struct{}),
	}
	config := options.Server
	config.Observer = debuggerObserver{d}
	d.server = NewServer(config)
	d.logger = d.server.logger
	return d
}

// Server returns the underlying aggregator, for embedders that drive
// Tick themselves.
func (d *Debugger) Server() *Server {
	return d.server
}

// Enable starts listening on port, or on the configured port when
// port is 0. Enabling an enabled debugger restarts it. An out-of-range
// port is rejected without changing anything; any other failure
// leaves the debugger disabled.
func (d *Debugger) Enable(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	d.mu.Lock()
	if port == 0 {
		port = d.port
	}
	d.mu.Unlock()

	if err := d.server.Start(port); err != nil {
		d.mu.Lock()
		d.enabled = false
		d.mu.Unlock()
		return err
	}

	d.mu.Lock()
	d.enabled = true
	d.port = port
	d.mu.Unlock()
	return nil
}

// Disable stops listening without waiting for in-flight connections.
func (d *Debugger) Disable() {
	d.mu.Lock()
	d.enabled = false
	d.mu.Unlock()
	d.server.Stop(false)
}

// Close stops listening and waits for in-flight connections to end.
// It closes every subscription.
func (d *Debugger) Close() {
	d.mu.Lock()
	d.enabled = false
	d.mu.Unlock()
	d.server.Stop(true)

	d.subscribersMu.Lock()
	for subscription := range d.subscribers {
		delete(d.subscribers, subscription)
		subscription.close()
	}
	d.subscribersMu.Unlock()
}

// Enabled reports whether the last Enable succeeded and no Disable
// followed.
func (d *Debugger) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

// Port returns the port Enable(0) would use.
func (d *Debugger) Port() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port
}

// Query returns the entity's last known state message: the latest
// when at is nil, otherwise the one in effect at *at.
func (d *Debugger) Query(uid int64, at *float64) (Entry, bool) {
	return d.server.Get(uid, at)
}

// History returns the entity's entries within [from, to].
func (d *Debugger) History(uid int64, from, to float64) []Entry {
	return d.server.History(uid, from, to)
}

// Entities summarizes every entity with a timeline.
func (d *Debugger) Entities() []EntitySummary {
	return d.server.Entities()
}

// Reset discards every timeline.
func (d *Debugger) Reset() {
	d.server.Reset()
}

// DisplayMode returns the current display mode.
func (d *Debugger) DisplayMode() DisplayMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// SetDisplayMode changes the display mode and notifies subscribers if
// it changed.
func (d *Debugger) SetDisplayMode(mode DisplayMode) {
	d.mu.Lock()
	changed := d.mode != mode
	d.mode = mode
	d.mu.Unlock()
	if !changed {
		return
	}
	d.logger.Info("display mode changed", "mode", mode.String())
	d.publish(Event{Type: EventDisplayModeChanged, DisplayMode: mode.String()})
}

// Status is a point-in-time snapshot of the debugger.
type Status struct {
	State         string  `cbor:"state" json:"state"`
	Enabled       bool    `cbor:"enabled" json:"enabled"`
	Port          int     `cbor:"port" json:"port"`
	Address       string  `cbor:"address,omitempty" json:"address,omitempty"`
	SessionID     string  `cbor:"session_id,omitempty" json:"session_id,omitempty"`
	UptimeSeconds float64 `cbor:"uptime_seconds" json:"uptime_seconds"`
	DisplayMode   string  `cbor:"display_mode" json:"display_mode"`
	Entities      int     `cbor:"entities" json:"entities"`
	Subscribers   int     `cbor:"subscribers" json:"subscribers"`
	Stats         Stats   `cbor:"stats" json:"stats"`
}

// Status returns a snapshot for status displays.
func (d *Debugger) Status() Status {
	d.mu.Lock()
	status := Status{
		Enabled:     d.enabled,
		Port:        d.port,
		DisplayMode: d.mode.String(),
	}
	d.mu.Unlock()

	state := d.server.State()
	status.State = state.String()
	status.Stats = d.server.Stats()
	status.Entities = len(d.server.Entities())
	if state == StateListening {
		session := d.server.Session()
		status.SessionID = session.ID
		status.UptimeSeconds = d.server.clock.Now().Sub(session.StartedAt).Seconds()
		if address := d.server.Addr(); address != nil {
			status.Address = address.String()
		}
	}

	d.subscribersMu.RLock()
	status.Subscribers = len(d.subscribers)
	d.subscribersMu.RUnlock()
	return status
}

// Subscription receives Debugger events. Delivery never blocks the
// debugger: when the buffer is full the event is dropped and counted.
type Subscription struct {
	debugger *Debugger
	events   chan Event

	// uids restricts entity_updated events. Nil means every entity.
	uids map[int64]struct{}

	dropped   atomic.Uint64
	closeOnce sync.Once
}

// Subscribe returns a subscription with the given channel buffer
// (minimum 1). When uids is non-empty, entity_updated events are
// delivered only for those entities; other event types are always
// delivered.
func (d *Debugger) Subscribe(buffer int, uids ...int64) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	subscription := &Subscription{
		debugger: d,
		events:   make(chan Event, buffer),
	}
	if len(uids) > 0 {
		subscription.uids = make(map[int64]struct{}, len(uids))
		for _, uid := range uids {
			subscription.uids[uid] = struct{}{}
		}
	}
	d.subscribersMu.Lock()
	d.subscribers[subscription] = struct{}{}
	d.subscribersMu.Unlock()
	return subscription
}

// Events returns the delivery channel. It is closed by Close or when
// the Debugger is closed.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Dropped returns how many events were dropped for a full buffer.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close unsubscribes and closes the event channel. It is idempotent.
func (s *Subscription) Close() {
	s.debugger.subscribersMu.Lock()
	delete(s.debugger.subscribers, s)
	s.debugger.subscribersMu.Unlock()
	s.close()
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() { close(s.events) })
}

func (s *Subscription) wants(event Event) bool {
	if event.Type != EventEntityUpdated || s.uids == nil {
		return true
	}
	_, ok := s.uids[event.UID]
	return ok
}

// publish delivers under the read lock so that Close cannot close a
// channel mid-send.
func (d *Debugger) publish(event Event) {
	d.subscribersMu.RLock()
	defer d.subscribersMu.RUnlock()
	for subscription := range d.subscribers {
		if !subscription.wants(event) {
			continue
		}
		select {
		case subscription.events <- event:
		default:
			if subscription.dropped.Add(1) == 1 {
				d.logger.Warn("subscriber too slow, dropping events", "event", string(event.Type))
			}
		}
	}
}

// debuggerObserver turns server notifications into events.
type debuggerObserver struct {
	d *Debugger
}

func (o debuggerObserver) ServerStarted(sessionID string, address net.Addr) {
	o.d.publish(Event{
		Type:      EventServerStarted,
		SessionID: sessionID,
		Address:   address.String(),
	})
}

func (o debuggerObserver) ServerStopped(sessionID string) {
	o.d.publish(Event{Type: EventServerStopped, SessionID: sessionID})
}

func (o debuggerObserver) EntityUpdated(uid int64, latest Entry) {
	state := latest.Value
	o.d.publish(Event{
		Type:  EventEntityUpdated,
		UID:   uid,
		Time:  latest.Time,
		State: &state,
	})
}

