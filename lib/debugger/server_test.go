// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debugger

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/nodescope/lib/clock"
	"github.com/bureau-foundation/nodescope/lib/testutil"
	"github.com/bureau-foundation/nodescope/lib/wire"
)

const testTimeout = 5 * time.Second

func newTestServer(t *testing.T, config Config) *Server {
	t.Helper()
	if config.Host == "" {
		config.Host = "127.0.0.1"
	}
	server := NewServer(config)
	t.Cleanup(func() { server.Stop(true) })
	return server
}

func startTestServer(t *testing.T, config Config) *Server {
	t.Helper()
	server := newTestServer(t, config)
	if err := server.Start(0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return server
}

// sendPayload connects, writes raw in full, and closes.
func sendPayload(t *testing.T, address net.Addr, raw []byte) {
	t.Helper()
	conn, err := net.Dial("tcp", address.String())
	if err != nil {
		t.Fatalf("dial %s: %v", address, err)
	}
	if _, err := conn.Write(raw); err != nil {
		conn.Close()
		t.Fatalf("write: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func encode(t *testing.T, packets ...wire.Packet) []byte {
	t.Helper()
	raw, err := wire.Encode(packets...)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return raw
}

// tickUntil drives a manually ticked server until condition holds.
func tickUntil(t *testing.T, server *Server, condition func() bool, description string) {
	t.Helper()
	deadline := time.After(testTimeout) //nolint:realclock test hang prevention
	for !condition() {
		server.Tick()
		select {
		case <-server.Ready():
		case <-time.After(5 * time.Millisecond): //nolint:realclock accept needs another tick
		case <-deadline:
			t.Fatalf("timed out waiting for %s", description)
		}
	}
}

func hasEntity(server *Server, uid int64) func() bool {
	return func() bool {
		_, ok := server.Get(uid, nil)
		return ok
	}
}

func TestServerMergesStatePackets(t *testing.T) {
	t.Parallel()

	server := startTestServer(t, Config{})
	sendPayload(t, server.Addr(), encode(t,
		wire.Packet{ID: 7, Time: 1.5, Messages: []string{"hello"}},
		wire.Packet{ID: 7, Time: 2.0, Messages: []string{wire.StateText(7, 1, "running")}},
		wire.Packet{ID: 7, Time: 3.0, Messages: []string{wire.StateText(7, 2, "idle")}},
	))
	tickUntil(t, server, hasEntity(server, 7), "entity 7")

	latest, _ := server.Get(7, nil)
	if latest.Time != 3.0 || latest.Value.State != 2 || latest.Value.Text != "idle" {
		t.Errorf("latest = %+v, want state 2 \"idle\" at 3.0", latest)
	}

	at := 2.5
	entry, ok := server.Get(7, &at)
	if !ok || entry.Time != 2.0 || entry.Value.State != 1 {
		t.Errorf("Get(7, 2.5) = %+v, %v; want state 1 at 2.0", entry, ok)
	}

	before := 1.0
	if entry, ok := server.Get(7, &before); ok {
		t.Errorf("Get(7, 1.0) = %+v, want none (plain messages are not stored)", entry)
	}

	history := server.History(7, 0, 10)
	if len(history) != 2 {
		t.Fatalf("History = %d entries, want 2", len(history))
	}
	if history[0].Time != 2.0 || history[1].Time != 3.0 {
		t.Errorf("History times = %v, %v; want 2.0, 3.0", history[0].Time, history[1].Time)
	}

	stats := server.Stats()
	if stats.ConnectionsAccepted != 1 || stats.BatchesMerged != 1 {
		t.Errorf("stats = %+v, want one connection and one batch", stats)
	}
	if stats.Records != 3 || stats.PlainMessages != 1 || stats.StateMessages != 2 {
		t.Errorf("stats = %+v, want 3 records, 1 plain, 2 state", stats)
	}
	if stats.ActiveWorkers != 0 {
		t.Errorf("ActiveWorkers = %d after merge, want 0", stats.ActiveWorkers)
	}
}

func TestServerLastValidStateInRecordWins(t *testing.T) {
	t.Parallel()

	server := startTestServer(t, Config{})
	sendPayload(t, server.Addr(), encode(t, wire.Packet{
		ID:   4,
		Time: 1,
		Messages: []string{
			wire.StateText(4, 1, "first"),
			wire.StateText(4, 2, "second"),
			wire.MarkerState + "not,a,valid,triple",
		},
	}))
	tickUntil(t, server, hasEntity(server, 4), "entity 4")

	latest, _ := server.Get(4, nil)
	if latest.Value.State != 2 || latest.Value.Text != "second" {
		t.Errorf("latest = %+v, want the second state message", latest.Value)
	}
	if got := server.Stats().InvalidStateMessages; got != 1 {
		t.Errorf("InvalidStateMessages = %d, want 1", got)
	}
}

func TestServerConcurrentClients(t *testing.T) {
	t.Parallel()

	const clients = 8
	// A backlog of one makes the kernel drop most of the simultaneous
	// SYNs and the test wait on retransmits.
	server := startTestServer(t, Config{Backlog: clients})
	address := server.Addr()

	payloads := make([][]byte, clients)
	for index := range payloads {
		uid := int64(index + 1)
		payloads[index] = encode(t, wire.Packet{
			ID:       uid,
			Time:     float64(index),
			Messages: []string{wire.StateText(uid, 1, "")},
		})
	}

	var group sync.WaitGroup
	errs := make(chan error, clients)
	for _, raw := range payloads {
		group.Add(1)
		go func() {
			defer group.Done()
			conn, err := net.Dial("tcp", address.String())
			if err != nil {
				errs <- err
				return
			}
			defer conn.Close()
			if _, err := conn.Write(raw); err != nil {
				errs <- err
			}
		}()
	}

	tickUntil(t, server, func() bool { return len(server.Entities()) == clients }, "all clients")
	group.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("client: %v", err)
	}

	for index, summary := range server.Entities() {
		if summary.UID != int64(index+1) {
			t.Errorf("Entities()[%d].UID = %d, want %d", index, summary.UID, index+1)
		}
		if summary.Entries != 1 {
			t.Errorf("entity %d has %d entries, want 1", summary.UID, summary.Entries)
		}
	}
}

func TestServerStopWaitsForWorkers(t *testing.T) {
	t.Parallel()

	server := startTestServer(t, Config{})
	address := server.Addr()
	port := address.(*net.TCPAddr).Port

	conn, err := net.Dial("tcp", address.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if _, err := conn.Write([]byte("partial")); err != nil {
		t.Fatalf("write: %v", err)
	}
	tickUntil(t, server, func() bool { return server.Stats().ActiveWorkers == 1 }, "worker spawn")

	stopped := make(chan struct{})
	go func() {
		server.Stop(true)
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop(true) returned while a worker was still reading")
	case <-time.After(50 * time.Millisecond): //nolint:realclock checking that Stop blocks
	}

	conn.Close()
	testutil.RequireClosed(t, stopped, testTimeout, "Stop(true) after client close")

	if state := server.State(); state != StateStopped {
		t.Fatalf("state = %v, want stopped", state)
	}
	if server.Addr() != nil {
		t.Error("Addr() non-nil after Stop")
	}
	if entities := server.Entities(); len(entities) != 0 {
		t.Errorf("discarded payload was merged: %v", entities)
	}
	if got := server.Stats().DiscardedWorkers; got != 1 {
		t.Errorf("DiscardedWorkers = %d, want 1", got)
	}

	if err := server.Start(port); err != nil {
		t.Fatalf("restart on port %d: %v", port, err)
	}
	if state := server.State(); state != StateListening {
		t.Errorf("state after restart = %v, want listening", state)
	}
}

func TestServerStopWithoutWaitHandsOffWorkers(t *testing.T) {
	t.Parallel()

	server := startTestServer(t, Config{})

	conn, err := net.Dial("tcp", server.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if _, err := conn.Write([]byte("partial")); err != nil {
		t.Fatalf("write: %v", err)
	}
	tickUntil(t, server, func() bool { return server.Stats().ActiveWorkers == 1 }, "worker spawn")

	server.Stop(false)

	if state := server.State(); state != StateStopped {
		t.Fatalf("state = %v, want stopped", state)
	}
	if pending := server.Reap(); pending != 1 {
		t.Fatalf("Reap() = %d with the client still connected, want 1", pending)
	}

	conn.Close()

	deadline := time.After(testTimeout) //nolint:realclock test hang prevention
	for server.Reap() != 0 {
		select {
		case <-deadline:
			t.Fatal("coordinator never finished")
		case <-time.After(5 * time.Millisecond): //nolint:realclock polling coordinator
		}
	}
	if got := server.Stats().PendingShutdowns; got != 0 {
		t.Errorf("PendingShutdowns = %d, want 0", got)
	}
}

func TestServerReaperStartsOnNonWaitingStop(t *testing.T) {
	t.Parallel()

	fake := clock.Fake(time.Unix(1700000000, 0))
	server := startTestServer(t, Config{Clock: fake, ReapInterval: DefaultReapInterval})

	conn, err := net.Dial("tcp", server.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	tickUntil(t, server, func() bool { return server.Stats().ActiveWorkers == 1 }, "worker spawn")

	server.Stop(false)
	fake.WaitForTickers(1)

	// A second non-waiting stop with nothing in flight must not start
	// another reaper.
	if err := server.Start(0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	server.Stop(false)
	if got := fake.ActiveTickers(); got != 1 {
		t.Errorf("ActiveTickers = %d, want 1 reaper", got)
	}
}

func TestServerStartFailureStaysStopped(t *testing.T) {
	t.Parallel()

	occupied, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("occupy port: %v", err)
	}
	defer occupied.Close()
	port := occupied.Addr().(*net.TCPAddr).Port

	observer := newRecordingObserver()
	server := newTestServer(t, Config{Observer: observer})
	if err := server.Start(port); err == nil {
		t.Fatalf("Start on occupied port %d succeeded", port)
	}
	if state := server.State(); state != StateStopped {
		t.Errorf("state = %v, want stopped", state)
	}
	if observer.count("started") != 0 {
		t.Error("ServerStarted called after a failed start")
	}

	// Tick and Stop on a stopped server are no-ops.
	server.Tick()
	server.Stop(false)
	if observer.count("stopped") != 0 {
		t.Error("ServerStopped called for a server that never started")
	}
}

func TestServerStartRejectsInvalidPort(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, Config{})
	for _, port := range []int{-1, 65536} {
		if err := server.Start(port); !errors.Is(err, ErrInvalidPort) {
			t.Errorf("Start(%d) = %v, want ErrInvalidPort", port, err)
		}
	}
}

func TestServerStartWhileListeningRestarts(t *testing.T) {
	t.Parallel()

	observer := newRecordingObserver()
	server := startTestServer(t, Config{Observer: observer})
	first := server.Session().ID

	if err := server.Start(0); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	second := server.Session().ID
	if first == "" || second == "" || first == second {
		t.Errorf("session IDs %q then %q, want two distinct IDs", first, second)
	}
	if got := observer.count("stopped"); got != 1 {
		t.Errorf("ServerStopped called %d times, want 1", got)
	}
	if got := observer.count("started"); got != 2 {
		t.Errorf("ServerStarted called %d times, want 2", got)
	}
}

func TestServerMalformedPayload(t *testing.T) {
	t.Parallel()

	server := startTestServer(t, Config{})
	sendPayload(t, server.Addr(), []byte("this is not zlib"))
	tickUntil(t, server, func() bool { return server.Stats().BatchesMerged == 1 }, "merge")

	stats := server.Stats()
	if stats.EmptyPayloads != 1 || stats.DecodeErrors != 1 {
		t.Errorf("stats = %+v, want one empty payload from a decode error", stats)
	}
	if len(server.Entities()) != 0 {
		t.Errorf("Entities = %v, want none", server.Entities())
	}
}

func TestServerResetDiscardsTimelines(t *testing.T) {
	t.Parallel()

	server := startTestServer(t, Config{})
	sendPayload(t, server.Addr(), encode(t, wire.Packet{
		ID: 3, Time: 1, Messages: []string{wire.StateText(3, 9, "")},
	}))
	tickUntil(t, server, hasEntity(server, 3), "entity 3")

	server.Reset()
	if _, ok := server.Get(3, nil); ok {
		t.Error("entity survived Reset")
	}
	if state := server.State(); state != StateListening {
		t.Errorf("state after Reset = %v, want listening", state)
	}
}

func TestServerTicksOnClock(t *testing.T) {
	t.Parallel()

	fake := clock.Fake(time.Unix(1700000000, 0))
	observer := newRecordingObserver()
	server := startTestServer(t, Config{
		Clock:        fake,
		TickInterval: DefaultTickInterval,
		Observer:     observer,
	})
	fake.WaitForTickers(1)

	sendPayload(t, server.Addr(), encode(t, wire.Packet{
		ID: 11, Time: 0.25, Messages: []string{wire.StateText(11, 5, "ticking")},
	}))

	deadline := time.After(testTimeout) //nolint:realclock test hang prevention
	for {
		fake.Advance(DefaultTickInterval)
		select {
		case uid := <-observer.updated:
			if uid != 11 {
				t.Fatalf("EntityUpdated(%d), want 11", uid)
			}
			entry, ok := server.Get(11, nil)
			if !ok || entry.Value.Text != "ticking" {
				t.Fatalf("Get(11) = %+v, %v", entry, ok)
			}
			return
		case <-deadline:
			t.Fatal("entity never merged by the tick goroutine")
		case <-time.After(5 * time.Millisecond): //nolint:realclock let the tick run
		}
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	for state, want := range map[State]string{
		StateStopped:   "stopped",
		StateStarting:  "starting",
		StateListening: "listening",
		StateStopping:  "stopping",
		State(42):      "unknown(42)",
	} {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}

// recordingObserver counts lifecycle calls and forwards entity
// updates on a channel.
type recordingObserver struct {
	mu      sync.Mutex
	calls   map[string]int
	updated chan int64
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		calls:   make(map[string]int),
		updated: make(chan int64, 64),
	}
}

func (o *recordingObserver) record(name string) {
	o.mu.Lock()
	o.calls[name]++
	o.mu.Unlock()
}

func (o *recordingObserver) count(name string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls[name]
}

func (o *recordingObserver) ServerStarted(sessionID string, address net.Addr) {
	o.record("started")
}

func (o *recordingObserver) ServerStopped(sessionID string) {
	o.record("stopped")
}

func (o *recordingObserver) EntityUpdated(uid int64, latest Entry) {
	o.record(fmt.Sprintf("updated:%d", uid))
	o.updated <- uid
}
