// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debugger

import (
	"net"

	"github.com/bureau-foundation/nodescope/lib/timeline"
	"github.com/bureau-foundation/nodescope/lib/wire"
)

// Entry is one point on an entity's timeline.
type Entry = timeline.Entry[wire.StateMessage]

// Observer receives server notifications. Methods are called without
// any server lock held, from whichever goroutine caused the change
// (the Start or Stop caller, or the tick), so implementations must be
// safe for concurrent use and must not block for long.
type Observer interface {
	// ServerStarted is called after the listener is bound.
	ServerStarted(sessionID string, address net.Addr)

	// ServerStopped is called after the listener is closed and the
	// workers have been joined or handed to a coordinator.
	ServerStopped(sessionID string)

	// EntityUpdated is called once per entity per tick in which the
	// entity's timeline received at least one entry. latest is the
	// entity's newest entry after the merge, which is not necessarily
	// the one just inserted.
	EntityUpdated(uid int64, latest Entry)
}

type nopObserver struct{}

func (nopObserver) ServerStarted(string, net.Addr) {}
func (nopObserver) ServerStopped(string)           {}
func (nopObserver) EntityUpdated(int64, Entry)     {}
