// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debugger

import "fmt"

// State is the aggregator's lifecycle state.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateListening
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// DisplayMode selects how a viewer presents entities. The debugger
// only stores and broadcasts it.
type DisplayMode int

const (
	// DisplayLive shows only entities reporting in the current
	// session.
	DisplayLive DisplayMode = iota

	// DisplayMixed also shows the last known state of entities that
	// are not currently active, using as-of queries.
	DisplayMixed
)

func (m DisplayMode) String() string {
	switch m {
	case DisplayLive:
		return "live"
	case DisplayMixed:
		return "mixed"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseDisplayMode parses the String form of a DisplayMode.
func ParseDisplayMode(name string) (DisplayMode, error) {
	switch name {
	case "live":
		return DisplayLive, nil
	case "mixed":
		return DisplayMixed, nil
	default:
		return 0, fmt.Errorf("unknown display mode %q (want live or mixed)", name)
	}
}
