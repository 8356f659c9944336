// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is what the aggregator needs from time: a reading for session
// timestamps and uptime, a tick source for the poll loop, and a
// timeout for shutdown.
type Clock interface {
	Now() time.Time

	// After is ready once d has elapsed, immediately for d <= 0.
	After(d time.Duration) <-chan time.Time

	// NewTicker panics for d <= 0, as time.NewTicker does.
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers ticks on C, a channel of capacity 1. Ticks that
// arrive while C is full are lost; the poll loop drains everything
// pending on each tick, so a missed one costs nothing.
type Ticker struct {
	C <-chan time.Time

	stop func()
}

// Stop ends delivery. C stays open.
func (t *Ticker) Stop() { t.stop() }

// Real returns the wall clock.
func Real() Clock { return wallClock{} }

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (wallClock) NewTicker(d time.Duration) *Ticker {
	inner := time.NewTicker(d)
	return &Ticker{C: inner.C, stop: inner.Stop}
}
