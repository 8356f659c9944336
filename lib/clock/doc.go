// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source used by the
// debugger's aggregation and reap loops.
//
// The aggregator is a polled state machine: it ticks at a fixed
// interval, drains whatever connection workers have published, and
// returns. Driving that tick from a wall-clock ticker makes tests slow
// and racy, so every component that needs the current time or a
// periodic wakeup takes a [Clock]. Production wiring passes [Real];
// tests pass [Fake] and move time forward explicitly:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	server := debugger.NewServer(debugger.Config{Clock: fake, ...})
//	server.Start(0)
//	fake.WaitForTickers(1)          // tick goroutine registered its ticker
//	fake.Advance(40 * time.Millisecond)
//
// WaitForTickers closes the window between a goroutine creating its
// ticker and the test advancing time past the first deadline.
package clock
