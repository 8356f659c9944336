// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock is a Clock that only moves when a test calls Advance.
// Safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []alarm
	tickers []*fakeTicker

	// registered is signalled whenever the ticker set changes.
	registered *sync.Cond
}

// alarm is an outstanding After call.
type alarm struct {
	at time.Time
	ch chan time.Time
}

type fakeTicker struct {
	next     time.Time
	interval time.Duration
	ch       chan time.Time
}

// Fake returns a FakeClock reading start.
func Fake(start time.Time) *FakeClock {
	c := &FakeClock{now: start}
	c.registered = sync.NewCond(&c.mu)
	return c
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
	} else {
		c.pending = append(c.pending, alarm{at: c.now.Add(d), ch: ch})
	}
	return ch
}

func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: NewTicker interval must be positive")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ticker := &fakeTicker{next: c.now.Add(d), interval: d, ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, ticker)
	c.registered.Broadcast()
	return &Ticker{C: ticker.ch, stop: func() { c.removeTicker(ticker) }}
}

func (c *FakeClock) removeTicker(ticker *fakeTicker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tickers = slices.DeleteFunc(c.tickers, func(t *fakeTicker) bool { return t == ticker })
	c.registered.Broadcast()
}

// Advance moves the clock forward by d. Expired alarms fire before
// due tickers, each group in registration order. A ticker fires at
// most once per Advance however many intervals d spans, and drops the
// tick if its channel is still full.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now

	var fire []chan time.Time
	c.pending = slices.DeleteFunc(c.pending, func(a alarm) bool {
		if a.at.After(now) {
			return false
		}
		fire = append(fire, a.ch)
		return true
	})
	for _, ticker := range c.tickers {
		if ticker.next.After(now) {
			continue
		}
		fire = append(fire, ticker.ch)
		for !ticker.next.After(now) {
			ticker.next = ticker.next.Add(ticker.interval)
		}
	}
	c.mu.Unlock()

	for _, ch := range fire {
		select {
		case ch <- now:
		default:
		}
	}
}

// WaitForTickers blocks until at least n tickers are running. Call it
// after starting a component whose goroutine creates a ticker, so the
// first Advance is not spent before the ticker exists.
func (c *FakeClock) WaitForTickers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.tickers) < n {
		c.registered.Wait()
	}
}

// ActiveTickers returns how many tickers are running.
func (c *FakeClock) ActiveTickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}
