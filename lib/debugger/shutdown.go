// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debugger

import "time"

// shutdownCoordinator joins a fixed set of workers off the tick.
type shutdownCoordinator struct {
	workers   []*worker
	startedAt time.Time

	// finished receives one value after every worker has exited.
	finished chan struct{}
}

func startShutdownCoordinator(workers []*worker, now time.Time) *shutdownCoordinator {
	coordinator := &shutdownCoordinator{
		workers:   workers,
		startedAt: now,
		finished:  make(chan struct{}, 1),
	}
	go coordinator.run()
	return coordinator
}

func (c *shutdownCoordinator) run() {
	for _, w := range c.workers {
		w.join()
	}
	c.finished <- struct{}{}
}

// poll reports, without blocking, whether every worker has exited.
// It returns true exactly once.
func (c *shutdownCoordinator) poll() bool {
	select {
	case <-c.finished:
		return true
	default:
		return false
	}
}
