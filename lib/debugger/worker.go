// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debugger

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/bureau-foundation/nodescope/lib/clock"
	"github.com/bureau-foundation/nodescope/lib/wire"
)

// errPayloadLimit ends a receive loop whose peer sent more than the
// configured maximum.
var errPayloadLimit = errors.New("payload exceeds maximum size")

// workerResult is what a worker publishes when its connection ends.
type workerResult struct {
	batch wire.Batch
	bytes int

	// digest is the hex BLAKE3 hash of the raw payload, logged so a
	// payload can be matched against a client-side capture.
	digest   string
	duration time.Duration

	// readErr is the I/O error that ended the receive loop, nil on a
	// clean close. decodeErr explains an empty batch.
	readErr   error
	decodeErr error
}

// worker owns one accepted connection.
type worker struct {
	id     uint64
	conn   net.Conn
	peer   string
	clock  clock.Clock
	logger *slog.Logger

	chunkSize   int
	maxPayload  int
	maxInflated int64

	// results holds exactly one value once the worker has finished.
	results chan workerResult

	// ready is the server-wide wake signal (capacity 1, coalescing).
	ready chan<- struct{}

	// done is closed when the goroutine exits.
	done chan struct{}
}

func startWorker(w *worker) *worker {
	w.results = make(chan workerResult, 1)
	w.done = make(chan struct{})
	go w.run()
	return w
}

func (w *worker) run() {
	defer close(w.done)

	started := w.clock.Now()
	payload, readErr := w.receive()
	if err := w.conn.Close(); err != nil {
		w.logger.Debug("closing debug connection", "peer", w.peer, "error", err)
	}

	batch, decodeErr := wire.Decode(payload, w.maxInflated)

	w.results <- workerResult{
		batch:     batch,
		bytes:     len(payload),
		digest:    wire.Digest(payload),
		duration:  w.clock.Now().Sub(started),
		readErr:   readErr,
		decodeErr: decodeErr,
	}

	select {
	case w.ready <- struct{}{}:
	default:
	}
}

// receive reads until the peer closes the connection. Any error ends
// the loop; whatever arrived before it is returned with it.
func (w *worker) receive() ([]byte, error) {
	var buffer bytes.Buffer
	chunk := make([]byte, w.chunkSize)
	for {
		n, err := w.conn.Read(chunk)
		buffer.Write(chunk[:n])
		if w.maxPayload > 0 && buffer.Len() > w.maxPayload {
			return buffer.Bytes(), fmt.Errorf("%w (%d bytes)", errPayloadLimit, w.maxPayload)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return buffer.Bytes(), nil
			}
			return buffer.Bytes(), err
		}
	}
}

// poll returns the published result without blocking.
func (w *worker) poll() (workerResult, bool) {
	select {
	case result := <-w.results:
		return result, true
	default:
		return workerResult{}, false
	}
}

// join waits for the goroutine to exit. Once poll has returned a
// result the wait is at most the few instructions after the publish.
func (w *worker) join() {
	<-w.done
}
