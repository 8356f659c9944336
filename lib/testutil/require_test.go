// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// recordingT captures the first failure. Fatalf panics so that the
// helper stops the way testing.T.FailNow would.
type recordingT struct {
	failure string
}

type fatal struct{}

func (r *recordingT) Helper() {}

func (r *recordingT) Fatalf(format string, args ...any) {
	r.failure = fmt.Sprintf(format, args...)
	panic(fatal{})
}

// capture runs fn and returns the failure message, if any.
func capture(fn func(t T)) (failure string) {
	recorder := &recordingT{}
	defer func() {
		if recovered := recover(); recovered != nil {
			if _, ok := recovered.(fatal); !ok {
				panic(recovered)
			}
		}
		failure = recorder.failure
	}()
	fn(recorder)
	return ""
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 42
	if got := RequireReceive(t, ch, time.Second, "buffered value"); got != 42 {
		t.Errorf("RequireReceive = %d, want 42", got)
	}

	failure := capture(func(t T) {
		RequireReceive(t, make(chan int), 10*time.Millisecond, "waiting for %s", "nothing")
	})
	if !strings.Contains(failure, "timed out") || !strings.Contains(failure, "waiting for nothing") {
		t.Errorf("timeout failure = %q", failure)
	}

	closed := make(chan int)
	close(closed)
	failure = capture(func(t T) {
		RequireReceive(t, closed, time.Second, "closed channel")
	})
	if !strings.Contains(failure, "channel closed") {
		t.Errorf("closed channel failure = %q", failure)
	}
}

func TestRequireSend(t *testing.T) {
	ch := make(chan string, 1)
	RequireSend(t, ch, "hello", time.Second, "buffered send")
	if got := <-ch; got != "hello" {
		t.Errorf("received %q", got)
	}

	failure := capture(func(t T) {
		RequireSend(t, make(chan string), "stuck", 10*time.Millisecond)
	})
	if !strings.Contains(failure, "(no message)") {
		t.Errorf("send failure = %q", failure)
	}
}

func TestRequireClosed(t *testing.T) {
	done := make(chan struct{})
	close(done)
	RequireClosed(t, done, time.Second, "closed")

	failure := capture(func(t T) {
		RequireClosed(t, make(chan struct{}), 10*time.Millisecond, "never closed")
	})
	if !strings.Contains(failure, "never closed") {
		t.Errorf("failure = %q", failure)
	}
}

func TestEventually(t *testing.T) {
	calls := 0
	Eventually(t, time.Second, time.Millisecond, func() bool {
		calls++
		return calls == 3
	}, "third call")
	if calls != 3 {
		t.Errorf("condition called %d times, want 3", calls)
	}

	failure := capture(func(t T) {
		Eventually(t, 20*time.Millisecond, time.Millisecond, func() bool { return false }, "never")
	})
	if !strings.Contains(failure, "condition not met") {
		t.Errorf("failure = %q", failure)
	}
}

func TestSocketPath(t *testing.T) {
	path := SocketPath(t, "control.sock")
	if !strings.HasPrefix(path, "/tmp/nodescope-") || filepath.Base(path) != "control.sock" {
		t.Errorf("SocketPath = %q", path)
	}
	if len(path) >= 108 {
		t.Errorf("SocketPath = %q is too long for sun_path", path)
	}
	if info, err := os.Stat(filepath.Dir(path)); err != nil || !info.IsDir() {
		t.Errorf("socket directory missing: %v", err)
	}
}
