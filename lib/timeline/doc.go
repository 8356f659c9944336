// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package timeline stores per-entity logs of timestamped values with
// "current" and "as-of" lookups.
//
// Each entity gets a [Timeline]: a B-tree keyed by time mark, so
// inserts and floor queries are O(log n) however long a debug session
// runs. Keys are unique; inserting at an existing time replaces the
// value. [Timeline.AsOf] returns the entry at exactly the requested
// time or, failing that, the latest entry before it, and reports false
// for a time before the first entry.
//
// A [Store] is not safe for concurrent use. The debugger's aggregator
// is its only writer and serializes readers behind its own lock.
package timeline
