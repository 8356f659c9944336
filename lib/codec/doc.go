// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec fixes the CBOR options used on the control socket, so
// the daemon, the CLI and the watch stream agree byte for byte.
//
// Output is Core Deterministic Encoding (RFC 8949 section 4.2).
// Decoding tolerates unknown fields, which lets an older CLI talk to a
// newer daemon, bounds nesting and map size, and produces
// map[string]any for untyped maps.
package codec
