// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debugger

// Stats are cumulative counters since the Server was created. Reset
// discards timelines but not stats.
type Stats struct {
	ConnectionsAccepted uint64 `cbor:"connections_accepted" json:"connections_accepted"`
	BytesReceived       uint64 `cbor:"bytes_received" json:"bytes_received"`

	// BatchesMerged counts worker results folded into the store.
	BatchesMerged uint64 `cbor:"batches_merged" json:"batches_merged"`

	// EmptyPayloads counts merged results that carried no packets,
	// whether from a decode error or a payload without valid packets.
	EmptyPayloads uint64 `cbor:"empty_payloads" json:"empty_payloads"`

	// DecodeErrors counts payloads that failed to inflate.
	DecodeErrors uint64 `cbor:"decode_errors" json:"decode_errors"`

	// ReadErrors counts connections that ended with an I/O error
	// rather than a clean close.
	ReadErrors uint64 `cbor:"read_errors" json:"read_errors"`

	Records              uint64 `cbor:"records" json:"records"`
	StateMessages        uint64 `cbor:"state_messages" json:"state_messages"`
	InvalidStateMessages uint64 `cbor:"invalid_state_messages" json:"invalid_state_messages"`
	PlainMessages        uint64 `cbor:"plain_messages" json:"plain_messages"`

	// DiscardedWorkers counts connections still being read when the
	// server stopped.
	DiscardedWorkers uint64 `cbor:"discarded_workers" json:"discarded_workers"`

	ActiveWorkers    int `cbor:"active_workers" json:"active_workers"`
	PendingShutdowns int `cbor:"pending_shutdowns" json:"pending_shutdowns"`
}
