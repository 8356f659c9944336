// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"github.com/bureau-foundation/nodescope/lib/codec"
	"github.com/bureau-foundation/nodescope/lib/debugger"
	"github.com/bureau-foundation/nodescope/lib/version"
)

// Action names.
const (
	ActionStatus   = "status"
	ActionEnable   = "enable"
	ActionDisable  = "disable"
	ActionQuery    = "query"
	ActionHistory  = "history"
	ActionEntities = "entities"
	ActionMode     = "mode"
	ActionReset    = "reset"
	ActionWatch    = "watch"
)

// Response is the envelope for every request-response action.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// StreamAck is the first value written on a streaming connection.
type StreamAck struct {
	OK    bool   `cbor:"ok"`
	Error string `cbor:"error,omitempty"`
}

// Frame types.
const (
	FrameEvent     = "event"
	FrameHeartbeat = "heartbeat"
)

// Frame is one value of a watch stream. Heartbeats carry the number of
// events dropped for this watcher so far.
type Frame struct {
	Type    string          `cbor:"type" json:"type"`
	Event   *debugger.Event `cbor:"event,omitempty" json:"event,omitempty"`
	Dropped uint64          `cbor:"dropped,omitempty" json:"dropped,omitempty"`
}

// StatusResponse is the data of a status, enable or disable response.
type StatusResponse struct {
	Debugger debugger.Status `cbor:"debugger" json:"debugger"`
	Build    version.Build   `cbor:"build" json:"build"`
}

// EnableRequest holds the fields of an enable request.
type EnableRequest struct {
	Port int `cbor:"port,omitempty"`
}

// QueryRequest holds the fields of a query request.
type QueryRequest struct {
	UID int64    `cbor:"uid"`
	At  *float64 `cbor:"at,omitempty"`
}

// QueryResponse is the data of a query response.
type QueryResponse struct {
	Found bool            `cbor:"found" json:"found"`
	Entry *debugger.Entry `cbor:"entry,omitempty" json:"entry,omitempty"`
}

// HistoryRequest holds the fields of a history request. Absent bounds
// are open.
type HistoryRequest struct {
	UID  int64    `cbor:"uid"`
	From *float64 `cbor:"from,omitempty"`
	To   *float64 `cbor:"to,omitempty"`
}

// ModeRequest holds the fields of a mode request.
type ModeRequest struct {
	Mode string `cbor:"mode,omitempty"`
}

// ModeResponse is the data of a mode response.
type ModeResponse struct {
	Mode string `cbor:"mode" json:"mode"`
}

// WatchRequest holds the fields of a watch request.
type WatchRequest struct {
	// UIDs restricts entity_updated events to these entities.
	UIDs []int64 `cbor:"uids,omitempty"`

	// Buffer is the per-watcher event buffer. Default 64.
	Buffer int `cbor:"buffer,omitempty"`
}
