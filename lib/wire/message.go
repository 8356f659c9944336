// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "sort"

// Marker tokens. They are literal substrings of the decompressed
// payload; message text containing them will be split.
const (
	MarkerPacket  = "[pkt]"
	MarkerID      = "[id]"
	MarkerTime    = "[t]"
	MarkerMessage = "[m]"
	MarkerState   = "[ts]"
)

// valueTerminator ends a marker value inside a field.
const valueTerminator = '['

// stateDelimiter separates the fields of a state triple.
const stateDelimiter = ","

// StateMessage is a parsed "uid,state[,text]" body. When the body does
// not have exactly two or three fields, or the first two are not
// integers, Valid is false and UID/State hold whatever did parse. Raw
// always carries the body with the state marker removed.
type StateMessage struct {
	UID   int64  `cbor:"uid" json:"uid"`
	State int64  `cbor:"state" json:"state"`
	Text  string `cbor:"text,omitempty" json:"text,omitempty"`
	Valid bool   `cbor:"valid" json:"valid"`
	Raw   string `cbor:"raw" json:"raw"`
}

// Messages holds one packet's messages by category, in arrival order.
type Messages struct {
	Plain []string       `cbor:"plain,omitempty" json:"plain,omitempty"`
	State []StateMessage `cbor:"state,omitempty" json:"state,omitempty"`
}

// Empty reports whether the packet carried no messages at all.
func (m Messages) Empty() bool {
	return len(m.Plain) == 0 && len(m.State) == 0
}

// LastValidState returns the last well-formed state message, which is
// the one that determines an entity's state at the record's time.
func (m Messages) LastValidState() (StateMessage, bool) {
	for index := len(m.State) - 1; index >= 0; index-- {
		if m.State[index].Valid {
			return m.State[index], true
		}
	}
	return StateMessage{}, false
}

// Record is one packet's contribution for its entity.
type Record struct {
	Time     float64  `cbor:"time" json:"time"`
	Messages Messages `cbor:"messages" json:"messages"`
}

// Batch maps entity ids to their records in stream order. Records are
// not sorted by time.
type Batch map[int64][]Record

// Entities returns the batch's entity ids in ascending order.
func (b Batch) Entities() []int64 {
	entities := make([]int64, 0, len(b))
	for uid := range b {
		entities = append(entities, uid)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i] < entities[j] })
	return entities
}

// Packets returns the number of packets that survived parsing.
func (b Batch) Packets() int {
	count := 0
	for _, records := range b {
		count += len(records)
	}
	return count
}
