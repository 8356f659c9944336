// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"math"
	"strconv"
	"strings"
)

// Parse inflates raw and parses the result. Any decompression failure
// produces an empty batch.
func Parse(raw []byte) Batch {
	batch, _ := Decode(raw, DefaultMaxInflatedSize)
	return batch
}

// Decode is Parse with the decompression error reported. The returned
// batch is never nil; it is empty whenever err is non-nil. maxInflated
// bounds the decompressed size (<= 0 selects DefaultMaxInflatedSize).
func Decode(raw []byte, maxInflated int64) (Batch, error) {
	payload, err := Inflate(raw, maxInflated)
	if err != nil {
		return Batch{}, err
	}
	return ParsePayload(payload), nil
}

// ParsePayload parses an already-inflated payload.
func ParsePayload(payload []byte) Batch {
	batch := Batch{}
	scanner := packetScanner{data: payload}
	for {
		body, ok := scanner.next()
		if !ok {
			return batch
		}
		uid, record, ok := parsePacket(string(body))
		if !ok {
			continue
		}
		batch[uid] = append(batch[uid], record)
	}
}

// packetScanner walks a payload from one [pkt] header to the next.
type packetScanner struct {
	data   []byte
	cursor int
}

var packetHeader = []byte(MarkerPacket)

// next returns the body of the next packet. It reports false when no
// header remains or when a header is immediately followed by another
// header (or the end of the buffer), which terminates the scan.
func (s *packetScanner) next() ([]byte, bool) {
	offset := bytes.Index(s.data[s.cursor:], packetHeader)
	if offset < 0 {
		s.cursor = len(s.data)
		return nil, false
	}
	start := s.cursor + offset + len(packetHeader)

	end := len(s.data)
	if following := bytes.Index(s.data[start:], packetHeader); following >= 0 {
		end = start + following
	}
	s.cursor = end

	if end == start {
		return nil, false
	}
	return s.data[start:end], true
}

// packetState tracks which mandatory fields a packet still needs.
type packetState int

const (
	seekingBoth packetState = iota
	seekingID
	seekingTime
	seekingMessages
)

// parsePacket parses one packet body. It reports false when the id or
// time mark is missing or unparsable.
func parsePacket(body string) (int64, Record, bool) {
	var (
		uid    int64
		record Record
		state  = seekingBoth
	)

	fields := fieldCursor{text: body}
	for {
		field, ok := fields.next()
		if !ok {
			break
		}

		if state == seekingMessages {
			// Empty fields are messages too: "[m][m]" carries one.
			if strings.Contains(field, MarkerState) {
				record.Messages.State = append(record.Messages.State, parseState(field))
			} else {
				record.Messages.Plain = append(record.Messages.Plain, field)
			}
			continue
		}

		if state == seekingBoth || state == seekingID {
			if value, present := markerValue(field, MarkerID); present {
				parsed, valid := parseEntityID(value)
				if !valid {
					return 0, Record{}, false
				}
				uid = parsed
				if state == seekingBoth {
					state = seekingTime
				} else {
					state = seekingMessages
				}
			}
		}

		if state == seekingBoth || state == seekingTime {
			if value, present := markerValue(field, MarkerTime); present {
				parsed, valid := parseTimeMark(value)
				if !valid {
					return 0, Record{}, false
				}
				record.Time = parsed
				if state == seekingBoth {
					state = seekingID
				} else {
					state = seekingMessages
				}
			}
		}
	}

	if state != seekingMessages {
		return 0, Record{}, false
	}
	return uid, record, true
}

// fieldCursor yields the [m]-separated fields of a packet body.
type fieldCursor struct {
	text     string
	position int
	done     bool
}

func (c *fieldCursor) next() (string, bool) {
	if c.done {
		return "", false
	}
	rest := c.text[c.position:]
	if index := strings.Index(rest, MarkerMessage); index >= 0 {
		c.position += index + len(MarkerMessage)
		return rest[:index], true
	}
	c.done = true
	return rest, true
}

// markerValue returns the text following marker up to the next '[' or
// the end of field. present is false when the marker does not occur.
func markerValue(field, marker string) (value string, present bool) {
	index := strings.Index(field, marker)
	if index < 0 {
		return "", false
	}
	value = field[index+len(marker):]
	if end := strings.IndexByte(value, valueTerminator); end >= 0 {
		value = value[:end]
	}
	return strings.TrimSpace(value), true
}

func parseEntityID(value string) (int64, bool) {
	uid, err := strconv.ParseInt(value, 10, 64)
	if err != nil || uid <= 0 {
		return 0, false
	}
	return uid, true
}

func parseTimeMark(value string) (float64, bool) {
	mark, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(mark) || math.IsInf(mark, 0) {
		return 0, false
	}
	return mark, true
}

// parseState parses a field containing the state marker.
func parseState(field string) StateMessage {
	body := strings.ReplaceAll(field, MarkerState, "")
	message := StateMessage{Raw: body}

	parts := strings.Split(body, stateDelimiter)
	if len(parts) != 2 && len(parts) != 3 {
		return message
	}
	if len(parts) == 3 {
		message.Text = parts[2]
	}

	uid, uidErr := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if uidErr == nil {
		message.UID = uid
	}
	state, stateErr := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if stateErr == nil {
		message.State = state
	}
	message.Valid = uidErr == nil && stateErr == nil
	return message
}
