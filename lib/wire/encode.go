// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"strconv"
	"strings"
)

// Packet is the client-side description of one packet.
type Packet struct {
	ID       int64
	Time     float64
	Messages []string
}

// StateText formats a state message body, including its marker. An
// empty text produces the two-field form.
func StateText(uid, state int64, text string) string {
	var builder strings.Builder
	builder.WriteString(MarkerState)
	builder.WriteString(strconv.FormatInt(uid, 10))
	builder.WriteString(stateDelimiter)
	builder.WriteString(strconv.FormatInt(state, 10))
	if text != "" {
		builder.WriteString(stateDelimiter)
		builder.WriteString(text)
	}
	return builder.String()
}

// AppendPacket appends the uncompressed form of packet to dst.
func AppendPacket(dst []byte, packet Packet) []byte {
	dst = append(dst, MarkerPacket...)
	dst = append(dst, MarkerID...)
	dst = strconv.AppendInt(dst, packet.ID, 10)
	dst = append(dst, MarkerTime...)
	dst = strconv.AppendFloat(dst, packet.Time, 'f', -1, 64)
	for _, message := range packet.Messages {
		dst = append(dst, MarkerMessage...)
		dst = append(dst, message...)
	}
	return dst
}

// Encode builds and compresses a payload containing packets in order.
func Encode(packets ...Packet) ([]byte, error) {
	var payload []byte
	for _, packet := range packets {
		payload = AppendPacket(payload, packet)
	}
	return Compress(payload)
}
