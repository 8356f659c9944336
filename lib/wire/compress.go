// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// DefaultMaxInflatedSize bounds how large a single connection's
// payload may grow when inflated. Debug sessions send kilobytes; the
// bound only exists to stop a corrupt or hostile stream from
// exhausting memory.
const DefaultMaxInflatedSize = 64 << 20

var (
	// ErrEmptyPayload is returned by Inflate for a zero-length input
	// (the peer connected and closed without sending anything).
	ErrEmptyPayload = errors.New("wire: empty payload")

	// ErrPayloadTooLarge is returned by Inflate when the stream
	// inflates past the configured limit.
	ErrPayloadTooLarge = errors.New("wire: inflated payload exceeds limit")
)

// Inflate decompresses a zlib stream. maxInflated <= 0 selects
// DefaultMaxInflatedSize.
func Inflate(raw []byte, maxInflated int64) ([]byte, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyPayload
	}
	if maxInflated <= 0 {
		maxInflated = DefaultMaxInflatedSize
	}

	reader, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("opening zlib stream: %w", err)
	}
	defer reader.Close()

	payload, err := io.ReadAll(io.LimitReader(reader, maxInflated+1))
	if err != nil {
		return nil, fmt.Errorf("inflating payload: %w", err)
	}
	if int64(len(payload)) > maxInflated {
		return nil, fmt.Errorf("%w (%d bytes)", ErrPayloadTooLarge, maxInflated)
	}
	return payload, nil
}

// Compress produces the zlib stream a client sends for payload.
func Compress(payload []byte) ([]byte, error) {
	var buffer bytes.Buffer
	writer := zlib.NewWriter(&buffer)
	if _, err := writer.Write(payload); err != nil {
		return nil, fmt.Errorf("compressing payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finishing zlib stream: %w", err)
	}
	return buffer.Bytes(), nil
}
