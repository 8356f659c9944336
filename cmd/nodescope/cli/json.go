// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"io"
	"reflect"
)

// JSONOutput adds a --json flag to any params struct that embeds it.
// Commands call EmitJSON first and fall through to text output when
// it reports false:
//
//	if done, err := params.EmitJSON(stdout, entities); done {
//	    return err
//	}
type JSONOutput struct {
	OutputJSON bool `json:"-" flag:"json" desc:"output as JSON"`
}

// EmitJSON writes result as indented JSON when --json is set and
// reports whether it did. Nil slices are written as [].
func (j *JSONOutput) EmitJSON(w io.Writer, result any) (bool, error) {
	if !j.OutputJSON {
		return false, nil
	}
	return true, WriteJSON(w, emptyIfNilSlice(result))
}

// WriteJSON writes value as indented JSON.
func WriteJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

// JSONLines writes one compact JSON value per line, for streams.
type JSONLines struct {
	encoder *json.Encoder
}

// NewJSONLines returns a line writer on w.
func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{encoder: json.NewEncoder(w)}
}

// Write encodes value followed by a newline.
func (l *JSONLines) Write(value any) error {
	return l.encoder.Encode(emptyIfNilSlice(value))
}

func emptyIfNilSlice(value any) any {
	if v := reflect.ValueOf(value); v.Kind() == reflect.Slice && v.IsNil() {
		return reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	return value
}
