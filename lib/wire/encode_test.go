// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"reflect"
	"testing"
)

func TestAppendPacket(t *testing.T) {
	got := string(AppendPacket(nil, Packet{
		ID:       7,
		Time:     1.5,
		Messages: []string{"hello", StateText(7, 1, "running")},
	}))
	want := "[pkt][id]7[t]1.5[m]hello[m][ts]7,1,running"
	if got != want {
		t.Fatalf("AppendPacket() = %q, want %q", got, want)
	}
}

func TestStateTextWithoutText(t *testing.T) {
	if got, want := StateText(3, -2, ""), "[ts]3,-2"; got != want {
		t.Fatalf("StateText() = %q, want %q", got, want)
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	raw, err := Encode(
		Packet{ID: 1, Time: 0.25, Messages: []string{"boot"}},
		Packet{ID: 2, Time: 0.5, Messages: []string{StateText(2, 3, "")}},
		Packet{ID: 1, Time: 1, Messages: []string{StateText(1, 9, "done")}},
	)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	want := Batch{
		1: {
			{Time: 0.25, Messages: Messages{Plain: []string{"boot"}}},
			{Time: 1, Messages: Messages{State: []StateMessage{{UID: 1, State: 9, Text: "done", Valid: true, Raw: "1,9,done"}}}},
		},
		2: {
			{Time: 0.5, Messages: Messages{State: []StateMessage{{UID: 2, State: 3, Valid: true, Raw: "2,3"}}}},
		},
	}
	if got := Parse(raw); !reflect.DeepEqual(got, want) {
		t.Fatalf("Parse(Encode()) = %#v, want %#v", got, want)
	}
	if got := want.Entities(); !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Fatalf("Entities() = %v, want [1 2]", got)
	}
}
