// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestBindFlags_BasicTypes(t *testing.T) {
	type params struct {
		Address  string        `flag:"addr" desc:"debugger address"`
		Verbose  bool          `flag:"verbose,v" desc:"enable verbose output"`
		Buffer   int           `flag:"buffer" desc:"event buffer"`
		UID      int64         `flag:"uid" desc:"entity uid"`
		Time     float64       `flag:"time" desc:"packet time"`
		Timeout  time.Duration `flag:"timeout" desc:"dial timeout"`
		Messages []string      `flag:"message" desc:"message body"`
		UIDs     []int64       `flag:"uids" desc:"entity filter"`
		Untagged string
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}

	err := flagSet.Parse([]string{
		"--addr", "127.0.0.1:4447",
		"-v",
		"--buffer", "16",
		"--uid", "1099511627776",
		"--time", "2.5",
		"--timeout", "3s",
		"--message", "hello, world",
		"--message", "[ts]1,2",
		"--uids", "1,2",
		"--uids", "5",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Address != "127.0.0.1:4447" {
		t.Errorf("Address = %q", p.Address)
	}
	if !p.Verbose {
		t.Error("Verbose = false, want true")
	}
	if p.Buffer != 16 {
		t.Errorf("Buffer = %d, want 16", p.Buffer)
	}
	if p.UID != 1099511627776 {
		t.Errorf("UID = %d, want 1099511627776", p.UID)
	}
	if p.Time != 2.5 {
		t.Errorf("Time = %v, want 2.5", p.Time)
	}
	if p.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", p.Timeout)
	}
	// Commas inside a message must survive.
	if len(p.Messages) != 2 || p.Messages[0] != "hello, world" || p.Messages[1] != "[ts]1,2" {
		t.Errorf("Messages = %q", p.Messages)
	}
	if len(p.UIDs) != 3 || p.UIDs[0] != 1 || p.UIDs[1] != 2 || p.UIDs[2] != 5 {
		t.Errorf("UIDs = %v, want [1 2 5]", p.UIDs)
	}
	if flagSet.Lookup("untagged") != nil {
		t.Error("untagged field was bound")
	}
}

func TestBindFlags_Defaults(t *testing.T) {
	type params struct {
		Address string        `flag:"addr" default:"127.0.0.1:4447"`
		Buffer  int           `flag:"buffer" default:"64"`
		Timeout time.Duration `flag:"timeout" default:"5s"`
		Enabled bool          `flag:"enabled" default:"true"`
		UIDs    []int64       `flag:"uids" default:"7,8"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if err := flagSet.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Address != "127.0.0.1:4447" || p.Buffer != 64 || p.Timeout != 5*time.Second || !p.Enabled {
		t.Errorf("defaults not applied: %+v", p)
	}
	if len(p.UIDs) != 2 || p.UIDs[0] != 7 || p.UIDs[1] != 8 {
		t.Errorf("UIDs = %v, want [7 8]", p.UIDs)
	}
}

func TestBindFlags_InvalidDefault(t *testing.T) {
	type params struct {
		Buffer int `flag:"buffer" default:"many"`
	}
	var p params
	err := BindFlags(&p, pflag.NewFlagSet("test", pflag.ContinueOnError))
	if err == nil || !strings.Contains(err.Error(), "--buffer") {
		t.Fatalf("BindFlags = %v, want an error naming --buffer", err)
	}
}

func TestBindFlags_UnsupportedType(t *testing.T) {
	type params struct {
		Ratio complex128 `flag:"ratio"`
	}
	var p params
	err := BindFlags(&p, pflag.NewFlagSet("test", pflag.ContinueOnError))
	if err == nil || !strings.Contains(err.Error(), "unsupported type") {
		t.Fatalf("BindFlags = %v, want unsupported type", err)
	}
}

func TestBindFlags_RequiresStructPointer(t *testing.T) {
	var p struct{}
	if err := BindFlags(p, pflag.NewFlagSet("test", pflag.ContinueOnError)); err == nil {
		t.Fatal("BindFlags accepted a non-pointer")
	}
}

type testConnection struct {
	SocketPath string
}

func (c *testConnection) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.SocketPath, "socket", "/run/test.sock", "control socket")
}

func TestBindFlags_EmbeddedAndBinder(t *testing.T) {
	type params struct {
		JSONOutput
		Connection testConnection
		Mode       string `flag:"mode"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if err := flagSet.Parse([]string{"--json", "--socket", "/tmp/x.sock", "--mode", "mixed"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !p.OutputJSON {
		t.Error("embedded JSONOutput not bound")
	}
	if p.Connection.SocketPath != "/tmp/x.sock" {
		t.Errorf("SocketPath = %q, want /tmp/x.sock", p.Connection.SocketPath)
	}
	if p.Mode != "mixed" {
		t.Errorf("Mode = %q", p.Mode)
	}
}

func TestOptionalFloat(t *testing.T) {
	type params struct {
		At   OptionalFloat `flag:"at" desc:"query time"`
		From OptionalFloat `flag:"from" desc:"window start"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if err := flagSet.Parse([]string{"--at", "0"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.At.Value == nil || *p.At.Value != 0 {
		t.Errorf("At = %v, want explicit 0", p.At.Value)
	}
	if p.From.Value != nil {
		t.Errorf("From = %v, want unset", *p.From.Value)
	}
	if p.At.String() != "0" || p.From.String() != "" {
		t.Errorf("String() = %q, %q", p.At.String(), p.From.String())
	}

	if err := flagSet.Parse([]string{"--from", "soon"}); err == nil {
		t.Error("Parse accepted a non-numeric float")
	}
}
