// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "uid", 3},
		{"mode", "mode", 0},
		{"mode", "node", 1},
		{"reset", "rest", 1},
		{"send", "sends", 1},
		{"watch", "wacth", 2},
		{"query", "qeury", 2},
		{"live", "mixed", 3},
		{"entities", "entites", 1},
		{"disable", "enable", 3},
	}

	for _, test := range tests {
		forward, backward := levenshtein(test.a, test.b), levenshtein(test.b, test.a)
		if forward != test.want || backward != test.want {
			t.Errorf("distance(%q, %q) = %d / %d reversed, want %d", test.a, test.b, forward, backward, test.want)
		}
	}
}

func TestClosest(t *testing.T) {
	names := []string{"status", "enable", "disable", "history", "entities"}

	for input, want := range map[string]string{
		"stauts":    "status",
		"enabl":     "enable",
		"disabel":   "disable",
		"histry":    "history",
		"entites":   "entities",
		"zzzzzzzzz": "",
		"":          "",
	} {
		if got := closest(input, names); got != want {
			t.Errorf("closest(%q) = %q, want %q", input, got, want)
		}
	}

	if got := closest("status", nil); got != "" {
		t.Errorf("closest with no candidates = %q, want empty", got)
	}
}

func TestSuggestFlag(t *testing.T) {
	makeFlagSet := func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flagSet.String("socket", "", "")
		flagSet.Int64("uid", 0, "")
		flagSet.Int("buffer", 0, "")
		flagSet.BoolP("json", "j", false, "")
		return flagSet
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"long form", []string{"--sokcet", "/run/x.sock"}, "--socket"},
		{"single dash long name", []string{"-bufer"}, "--buffer"},
		{"inline value", []string{"--bufer=8"}, "--buffer"},
		{"after valid flags", []string{"--uid", "3", "--jsn"}, "--json"},
		{"after shorthand", []string{"-j", "--sockt"}, "--socket"},
		{"too far", []string{"--frobnicate"}, ""},
		{"positional only", []string{"42"}, ""},
		{"after terminator", []string{"--", "--sokcet"}, ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := suggestFlag(test.args, makeFlagSet()); got != test.want {
				t.Errorf("args %q: suggestion %q, want %q", test.args, got, test.want)
			}
		})
	}
}
