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
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1}, // substitution
		{"abc", "ab", 1},  // deletion
		{"ab", "abc", 1},  // insertion
		{"abc", "bac", 2}, // transposition (counted as 2 edits)
		{"kitten", "sitting", 3},
		{"release", "relase", 1},
		{"inspect", "inpsect", 2},
	}

	for _, test := range tests {
		t.Run(test.a+"->"+test.b, func(t *testing.T) {
			got := levenshtein(test.a, test.b)
			if got != test.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
			}
			if reverse := levenshtein(test.b, test.a); reverse != got {
				t.Errorf("levenshtein(%q, %q) = %d, not symmetric", test.b, test.a, reverse)
			}
		})
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{
		{Name: "generate"},
		{Name: "patch"},
		{Name: "inspect"},
	}

	tests := []struct {
		input string
		want  string
	}{
		{"genrate", "generate"},
		{"pacth", "patch"},
		{"insepct", "inspect"},
		{"completely-different", ""},
	}
	for _, test := range tests {
		if got := suggestCommand(test.input, commands); got != test.want {
			t.Errorf("suggestCommand(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestSuggestFlag(t *testing.T) {
	flagSet := pflag.NewFlagSet("build", pflag.ContinueOnError)
	flagSet.String("releases", "", "")
	flagSet.String("channel", "", "")
	flagSet.BoolP("verbose", "v", false, "")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"typo", []string{"--relases", "dir"}, "--releases"},
		{"with value", []string{"--chanel=beta"}, "--channel"},
		{"skips known flags", []string{"-v", "--chanel", "beta"}, "--channel"},
		{"positional only", []string{"1.0.0=app.pkg"}, ""},
		{"too far", []string{"--xxxxxxxxxx"}, ""},
		{"stops at terminator", []string{"--", "--relases"}, ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := suggestFlag(test.args, flagSet); got != test.want {
				t.Errorf("suggestFlag(%v) = %q, want %q", test.args, got, test.want)
			}
		})
	}
}
