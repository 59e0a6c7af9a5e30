package main

import (
	"strings"
	"testing"
	"unicode/utf8"

	"pgregory.net/rapid"
)

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"":            defaultPlayerName,
		"   ":         defaultPlayerName,
		"alice":       "alice",
		"  bob  ":     "bob",
		"ca\x00rol\n": "carol",
		"\x1b[31mred": "[31mred",
	}
	for in, want := range cases {
		if got := sanitizeName(in); got != want {
			t.Errorf("sanitizeName(%q): expected %q, got %q", in, want, got)
		}
	}

	long := strings.Repeat("é", maxNameLen+10)
	if got := utf8.RuneCountInString(sanitizeName(long)); got != maxNameLen {
		t.Errorf("expected %d runes, got %d", maxNameLen, got)
	}
}

func TestSanitizeNameProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := sanitizeName(rapid.String().Draw(t, "name"))
		if name == "" {
			t.Fatal("expected a non-empty name")
		}
		if utf8.RuneCountInString(name) > maxNameLen {
			t.Fatalf("expected at most %d runes, got %q", maxNameLen, name)
		}
		if sanitizeName(name) != name {
			t.Fatalf("expected sanitizing twice to be stable for %q", name)
		}
	})
}

func TestHashID(t *testing.T) {
	if hashID("") != "" {
		t.Error("expected empty id to stay empty")
	}
	a := hashID("user-1")
	if len(a) != 16 {
		t.Errorf("expected 16 hex chars, got %q", a)
	}
	if hashID("user-1") != a {
		t.Error("expected a stable hash")
	}
	if hashID("user-2") == a {
		t.Error("expected different ids to hash differently")
	}
}

func TestTruncateText(t *testing.T) {
	if got := truncateText("  hello  ", 10); got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}
	if got := truncateText("héllo world", 5); got != "héllo" {
		t.Errorf("expected héllo, got %q", got)
	}
}
