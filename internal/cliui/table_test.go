package cliui

import (
	"strings"
	"testing"
)

func TestRenderTable(t *testing.T) {
	var sb strings.Builder
	cols := []Column{
		{Name: "EVENT ID"},
		{Name: "SEVERITY"},
	}
	rows := [][]string{
		{"cpu_1716112345678", "CRITICAL"},
		{"mem_1716112345999", "WARNING"},
	}
	RenderTable(&sb, cols, rows)

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("line count = %d, want 4:\n%s", len(lines), sb.String())
	}
	if !strings.HasPrefix(lines[0], "EVENT ID") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "---") {
		t.Fatalf("separator = %q", lines[1])
	}
	if !strings.Contains(lines[2], "cpu_1716112345678") || !strings.Contains(lines[2], "CRITICAL") {
		t.Fatalf("row = %q", lines[2])
	}
}

func TestRenderTableTruncates(t *testing.T) {
	var sb strings.Builder
	cols := []Column{{Name: "ID", MaxWidth: 8}}
	RenderTable(&sb, cols, [][]string{{"cpu_1716112345678"}})

	if !strings.Contains(sb.String(), "cpu_1...") {
		t.Fatalf("expected truncated cell, got:\n%s", sb.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("a long value", 6); got != "a l..." {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("abc", 0); got != "" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("abcdef", 2); got != "ab" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatUptime(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0s"},
		{42, "42s"},
		{61, "1m 1s"},
		{7384, "2h 3m 4s"},
		{-5, "0s"},
	}
	for _, tc := range cases {
		if got := FormatUptime(tc.in); got != tc.want {
			t.Errorf("FormatUptime(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatUnix(t *testing.T) {
	if got := FormatUnix(0); got != "-" {
		t.Fatalf("got %q", got)
	}
	if got := FormatUnix(1716112345); got != "2024-05-19 09:52:25" {
		t.Fatalf("got %q", got)
	}
}
