package mux

import (
	"strings"
	"testing"

	"github.com/timvw/emotitle/internal/model"
)

func line(fields ...string) string {
	return strings.Join(fields, fieldSep)
}

func TestParseWindows(t *testing.T) {
	out := line("@1", "0", "editor", "0") + "\n" +
		line("@4", "3", "build | 🚀", "1") + "\n"

	windows, err := parseWindows(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	if windows[1].id != "@4" || windows[1].index != 3 || windows[1].name != "build | 🚀" || !windows[1].active {
		t.Fatalf("unexpected window: %+v", windows[1])
	}
}

func TestParseWindows_Invalid(t *testing.T) {
	tests := []struct {
		name string
		out  string
	}{
		{"too few fields", line("@1", "0", "editor")},
		{"bad index", line("@1", "x", "editor", "1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseWindows(tt.out); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParsePanes(t *testing.T) {
	out := line("@1", "%0", "1", "bash") + "\n" +
		line("@1", "%7", "0", "tab\tin title") + "\n"

	panes, err := parsePanes(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(panes) != 2 {
		t.Fatalf("expected 2 panes, got %d", len(panes))
	}
	if panes[1].id != 7 || panes[1].active || panes[1].title != "tab\tin title" {
		t.Fatalf("unexpected pane: %+v", panes[1])
	}
}

func TestParsePaneID(t *testing.T) {
	tests := []struct {
		input   string
		want    uint32
		wantErr bool
	}{
		{"%0", 0, false},
		{"%42", 42, false},
		{"42", 0, true},
		{"%x", 0, true},
		{"%-1", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parsePaneID(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestBuildSnapshot_OrdersByWindowIndex(t *testing.T) {
	windows := []window{
		{id: "@7", index: 5, name: "late"},
		{id: "@2", index: 0, name: "first", active: true},
	}
	snap, ids := buildSnapshot(windows, nil)
	if len(snap.Tabs) != 2 || snap.Tabs[0].Name != "first" || snap.Tabs[1].Name != "late" {
		t.Fatalf("expected tabs ordered by window index, got %+v", snap.Tabs)
	}
	if ids[0] != "@2" || ids[1] != "@7" {
		t.Fatalf("expected positions 0 and 1 to map to @2 and @7, got %v", ids)
	}
}

func TestBuildSnapshot(t *testing.T) {
	windows := []window{
		{id: "@1", index: 1, name: "one"},
		{id: "@5", index: 4, name: "two", active: true},
	}
	panes := []tmuxPane{
		{windowID: "@1", id: 0, active: true, title: "a"},
		{windowID: "@5", id: 3, title: "b"},
		{windowID: "@5", id: 4, active: true, title: "c"},
		{windowID: "@9", id: 9, title: "stray"},
	}

	snap, ids := buildSnapshot(windows, panes)

	if len(snap.Tabs) != 2 || snap.Tabs[1].Position != 1 || !snap.Tabs[1].Active {
		t.Fatalf("expected window index 4 to become position 1, got %+v", snap.Tabs)
	}
	if ids[1] != "@5" {
		t.Fatalf("expected position 1 to map to @5, got %q", ids[1])
	}
	if got := snap.Panes.KeySet(1); len(got) != 2 || got[1] != model.TerminalPane(4) {
		t.Fatalf("expected panes 3 and 4 at position 1, got %v", got)
	}
	if snap.Panes[0][0].Focused {
		t.Fatal("expected active pane of a background window to be unfocused")
	}
	if !snap.Panes[1][1].Focused {
		t.Fatal("expected active pane of the active window to be focused")
	}
	if snap.Panes.Contains(model.TerminalPane(9)) {
		t.Fatal("expected pane of unknown window to be skipped")
	}
}

func TestFromName(t *testing.T) {
	if m, err := FromName("tmux", "work"); err != nil || m.Name() != "tmux" {
		t.Fatalf("expected tmux, got %v, %v", m, err)
	}
	if _, err := FromName("zellij", ""); err == nil {
		t.Fatal("expected zellij to be unsupported")
	}
	if _, err := FromName("screen", ""); err == nil {
		t.Fatal("expected unknown multiplexer error")
	}
}
