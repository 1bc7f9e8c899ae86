package mux

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/timvw/emotitle/internal/model"
)

// fieldSep separates fields in tmux format output. Titles may contain tabs
// and pipes but never the ASCII unit separator.
const fieldSep = "\x1f"

var (
	windowFormat = strings.Join([]string{"#{window_id}", "#{window_index}", "#{window_name}", "#{window_active}"}, fieldSep)
	paneFormat   = strings.Join([]string{"#{window_id}", "#{pane_id}", "#{pane_active}", "#{pane_title}"}, fieldSep)
)

// Tmux implements the Multiplexer interface for tmux. Windows of one
// session are tabs; tmux panes are terminal panes.
type Tmux struct {
	session string

	mu      sync.Mutex
	windows map[int]string // tab position -> window id, from the last snapshot
}

// NewTmux creates a tmux multiplexer scoped to session, or to the session
// of the current client when session is empty.
func NewTmux(session string) *Tmux {
	return &Tmux{session: session, windows: make(map[int]string)}
}

// Name returns "tmux".
func (t *Tmux) Name() string {
	return "tmux"
}

// window is one row of list-windows output.
type window struct {
	id     string
	index  int
	name   string
	active bool
}

// tmuxPane is one row of list-panes output.
type tmuxPane struct {
	windowID string
	id       uint32
	active   bool
	title    string
}

// Snapshot lists the windows and panes of the session.
func (t *Tmux) Snapshot(ctx context.Context) (Snapshot, error) {
	out, err := t.run(ctx, t.scoped("list-windows", "-F", windowFormat)...)
	if err != nil {
		return Snapshot{}, fmt.Errorf("tmux list-windows: %w", err)
	}
	windows, err := parseWindows(out)
	if err != nil {
		return Snapshot{}, err
	}

	out, err = t.run(ctx, t.scoped("list-panes", "-s", "-F", paneFormat)...)
	if err != nil {
		return Snapshot{}, fmt.Errorf("tmux list-panes: %w", err)
	}
	panes, err := parsePanes(out)
	if err != nil {
		return Snapshot{}, err
	}

	snap, ids := buildSnapshot(windows, panes)

	t.mu.Lock()
	t.windows = ids
	t.mu.Unlock()

	return snap, nil
}

// RenamePane sets the pane title with select-pane -T.
func (t *Tmux) RenamePane(ctx context.Context, id model.PaneID, title string) error {
	if !id.IsTerminal() {
		return fmt.Errorf("tmux cannot rename %s", id)
	}
	target := "%" + strconv.FormatUint(uint64(id.ID), 10)
	if _, err := t.run(ctx, "select-pane", "-t", target, "-T", title); err != nil {
		return fmt.Errorf("tmux select-pane -t %s: %w", target, err)
	}
	return nil
}

// RenameTab renames the window that sat at ref.Position in the last
// snapshot. tmux addresses windows by id, so the ordinal is not needed.
func (t *Tmux) RenameTab(ctx context.Context, ref model.TabRef, title string) error {
	t.mu.Lock()
	id, ok := t.windows[ref.Position]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("tmux: no window at position %d", ref.Position)
	}
	if _, err := t.run(ctx, "rename-window", "-t", id, title); err != nil {
		return fmt.Errorf("tmux rename-window -t %s: %w", id, err)
	}
	return nil
}

func (t *Tmux) scoped(args ...string) []string {
	if t.session == "" {
		return args
	}
	return append(args, "-t", t.session)
}

// run executes a tmux command and returns its stdout.
func (t *Tmux) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "tmux", args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}

func parseWindows(out string) ([]window, error) {
	var windows []window
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, fieldSep, 4)
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid window line %q: expected 4 fields, got %d", line, len(parts))
		}
		index, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid window index in %q: %w", line, err)
		}
		windows = append(windows, window{
			id:     parts[0],
			index:  index,
			name:   parts[2],
			active: parts[3] == "1",
		})
	}
	return windows, nil
}

func parsePanes(out string) ([]tmuxPane, error) {
	var panes []tmuxPane
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, fieldSep, 4)
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid pane line %q: expected 4 fields, got %d", line, len(parts))
		}
		id, err := parsePaneID(parts[1])
		if err != nil {
			return nil, err
		}
		panes = append(panes, tmuxPane{
			windowID: parts[0],
			id:       id,
			active:   parts[2] == "1",
			title:    parts[3],
		})
	}
	return panes, nil
}

// parsePaneID parses a tmux pane id such as "%12".
func parsePaneID(s string) (uint32, error) {
	if !strings.HasPrefix(s, "%") {
		return 0, fmt.Errorf("invalid pane id %q: missing '%%'", s)
	}
	v, err := strconv.ParseUint(s[1:], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid pane id %q: %w", s, err)
	}
	return uint32(v), nil
}

// buildSnapshot numbers windows in window index order; gaps in window
// indices do not leave gaps in tab positions. tmux keeps an active pane in every window; only the one in the
// active window has the user's focus.
func buildSnapshot(windows []window, panes []tmuxPane) (Snapshot, map[int]string) {
	snap := Snapshot{Panes: model.PaneManifest{}}
	ids := make(map[int]string, len(windows))
	position := make(map[string]int, len(windows))
	current := make(map[string]bool, len(windows))

	windows = append([]window(nil), windows...)
	sort.SliceStable(windows, func(i, j int) bool { return windows[i].index < windows[j].index })
	for pos, w := range windows {
		snap.Tabs = append(snap.Tabs, model.Tab{Position: pos, Name: w.name, Active: w.active})
		ids[pos] = w.id
		position[w.id] = pos
		current[w.id] = w.active
	}
	for _, p := range panes {
		pos, ok := position[p.windowID]
		if !ok {
			continue
		}
		snap.Panes[pos] = append(snap.Panes[pos], model.Pane{
			ID:      model.TerminalPane(p.id),
			Focused: p.active && current[p.windowID],
			Title:   p.title,
		})
	}
	return snap, ids
}
