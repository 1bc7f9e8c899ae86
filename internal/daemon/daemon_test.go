package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"pkt.systems/pslog"

	"github.com/timvw/emotitle/internal/model"
	"github.com/timvw/emotitle/internal/mux"
)

// fakeMux applies renames to its own snapshot, as a real host would.
type fakeMux struct {
	mu    sync.Mutex
	snap  mux.Snapshot
	err   error
	calls []string
	// failRenames makes the next n renames fail.
	failRenames int
}

func newFakeMux() *fakeMux {
	return &fakeMux{snap: mux.Snapshot{
		Tabs: []model.Tab{
			{Position: 0, Name: "shell", Active: true},
			{Position: 1, Name: "logs"},
		},
		Panes: model.PaneManifest{
			0: {{ID: model.TerminalPane(1), Focused: true, Title: "bash"}},
			1: {{ID: model.TerminalPane(2), Title: "tail"}},
		},
	}}
}

func (f *fakeMux) Name() string { return "fake" }

func (f *fakeMux) Snapshot(context.Context) (mux.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return mux.Snapshot{}, f.err
	}
	out := mux.Snapshot{Tabs: append([]model.Tab(nil), f.snap.Tabs...), Panes: model.PaneManifest{}}
	for pos, panes := range f.snap.Panes {
		out.Panes[pos] = append([]model.Pane(nil), panes...)
	}
	return out, nil
}

func (f *fakeMux) RenamePane(_ context.Context, id model.PaneID, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("pane %s %s", id, title))
	if f.failRenames > 0 {
		f.failRenames--
		return errors.New("transient rename failure")
	}
	for pos, panes := range f.snap.Panes {
		for i := range panes {
			if panes[i].ID == id {
				f.snap.Panes[pos][i].Title = title
				return nil
			}
		}
	}
	return fmt.Errorf("no pane %s", id)
}

func (f *fakeMux) RenameTab(_ context.Context, ref model.TabRef, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("tab %d %s", ref.Position, title))
	if f.failRenames > 0 {
		f.failRenames--
		return errors.New("transient rename failure")
	}
	for i := range f.snap.Tabs {
		if f.snap.Tabs[i].Position == ref.Position {
			f.snap.Tabs[i].Name = title
			return nil
		}
	}
	return fmt.Errorf("no tab %d", ref.Position)
}

// focus makes position the active tab and its first pane the focused one.
func (f *fakeMux) focus(position int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.snap.Tabs {
		f.snap.Tabs[i].Active = f.snap.Tabs[i].Position == position
	}
	for pos, panes := range f.snap.Panes {
		for i := range panes {
			f.snap.Panes[pos][i].Focused = pos == position && i == 0
		}
	}
}

func (f *fakeMux) paneTitle(id model.PaneID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, _, _ := f.snap.Panes.Find(id)
	return p.Title
}

func (f *fakeMux) tabName(position int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	tab, _ := model.FindTab(f.snap.Tabs, position)
	return tab.Name
}

func (f *fakeMux) failNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRenames = n
}

func (f *fakeMux) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testLogger(buf *bytes.Buffer) pslog.Logger {
	return pslog.NewWithOptions(buf, pslog.Options{
		Mode:     pslog.ModeStructured,
		NoColor:  true,
		MinLevel: pslog.DebugLevel,
	})
}

func newTestDaemon(t *testing.T, f *fakeMux) *Daemon {
	t.Helper()
	d, err := New(Options{
		Mux:          f,
		SocketPath:   shortSocketPath(t),
		PollInterval: 20 * time.Millisecond,
		Logger:       testLogger(&bytes.Buffer{}),
	})
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	return d
}

func TestNew_Validates(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{name: "no mux", opts: Options{SocketPath: "/tmp/x.sock", PollInterval: time.Second}, want: "multiplexer is required"},
		{name: "no socket", opts: Options{Mux: newFakeMux(), PollInterval: time.Second}, want: "socket path is required"},
		{name: "no interval", opts: Options{Mux: newFakeMux(), SocketPath: "/tmp/x.sock"}, want: "poll interval must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestHandle_TemporaryPaneRestoredOnFocus(t *testing.T) {
	ctx := context.Background()
	f := newFakeMux()
	d := newTestDaemon(t, f)
	d.tick(ctx)

	resp := d.handle(ctx, Request{ID: "r1", Args: map[string]string{
		"target": "pane", "emojis": "🚀", "pane_id": "2",
	}})
	if !resp.OK || resp.Output != ReplyOK || resp.ID != "r1" {
		t.Fatalf("expected ok reply for r1, got %+v", resp)
	}
	if got := f.paneTitle(model.TerminalPane(2)); got != "tail | 🚀" {
		t.Fatalf("expected decorated title, got %q", got)
	}

	d.tick(ctx)
	if got := f.paneTitle(model.TerminalPane(2)); got != "tail | 🚀" {
		t.Fatalf("expected decoration to survive while unfocused, got %q", got)
	}

	f.focus(1)
	d.tick(ctx)
	if got := f.paneTitle(model.TerminalPane(2)); got != "tail" {
		t.Fatalf("expected title restored on focus, got %q", got)
	}
	if n := len(d.state.Info().PaneEntries); n != 0 {
		t.Fatalf("expected entry to be consumed, got %d entries", n)
	}
}

func TestHandle_PinnedTabSurvivesFocus(t *testing.T) {
	ctx := context.Background()
	f := newFakeMux()
	d := newTestDaemon(t, f)
	d.tick(ctx)

	resp := d.handle(ctx, Request{ID: "r2", Args: map[string]string{
		"target": "tab", "emojis": "🔔 | 📌✅", "mode": "permanent", "tab_index": "1",
	}})
	if !resp.OK {
		t.Fatalf("expected ok reply, got %+v", resp)
	}
	if got := f.tabName(1); got != "logs | 🔔 | 📌✅" {
		t.Fatalf("expected decorated tab, got %q", got)
	}

	f.focus(1)
	d.tick(ctx)
	if got := f.tabName(1); got != "logs | 📌✅" {
		t.Fatalf("expected only the pinned segment to remain, got %q", got)
	}
	if n := len(d.state.Info().TabEntries); n != 1 {
		t.Fatalf("expected pinned tab entry to be kept, got %d", n)
	}
}

func TestFlush_FailedRestoreRetried(t *testing.T) {
	ctx := context.Background()
	f := newFakeMux()
	d := newTestDaemon(t, f)
	d.tick(ctx)

	resp := d.handle(ctx, Request{ID: "r3", Args: map[string]string{
		"target": "pane", "emojis": "🔔", "pane_id": "2",
	}})
	if !resp.OK {
		t.Fatalf("expected ok reply, got %+v", resp)
	}

	f.failNext(1)
	f.focus(1)
	d.tick(ctx)
	if got := f.paneTitle(model.TerminalPane(2)); got != "tail | 🔔" {
		t.Fatalf("expected failed restore to leave the title, got %q", got)
	}
	if n := d.state.Pending(); n != 1 {
		t.Fatalf("expected failed restore to stay queued, got %d", n)
	}

	d.tick(ctx)
	if got := f.paneTitle(model.TerminalPane(2)); got != "tail" {
		t.Fatalf("expected restore on the next poll, got %q", got)
	}
	if n := d.state.Pending(); n != 0 {
		t.Fatalf("expected queue to be empty, got %d", n)
	}
}

func TestHandle_FailedRenameLeavesNoEntry(t *testing.T) {
	ctx := context.Background()
	f := newFakeMux()
	d := newTestDaemon(t, f)
	d.tick(ctx)

	f.failNext(1)
	resp := d.handle(ctx, Request{ID: "r4", Args: map[string]string{
		"target": "pane", "emojis": "🔔", "pane_id": "2",
	}})
	if resp.OK || !strings.Contains(resp.Output, "transient rename failure") {
		t.Fatalf("expected rename failure reply, got %+v", resp)
	}
	if n := len(d.state.Info().PaneEntries); n != 0 {
		t.Fatalf("expected no entry after a failed rename, got %d", n)
	}

	d.tick(ctx)
	resp = d.handle(ctx, Request{ID: "r5", Args: map[string]string{
		"target": "pane", "emojis": "📚", "pane_id": "2",
	}})
	if !resp.OK {
		t.Fatalf("expected ok reply, got %+v", resp)
	}
	if got := f.paneTitle(model.TerminalPane(2)); got != "tail | 📚" {
		t.Fatalf("expected only the new decoration, got %q", got)
	}
}

func TestHandle_Info(t *testing.T) {
	ctx := context.Background()
	d := newTestDaemon(t, newFakeMux())
	d.tick(ctx)

	resp := d.handle(ctx, Request{ID: "i", Args: map[string]string{"info": "true"}})
	if !resp.OK {
		t.Fatalf("expected ok reply, got %+v", resp)
	}
	var dump map[string]json.RawMessage
	if err := json.Unmarshal([]byte(resp.Output), &dump); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	for _, key := range []string{"tabs", "focused_tab_index", "pane_entries", "tab_entries", "pending_restores"} {
		if _, ok := dump[key]; !ok {
			t.Fatalf("expected key %q in info output", key)
		}
	}
}

func TestHandle_Failures(t *testing.T) {
	ctx := context.Background()
	f := newFakeMux()
	d := newTestDaemon(t, f)
	d.tick(ctx)

	tests := []struct {
		name string
		args map[string]string
		want string
	}{
		{name: "missing target", args: map[string]string{"emojis": "🚀"}, want: "missing required arg: target"},
		{name: "unsupported target", args: map[string]string{"target": "window", "emojis": "🚀"}, want: "unsupported target: window"},
		{name: "unknown pane", args: map[string]string{"target": "pane", "emojis": "🚀", "pane_id": "99"}, want: "pane not found"},
		{name: "unknown tab", args: map[string]string{"target": "tab", "emojis": "🚀", "tab_index": "7"}, want: "could not resolve tab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := d.handle(ctx, Request{ID: tt.name, Args: tt.args})
			if resp.OK {
				t.Fatalf("expected failure, got %+v", resp)
			}
			if !strings.Contains(resp.Output, tt.want) {
				t.Fatalf("expected output containing %q, got %q", tt.want, resp.Output)
			}
		})
	}
	if n := f.callCount(); n != 0 {
		t.Fatalf("expected no renames, got %d", n)
	}
}

func TestTick_SnapshotErrorIsLogged(t *testing.T) {
	f := newFakeMux()
	f.err = errors.New("server exited")
	var buf bytes.Buffer
	d, err := New(Options{
		Mux:          f,
		SocketPath:   shortSocketPath(t),
		PollInterval: time.Second,
		Logger:       testLogger(&buf),
	})
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}

	d.tick(context.Background())

	if !strings.Contains(buf.String(), "snapshot failed") || !strings.Contains(buf.String(), "server exited") {
		t.Fatalf("expected snapshot failure in log, got %q", buf.String())
	}
	resp := d.handle(context.Background(), Request{Args: map[string]string{"target": "pane", "emojis": "🚀"}})
	if resp.OK || !strings.Contains(resp.Output, "no topology snapshot") {
		t.Fatalf("expected missing snapshot error, got %+v", resp)
	}
}

func TestSetPollInterval_KeepsNewest(t *testing.T) {
	d := newTestDaemon(t, newFakeMux())

	d.SetPollInterval(0)
	d.SetPollInterval(2 * time.Second)
	d.SetPollInterval(3 * time.Second)

	select {
	case got := <-d.intervals:
		if got != 3*time.Second {
			t.Fatalf("expected 3s, got %s", got)
		}
	default:
		t.Fatal("expected a pending interval")
	}
	select {
	case got := <-d.intervals:
		t.Fatalf("expected a single pending interval, got another %s", got)
	default:
	}
}

func TestRun_ServesSocket(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFakeMux()
	d := newTestDaemon(t, f)

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	waitFor(t, 2*time.Second, func() bool {
		_, err := os.Stat(d.socket)
		return err == nil
	})

	resp, err := Send(ctx, d.socket, map[string]string{"target": "tab", "emojis": "🚀"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !resp.OK {
		t.Fatalf("expected ok reply, got %+v", resp)
	}
	if got := f.tabName(0); got != "shell | 🚀" {
		t.Fatalf("expected active tab decorated, got %q", got)
	}

	// The active tab is focused, so the next poll consumes the decoration.
	waitFor(t, 2*time.Second, func() bool { return f.tabName(0) == "shell" })

	resp, err = Send(ctx, d.socket, map[string]string{"info": "true"})
	if err != nil || !resp.OK {
		t.Fatalf("expected info reply, got %+v, %v", resp, err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop")
	}
	if _, err := os.Stat(PidPath(d.socket)); !os.IsNotExist(err) {
		t.Fatalf("expected pidfile removed, got %v", err)
	}
}

func TestRun_RefusesSecondInstance(t *testing.T) {
	socket := shortSocketPath(t)
	pidPath := PidPath(socket)
	t.Cleanup(func() { _ = os.Remove(pidPath) })
	if err := os.WriteFile(pidPath, []byte(fmt.Sprint(os.Getppid())), 0o644); err != nil {
		t.Fatalf("write pidfile: %v", err)
	}

	d, err := New(Options{Mux: newFakeMux(), SocketPath: socket, PollInterval: time.Second, Logger: testLogger(&bytes.Buffer{})})
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	err = d.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected already running error, got %v", err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func shortSocketPath(t *testing.T) string {
	t.Helper()
	base := filepath.Join(os.TempDir(), "emotitle-test")
	if err := os.MkdirAll(base, 0o700); err != nil {
		t.Fatalf("mkdir temp base: %v", err)
	}
	p := filepath.Join(base, fmt.Sprintf("%d-%d.sock", time.Now().UnixNano(), os.Getpid()))
	t.Cleanup(func() {
		_ = os.Remove(p)
	})
	return p
}
