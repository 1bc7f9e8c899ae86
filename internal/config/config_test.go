package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load consults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"EMOTITLE_MUX", "EMOTITLE_SESSION", "EMOTITLE_POLL_INTERVAL", "EMOTITLE_SOCKET",
		"EMOTITLE_EVENT_HISTORY", "EMOTITLE_OTEL_ENDPOINT", "EMOTITLE_OTEL_HEADERS",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_HEADERS",
	} {
		t.Setenv(key, "")
	}
}

// chdir switches to dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(origDir) })
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.PollInterval != "1s" {
		t.Errorf("PollInterval: got %q, want %q", cfg.PollInterval, "1s")
	}
	if cfg.EventHistory != 200 {
		t.Errorf("EventHistory: got %d, want %d", cfg.EventHistory, 200)
	}
	if cfg.SocketPath == "" {
		t.Error("SocketPath: expected a default")
	}
}

func TestDefaultSocketPath(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	if got := DefaultSocketPath(); got != "/run/user/1000/emotitle/emotitle.sock" {
		t.Errorf("DefaultSocketPath() = %q", got)
	}

	t.Setenv("XDG_RUNTIME_DIR", "")
	if got := DefaultSocketPath(); !strings.HasPrefix(filepath.Base(got), "emotitle-") {
		t.Errorf("DefaultSocketPath() without XDG_RUNTIME_DIR = %q", got)
	}
}

func TestParseDurationOrDisable(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMs  int64
		wantErr bool
	}{
		{"empty returns fallback", "", 5000, false},
		{"zero disables", "0", 0, false},
		{"off disables", "off", 0, false},
		{"disable disables", "disable", 0, false},
		{"valid duration", "30s", 30000, false},
		{"valid short duration", "500ms", 500, false},
		{"invalid", "not-a-duration", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDurationOrDisable(tt.input, 5*time.Second)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDurationOrDisable(%q): error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got.Milliseconds() != tt.wantMs {
				t.Errorf("parseDurationOrDisable(%q) = %v, want %dms", tt.input, got, tt.wantMs)
			}
		})
	}
}

func TestLoadWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ConfigFile != "" {
		t.Errorf("ConfigFile: got %q, want empty", cfg.ConfigFile)
	}
	if cfg.PollDuration != time.Second {
		t.Errorf("PollDuration: got %v, want 1s", cfg.PollDuration)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `mux: tmux
session: work
poll_interval: "250ms"
socket_path: /tmp/test-emotitle.sock
event_history: 50
otel_endpoint: http://localhost:4318
`
	if err := os.WriteFile(filepath.Join(dir, ".emotitle.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	clearEnv(t)
	chdir(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Mux != "tmux" {
		t.Errorf("Mux: got %q, want %q", cfg.Mux, "tmux")
	}
	if cfg.Session != "work" {
		t.Errorf("Session: got %q, want %q", cfg.Session, "work")
	}
	if cfg.PollDuration != 250*time.Millisecond {
		t.Errorf("PollDuration: got %v, want 250ms", cfg.PollDuration)
	}
	if cfg.SocketPath != "/tmp/test-emotitle.sock" {
		t.Errorf("SocketPath: got %q", cfg.SocketPath)
	}
	if cfg.EventHistory != 50 {
		t.Errorf("EventHistory: got %d, want 50", cfg.EventHistory)
	}
	if cfg.OTELEndpoint != "http://localhost:4318" {
		t.Errorf("OTELEndpoint: got %q", cfg.OTELEndpoint)
	}
	if cfg.ConfigFile != ".emotitle.yaml" {
		t.Errorf("ConfigFile: got %q", cfg.ConfigFile)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	content := `mux: tmux
poll_interval: "5s"
`
	if err := os.WriteFile(filepath.Join(dir, ".emotitle.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	clearEnv(t)
	chdir(t, dir)

	t.Setenv("EMOTITLE_MUX", "zellij")
	t.Setenv("EMOTITLE_POLL_INTERVAL", "2s")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "Authorization=Basic abc")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Mux != "zellij" {
		t.Errorf("Mux: got %q, want %q (env should override file)", cfg.Mux, "zellij")
	}
	if cfg.PollDuration != 2*time.Second {
		t.Errorf("PollDuration: got %v, want 2s (env should override file)", cfg.PollDuration)
	}
	if cfg.OTELHeaders != "Authorization=Basic abc" {
		t.Errorf("OTELHeaders: got %q", cfg.OTELHeaders)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad duration", `poll_interval: "soon"`},
		{"disabled poll", `poll_interval: "off"`},
		{"negative history", `event_history: -1`},
		{"bad yaml", `mux: [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFile(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestWatchReloads(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(`poll_interval: "1s"`), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(cfg *Config) { reloaded <- cfg })
	}()

	// The watcher starts asynchronously; keep rewriting until it notices.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case cfg := <-reloaded:
			// A reload may observe the file mid-write; wait for the full content.
			if cfg.PollDuration != 3*time.Second {
				continue
			}
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("Watch() error: %v", err)
			}
			return
		case <-tick.C:
			if err := os.WriteFile(path, []byte(`poll_interval: "3s"`), 0644); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}

func TestWatchWithoutFile(t *testing.T) {
	if err := Watch(context.Background(), "", func(*Config) {}); err == nil {
		t.Fatal("expected error without a config file")
	}
}
