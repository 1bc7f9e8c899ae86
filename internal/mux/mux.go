// Package mux provides an abstraction over terminal multiplexers (tmux, zellij).
//
// This package is pure transport: it reports the topology the host exposes
// (tabs, panes, focus, titles) and writes titles back. Deciding what a title
// should be is the job of the state package.
package mux

import (
	"context"

	"github.com/timvw/emotitle/internal/model"
)

// Snapshot is one observation of both topology channels.
type Snapshot struct {
	Tabs  []model.Tab        `json:"tabs"`
	Panes model.PaneManifest `json:"panes"`
}

// Multiplexer abstracts terminal multiplexer operations.
// Implementations exist for tmux and (future) zellij.
type Multiplexer interface {
	// Name returns the multiplexer name (e.g., "tmux", "zellij").
	Name() string

	// Snapshot returns the current tabs and the panes resident in each.
	Snapshot(ctx context.Context) (Snapshot, error)

	// RenamePane sets the title of a terminal pane.
	RenamePane(ctx context.Context, id model.PaneID, title string) error

	// RenameTab sets the name of a tab. Implementations pick whichever half
	// of the reference their host addresses tabs by.
	RenameTab(ctx context.Context, ref model.TabRef, title string) error
}
