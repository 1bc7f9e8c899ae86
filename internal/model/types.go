// Package model holds the value types shared by the reconciliation engine,
// the multiplexer transports and the daemon.
//
// Everything here is plain data: pane identities, the two topology channels
// (pane manifest and tab list) and the resolved decoration command.
package model

import (
	"fmt"
	"sort"
)

// PaneKind distinguishes terminal panes from plugin panes. The two kinds
// have independent id spaces on the host.
type PaneKind string

const (
	KindTerminal PaneKind = "terminal"
	KindPlugin   PaneKind = "plugin"
)

// PaneID is the only stable handle for a pane. It is unique for the pane's
// lifetime; ids carry no ordering across panes.
type PaneID struct {
	Kind PaneKind `json:"kind"`
	ID   uint32   `json:"id"`
}

// TerminalPane returns the identity of terminal pane id.
func TerminalPane(id uint32) PaneID {
	return PaneID{Kind: KindTerminal, ID: id}
}

// PluginPane returns the identity of plugin pane id.
func PluginPane(id uint32) PaneID {
	return PaneID{Kind: KindPlugin, ID: id}
}

// IsTerminal reports whether p names a terminal pane.
func (p PaneID) IsTerminal() bool {
	return p.Kind == KindTerminal
}

func (p PaneID) String() string {
	return fmt.Sprintf("%s_%d", p.Kind, p.ID)
}

// Less orders identities terminal-first, then by id. Only used to make
// key-sets and debug output deterministic.
func (p PaneID) Less(o PaneID) bool {
	if p.Kind != o.Kind {
		return p.Kind == KindTerminal
	}
	return p.ID < o.ID
}

// Pane is one entry of the pane topology channel.
type Pane struct {
	ID      PaneID `json:"id"`
	Focused bool   `json:"focused"`
	Title   string `json:"title"`
}

// Tab is one entry of the tab topology channel. Position is the host's
// volatile 0-based ordinal and changes on every add/remove/reorder.
type Tab struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
}

// PaneManifest maps a tab position to the ordered panes resident in it.
type PaneManifest map[int][]Pane

// Positions returns the tab positions in ascending order.
func (m PaneManifest) Positions() []int {
	positions := make([]int, 0, len(m))
	for pos := range m {
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	return positions
}

// Find returns the pane with the given identity and the position of its tab.
func (m PaneManifest) Find(id PaneID) (Pane, int, bool) {
	for _, pos := range m.Positions() {
		for _, p := range m[pos] {
			if p.ID == id {
				return p, pos, true
			}
		}
	}
	return Pane{}, 0, false
}

// Contains reports whether the identity is present anywhere in the manifest.
func (m PaneManifest) Contains(id PaneID) bool {
	_, _, ok := m.Find(id)
	return ok
}

// TabsContaining returns every position holding id, ascending. More than one
// result only happens while the host is mid-update.
func (m PaneManifest) TabsContaining(id PaneID) []int {
	var out []int
	for _, pos := range m.Positions() {
		for _, p := range m[pos] {
			if p.ID == id {
				out = append(out, pos)
				break
			}
		}
	}
	return out
}

// Focused returns every focused pane, ordered by tab position.
func (m PaneManifest) Focused() []Pane {
	var out []Pane
	for _, pos := range m.Positions() {
		for _, p := range m[pos] {
			if p.Focused {
				out = append(out, p)
			}
		}
	}
	return out
}

// KeySet returns the sorted identities resident at position.
func (m PaneManifest) KeySet(position int) []PaneID {
	panes := m[position]
	keys := make([]PaneID, 0, len(panes))
	for _, p := range panes {
		keys = append(keys, p.ID)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// AnchorCandidate picks the terminal pane that should anchor a tab-level
// decoration at position: the focused terminal pane, else the first one.
func (m PaneManifest) AnchorCandidate(position int) (PaneID, bool) {
	var first *PaneID
	for _, p := range m[position] {
		if !p.ID.IsTerminal() {
			continue
		}
		if p.Focused {
			return p.ID, true
		}
		if first == nil {
			id := p.ID
			first = &id
		}
	}
	if first == nil {
		return PaneID{}, false
	}
	return *first, true
}

// ActiveTab returns the tab reported active by the tab channel.
func ActiveTab(tabs []Tab) (Tab, bool) {
	for _, t := range tabs {
		if t.Active {
			return t, true
		}
	}
	return Tab{}, false
}

// TabRef addresses a tab for renaming. Position is the volatile host
// position; Ordinal is the stable 1-based number of hosts that rename tabs
// by creation order.
type TabRef struct {
	Position int `json:"position"`
	Ordinal  int `json:"ordinal"`
}

// FindTab returns the tab at position.
func FindTab(tabs []Tab, position int) (Tab, bool) {
	for _, t := range tabs {
		if t.Position == position {
			return t, true
		}
	}
	return Tab{}, false
}

// Mode controls how long a decoration lives.
type Mode int

const (
	// Temporary decorations are consumed the first time the item is focused.
	Temporary Mode = iota
	// Permanent decorations keep their entry while pinned segments remain.
	Permanent
)

func (m Mode) String() string {
	if m == Permanent {
		return "permanent"
	}
	return "temp"
}

// MarshalText encodes the mode with its wire name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a wire name produced by MarshalText.
func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMode parses the wire name of a mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "temp", "temporary":
		return Temporary, nil
	case "permanent":
		return Permanent, nil
	default:
		return Temporary, fmt.Errorf("unsupported mode: %s", s)
	}
}

// TargetKind selects what a command decorates.
type TargetKind string

const (
	TargetPane TargetKind = "pane"
	TargetTab  TargetKind = "tab"
)

// Target is the resolved target of a decoration command. PaneID and
// TabIndex are optional; when both are nil the focused item is used.
type Target struct {
	Kind     TargetKind `json:"kind"`
	PaneID   *uint32    `json:"pane_id,omitempty"`
	TabIndex *int       `json:"tab_index,omitempty"`
}

// Command is a validated decoration request.
type Command struct {
	Target     Target `json:"target"`
	Decoration string `json:"decoration"`
	Mode       Mode   `json:"mode"`
}
