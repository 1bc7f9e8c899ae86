// Package tabindex assigns tabs a numbering that survives host position
// churn.
//
// Hosts renumber tabs on every add, remove and reorder, but rename
// operations address tabs by an ordinal the host allocated when the tab was
// created. The Tracker reproduces that ordinal: a tab is identified by the
// set of pane identities resident in it, and keeps its index for as long as
// its current pane set overlaps the one last seen.
package tabindex

import (
	"sort"
	"strings"

	"github.com/timvw/emotitle/internal/model"
)

// DefaultHistory is the default capacity of the event log.
const DefaultHistory = 200

// EventType names a change recorded by the tracker.
type EventType string

const (
	TabAdded      EventType = "TabAdded"
	TabKeyUpdated EventType = "TabKeyUpdated"
	TabRemoved    EventType = "TabRemoved"
)

// Event is a diagnostic record of a key-set change.
type Event struct {
	Seq           uint64         `json:"seq"`
	Type          EventType      `json:"event_type"`
	PaneKeys      []model.PaneID `json:"pane_keys"`
	InternalIndex int            `json:"internal_index"`
}

// Entry is one row of the key-set table.
type Entry struct {
	PaneKeys      []model.PaneID `json:"pane_keys"`
	InternalIndex int            `json:"internal_index"`
}

// Tracker maps pane key-sets to stable internal indices. It is not safe for
// concurrent use.
type Tracker struct {
	entries []Entry
	next    int

	// removed holds signatures of key-sets already reported gone so a stale
	// pane snapshot cannot resurrect them.
	removed map[string]struct{}

	// positions is the position -> key-set view from the latest update.
	positions map[int][]model.PaneID

	history  []Event
	capacity int
	seq      uint64
}

// New returns a tracker whose event log holds at most capacity events.
// A non-positive capacity uses DefaultHistory.
func New(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultHistory
	}
	return &Tracker{
		removed:   make(map[string]struct{}),
		positions: make(map[int][]model.PaneID),
		capacity:  capacity,
	}
}

// UpdateForPanes applies a pane-topology update. Tabs are never reported
// removed from here: removal is a tab-list concept.
func (t *Tracker) UpdateForPanes(tabs []model.Tab, manifest model.PaneManifest) {
	t.update(tabs, manifest)
}

// UpdateForTabs applies a tab-topology update: key-sets that no longer
// overlap any current tab are recorded removed, then the table is refreshed.
//
// The removal pass is skipped while the two channels disagree on the set of
// positions; a stale manifest would otherwise retire the wrong tab.
func (t *Tracker) UpdateForTabs(tabs []model.Tab, manifest model.PaneManifest) {
	if consistent(tabs, manifest) {
		t.removeStale(tabs, manifest)
	}
	t.update(tabs, manifest)
}

func (t *Tracker) removeStale(tabs []model.Tab, manifest model.PaneManifest) {
	current := currentKeySets(tabs, manifest)

	kept := t.entries[:0]
	for _, e := range t.entries {
		alive := false
		for _, keys := range current {
			if overlaps(e.PaneKeys, keys) {
				alive = true
				break
			}
		}
		if alive {
			kept = append(kept, e)
			continue
		}
		t.removed[signature(e.PaneKeys)] = struct{}{}
		t.record(TabRemoved, e.PaneKeys, e.InternalIndex)
	}
	t.entries = kept
}

func consistent(tabs []model.Tab, manifest model.PaneManifest) bool {
	if len(tabs) != len(manifest) {
		return false
	}
	for _, tab := range tabs {
		if _, ok := manifest[tab.Position]; !ok {
			return false
		}
	}
	return true
}

func (t *Tracker) update(tabs []model.Tab, manifest model.PaneManifest) {
	t.positions = make(map[int][]model.PaneID, len(tabs))
	claimed := make(map[int]bool, len(t.entries))

	for _, tab := range tabs {
		keys := manifest.KeySet(tab.Position)
		if len(keys) == 0 {
			continue
		}
		t.positions[tab.Position] = keys

		i := t.match(keys, claimed)
		switch {
		case i < 0:
			if _, gone := t.removed[signature(keys)]; gone {
				continue
			}
			e := Entry{PaneKeys: keys, InternalIndex: t.next}
			t.next++
			t.entries = append(t.entries, e)
			claimed[len(t.entries)-1] = true
			t.record(TabAdded, keys, e.InternalIndex)
		case equal(t.entries[i].PaneKeys, keys):
			claimed[i] = true
		default:
			claimed[i] = true
			t.entries[i].PaneKeys = keys
			t.record(TabKeyUpdated, keys, t.entries[i].InternalIndex)
		}
	}
}

// match returns the first unclaimed entry overlapping keys, or -1. Entries
// are kept in allocation order so the lowest index wins.
func (t *Tracker) match(keys []model.PaneID, claimed map[int]bool) int {
	for i, e := range t.entries {
		if !claimed[i] && overlaps(e.PaneKeys, keys) {
			return i
		}
	}
	return -1
}

// InternalIndex returns the internal index of the tab at position as of the
// latest update.
func (t *Tracker) InternalIndex(position int) (int, bool) {
	keys, ok := t.positions[position]
	if !ok {
		return 0, false
	}
	for _, e := range t.entries {
		if overlaps(e.PaneKeys, keys) {
			return e.InternalIndex, true
		}
	}
	return 0, false
}

// RenameTarget returns the 1-based ordinal the host expects when renaming
// the tab at position.
func (t *Tracker) RenameTarget(position int) (int, bool) {
	idx, ok := t.InternalIndex(position)
	if !ok {
		return 0, false
	}
	return idx + 1, true
}

// Entries returns a copy of the key-set table ordered by internal index.
func (t *Tracker) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		out[i] = Entry{PaneKeys: append([]model.PaneID(nil), e.PaneKeys...), InternalIndex: e.InternalIndex}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InternalIndex < out[j].InternalIndex })
	return out
}

// History returns the event log, oldest first.
func (t *Tracker) History() []Event {
	return append([]Event(nil), t.history...)
}

func (t *Tracker) record(typ EventType, keys []model.PaneID, index int) {
	t.seq++
	t.history = append(t.history, Event{
		Seq:           t.seq,
		Type:          typ,
		PaneKeys:      append([]model.PaneID(nil), keys...),
		InternalIndex: index,
	})
	if over := len(t.history) - t.capacity; over > 0 {
		t.history = append(t.history[:0:0], t.history[over:]...)
	}
}

func currentKeySets(tabs []model.Tab, manifest model.PaneManifest) [][]model.PaneID {
	var out [][]model.PaneID
	for _, tab := range tabs {
		if keys := manifest.KeySet(tab.Position); len(keys) > 0 {
			out = append(out, keys)
		}
	}
	return out
}

func overlaps(a, b []model.PaneID) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func equal(a, b []model.PaneID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func signature(keys []model.PaneID) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, ",")
}
