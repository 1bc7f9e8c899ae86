package state

import (
	"sort"

	"github.com/timvw/emotitle/internal/model"
	"github.com/timvw/emotitle/internal/title"
)

// Entry records what a decorated item looked like before decoration.
type Entry struct {
	OriginalTitle string     `json:"original_title"`
	Decoration    string     `json:"decoration"`
	Mode          model.Mode `json:"mode"`
}

// TabEntry is a tab-level entry. Anchor is a terminal pane that lived in the
// tab when the decoration was created; it relocates the entry after the host
// renumbers tabs.
type TabEntry struct {
	Entry
	Anchor *model.PaneID `json:"anchor,omitempty"`
}

// Store holds decoration entries for panes (by identity) and tabs (by the
// position they were last resolved to).
type Store struct {
	panes map[model.PaneID]*Entry
	tabs  map[int]*TabEntry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		panes: make(map[model.PaneID]*Entry),
		tabs:  make(map[int]*TabEntry),
	}
}

// UpsertPane creates or refreshes the entry for id. An existing entry keeps
// its stored original so that an already-decorated title is never mistaken
// for the original.
func (s *Store) UpsertPane(id model.PaneID, original, decoration string, mode model.Mode) {
	if e, ok := s.panes[id]; ok {
		original = e.OriginalTitle
	}
	s.panes[id] = &Entry{OriginalTitle: original, Decoration: decoration, Mode: mode}
}

// UpsertTab creates or refreshes the entry at position. The stored original
// is kept unless the anchor changed, in which case the entry is replaced.
func (s *Store) UpsertTab(position int, anchor *model.PaneID, original, decoration string, mode model.Mode) {
	if e, ok := s.tabs[position]; ok && sameAnchor(e.Anchor, anchor) {
		original = e.OriginalTitle
	}
	s.tabs[position] = &TabEntry{
		Entry:  Entry{OriginalTitle: original, Decoration: decoration, Mode: mode},
		Anchor: cloneID(anchor),
	}
}

// Pane returns a copy of the entry for id.
func (s *Store) Pane(id model.PaneID) (Entry, bool) {
	e, ok := s.panes[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Tab returns a copy of the entry stored at position.
func (s *Store) Tab(position int) (TabEntry, bool) {
	e, ok := s.tabs[position]
	if !ok {
		return TabEntry{}, false
	}
	out := *e
	out.Anchor = cloneID(e.Anchor)
	return out, true
}

// Original returns the stored original title of pane id.
func (s *Store) Original(id model.PaneID) (string, bool) {
	e, ok := s.panes[id]
	if !ok {
		return "", false
	}
	return e.OriginalTitle, true
}

// TabOriginal returns the stored original title of the tab at position.
func (s *Store) TabOriginal(position int) (string, bool) {
	e, ok := s.tabs[position]
	if !ok {
		return "", false
	}
	return e.OriginalTitle, true
}

// Effective returns the title a new decoration should be appended to. When
// the host shows the bare original, the stored decoration is put back;
// anything else was written externally and is taken verbatim.
func (s *Store) Effective(id model.PaneID, observed string) string {
	e, ok := s.panes[id]
	if !ok {
		return observed
	}
	return effective(e, observed)
}

// TabEffective is Effective for the tab entry at position.
func (s *Store) TabEffective(position int, observed string) string {
	e, ok := s.tabs[position]
	if !ok {
		return observed
	}
	return effective(&e.Entry, observed)
}

func effective(e *Entry, observed string) string {
	if observed == e.OriginalTitle {
		return title.Compose(e.OriginalTitle, e.Decoration)
	}
	return observed
}

// RemovePane drops the entry for id.
func (s *Store) RemovePane(id model.PaneID) {
	delete(s.panes, id)
}

// RemoveTab drops the entry stored at position.
func (s *Store) RemoveTab(position int) {
	delete(s.tabs, position)
}

// PrunePanes drops entries for panes absent from manifest and returns them.
func (s *Store) PrunePanes(manifest model.PaneManifest) []model.PaneID {
	present := make(map[model.PaneID]bool)
	for _, panes := range manifest {
		for _, p := range panes {
			present[p.ID] = true
		}
	}
	var removed []model.PaneID
	for id := range s.panes {
		if !present[id] {
			removed = append(removed, id)
			delete(s.panes, id)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].Less(removed[j]) })
	return removed
}

// Len returns the number of pane and tab entries.
func (s *Store) Len() (panes, tabs int) {
	return len(s.panes), len(s.tabs)
}

func (s *Store) paneIDs() []model.PaneID {
	ids := make([]model.PaneID, 0, len(s.panes))
	for id := range s.panes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

func (s *Store) tabPositions() []int {
	positions := make([]int, 0, len(s.tabs))
	for pos := range s.tabs {
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	return positions
}

func sameAnchor(a, b *model.PaneID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneID(id *model.PaneID) *model.PaneID {
	if id == nil {
		return nil
	}
	out := *id
	return &out
}
