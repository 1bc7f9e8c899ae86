package state

import (
	"github.com/timvw/emotitle/internal/model"
	"github.com/timvw/emotitle/internal/tabindex"
)

// TabInfo is one tab as seen by both topology channels.
type TabInfo struct {
	Position int          `json:"position"`
	Name     string       `json:"name"`
	Active   bool         `json:"active"`
	Panes    []model.Pane `json:"panes"`
}

// PaneEntryInfo is a pane decoration entry.
type PaneEntryInfo struct {
	Pane model.PaneID `json:"pane"`
	Entry
}

// TabEntryInfo is a tab decoration entry keyed by its last resolved position.
type TabEntryInfo struct {
	Position int `json:"position"`
	TabEntry
}

// Info is the diagnostic view of a State.
type Info struct {
	Tabs             []TabInfo        `json:"tabs"`
	FocusedTabIndex  *int             `json:"focused_tab_index"`
	FocusedPane      *model.PaneID    `json:"focused_pane"`
	InternalIndexMap []tabindex.Entry `json:"internal_index_map"`
	EventHistory     []tabindex.Event `json:"event_history"`
	PaneEntries      []PaneEntryInfo  `json:"pane_entries"`
	TabEntries       []TabEntryInfo   `json:"tab_entries"`
	PendingRestores  []Restore        `json:"pending_restores"`
}

// Info returns a copy of the current state.
func (s *State) Info() Info {
	info := Info{
		Tabs:             []TabInfo{},
		InternalIndexMap: s.tracker.Entries(),
		EventHistory:     s.tracker.History(),
		PaneEntries:      []PaneEntryInfo{},
		TabEntries:       []TabEntryInfo{},
		PendingRestores:  s.pending.snapshot(),
	}

	if len(s.tabs) > 0 {
		for _, t := range s.tabs {
			info.Tabs = append(info.Tabs, TabInfo{
				Position: t.Position,
				Name:     t.Name,
				Active:   t.Active,
				Panes:    panesOrEmpty(s.manifest[t.Position]),
			})
		}
	} else {
		for _, pos := range s.manifest.Positions() {
			info.Tabs = append(info.Tabs, TabInfo{Position: pos, Panes: panesOrEmpty(s.manifest[pos])})
		}
	}

	if pos, ok := s.FocusedTab(); ok {
		info.FocusedTabIndex = &pos
	}
	if id, ok := s.FocusedPane(); ok {
		info.FocusedPane = &id
	}

	for _, id := range s.store.paneIDs() {
		info.PaneEntries = append(info.PaneEntries, PaneEntryInfo{Pane: id, Entry: *s.store.panes[id]})
	}
	for _, pos := range s.store.tabPositions() {
		e, _ := s.store.Tab(pos)
		info.TabEntries = append(info.TabEntries, TabEntryInfo{Position: pos, TabEntry: e})
	}
	if info.InternalIndexMap == nil {
		info.InternalIndexMap = []tabindex.Entry{}
	}
	if info.EventHistory == nil {
		info.EventHistory = []tabindex.Event{}
	}
	if info.PendingRestores == nil {
		info.PendingRestores = []Restore{}
	}
	return info
}

func panesOrEmpty(panes []model.Pane) []model.Pane {
	if panes == nil {
		return []model.Pane{}
	}
	return append([]model.Pane(nil), panes...)
}
