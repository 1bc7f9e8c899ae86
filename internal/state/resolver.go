package state

import (
	"sort"

	"github.com/timvw/emotitle/internal/model"
)

// correspondPositions maps each old tab position to its best guess in the
// new layout: an exact match when the position still exists, otherwise the
// position with the same rank in the ascending lists. Old positions ranked
// beyond the end of the new list have no correspondent.
func correspondPositions(oldPositions, newPositions []int) map[int]int {
	oldSorted := append([]int(nil), oldPositions...)
	newSorted := append([]int(nil), newPositions...)
	sort.Ints(oldSorted)
	sort.Ints(newSorted)

	exists := make(map[int]bool, len(newSorted))
	for _, p := range newSorted {
		exists[p] = true
	}

	out := make(map[int]int, len(oldSorted))
	for rank, p := range oldSorted {
		switch {
		case exists[p]:
			out[p] = p
		case rank < len(newSorted):
			out[p] = newSorted[rank]
		}
	}
	return out
}

// locateAnchor returns the tab position currently holding anchor.
func locateAnchor(anchor model.PaneID, manifest model.PaneManifest, tabs []model.Tab) (int, bool) {
	candidates := manifest.TabsContaining(anchor)
	switch len(candidates) {
	case 0:
		return 0, false
	case 1:
		return candidates[0], true
	default:
		return pickCandidate(candidates, anchor, manifest, tabs), true
	}
}

// pickCandidate breaks ties when the host briefly lists the anchor in more
// than one tab. The tab channel's active tab wins unless the pane channel
// reports the anchor focused only elsewhere; failing both, the lowest
// position wins. candidates must be ascending and non-empty.
func pickCandidate(candidates []int, anchor model.PaneID, manifest model.PaneManifest, tabs []model.Tab) int {
	var focusedIn []int
	for _, pos := range candidates {
		for _, p := range manifest[pos] {
			if p.ID == anchor && p.Focused {
				focusedIn = append(focusedIn, pos)
				break
			}
		}
	}

	if active, ok := model.ActiveTab(tabs); ok && containsInt(candidates, active.Position) {
		if len(focusedIn) > 0 && !containsInt(focusedIn, active.Position) {
			return focusedIn[0]
		}
		return active.Position
	}
	if len(focusedIn) > 0 {
		return focusedIn[0]
	}
	return candidates[0]
}

// sameTab reports whether the tab at newPos could plausibly be the tab that
// sat at oldPos. It is false only when the new tab is made entirely of panes
// that used to live in other tabs.
func sameTab(old model.PaneManifest, oldPos int, manifest model.PaneManifest, newPos int) bool {
	panes := manifest[newPos]
	if len(panes) == 0 {
		return true
	}
	elsewhere := 0
	for _, p := range panes {
		positions := old.TabsContaining(p.ID)
		if containsInt(positions, oldPos) {
			return true
		}
		if len(positions) > 0 {
			elsewhere++
		}
	}
	return elsewhere < len(panes)
}

// remapTabs moves tab entries from the positions of old onto the positions
// of manifest. Entries whose anchor is still present follow it; the rest
// fall back to correspondPositions and are re-anchored there.
func (s *State) remapTabs(old, manifest model.PaneManifest) {
	if len(s.store.tabs) == 0 {
		return
	}
	if old == nil {
		s.fillAnchors(manifest)
		return
	}

	corr := correspondPositions(old.Positions(), manifest.Positions())
	next := make(map[int]*TabEntry, len(s.store.tabs))
	var unresolved []int

	for _, pos := range s.store.tabPositions() {
		e := s.store.tabs[pos]
		if e.Anchor == nil {
			unresolved = append(unresolved, pos)
			continue
		}
		newPos, ok := locateAnchor(*e.Anchor, manifest, s.tabs)
		if !ok {
			unresolved = append(unresolved, pos)
			continue
		}
		if _, taken := next[newPos]; taken {
			s.log.Debug("tab entry dropped", "position", pos, "reason", "anchor collision", "anchor", e.Anchor.String())
			continue
		}
		next[newPos] = e
	}

	for _, pos := range unresolved {
		e := s.store.tabs[pos]
		newPos, ok := corr[pos]
		if !ok || !sameTab(old, pos, manifest, newPos) {
			s.log.Debug("tab entry dropped", "position", pos, "reason", "tab gone")
			continue
		}
		if _, taken := next[newPos]; taken {
			s.log.Debug("tab entry dropped", "position", pos, "reason", "position taken", "new_position", newPos)
			continue
		}
		if anchor, ok := manifest.AnchorCandidate(newPos); ok {
			if e.Anchor != nil {
				s.log.Debug("tab entry re-anchored", "position", newPos, "from", e.Anchor.String(), "to", anchor.String())
			}
			e.Anchor = &anchor
		} else {
			e.Anchor = nil
		}
		next[newPos] = e
	}

	s.store.tabs = next
}

// fillAnchors gives anchorless tab entries an anchor once pane topology is
// first known.
func (s *State) fillAnchors(manifest model.PaneManifest) {
	for pos, e := range s.store.tabs {
		if e.Anchor != nil {
			continue
		}
		if anchor, ok := manifest.AnchorCandidate(pos); ok {
			e.Anchor = &anchor
		}
	}
}

// tabEntryAt finds the store key of the entry describing the tab currently
// at position. An entry whose anchor is located there wins over one merely
// stored under that position.
func (s *State) tabEntryAt(position int) (int, bool) {
	for _, key := range s.store.tabPositions() {
		e := s.store.tabs[key]
		if e.Anchor == nil {
			continue
		}
		if pos, ok := locateAnchor(*e.Anchor, s.manifest, s.tabs); ok && pos == position {
			return key, true
		}
	}
	e, ok := s.store.tabs[position]
	if !ok {
		return 0, false
	}
	if e.Anchor != nil {
		if _, found := locateAnchor(*e.Anchor, s.manifest, s.tabs); found {
			return 0, false
		}
	}
	return position, true
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
