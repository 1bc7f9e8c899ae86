package state

import (
	"github.com/timvw/emotitle/internal/model"
)

// Restore is a queued title restoration. Exactly one of Pane or a tab
// target is set: a tab restore records the position it was computed for
// and, when known, the anchor that relocates it.
type Restore struct {
	Pane        *model.PaneID `json:"pane,omitempty"`
	TabPosition int           `json:"tab_position"`
	Anchor      *model.PaneID `json:"anchor,omitempty"`
	Title       string        `json:"title"`
}

// IsTab reports whether r targets a tab.
func (r Restore) IsTab() bool {
	return r.Pane == nil
}

func (r Restore) sameTarget(o Restore) bool {
	if r.IsTab() != o.IsTab() {
		return false
	}
	if !r.IsTab() {
		return *r.Pane == *o.Pane
	}
	if r.Anchor != nil || o.Anchor != nil {
		return sameAnchor(r.Anchor, o.Anchor)
	}
	return r.TabPosition == o.TabPosition
}

// queue holds restores until the topology can resolve them. Only the newest
// restore per target is kept.
type queue struct {
	items []Restore
}

func (q *queue) push(r Restore) {
	for i, existing := range q.items {
		if existing.sameTarget(r) {
			q.items[i] = r
			return
		}
	}
	q.items = append(q.items, r)
}

// requeue puts r back unless a newer restore for the same target arrived.
func (q *queue) requeue(r Restore) {
	for _, existing := range q.items {
		if existing.sameTarget(r) {
			return
		}
	}
	q.items = append(q.items, r)
}

func (q *queue) len() int {
	return len(q.items)
}

// resolved is a restore bound to a concrete target in the current topology.
type resolved struct {
	pane     *model.PaneID
	position int
	title    string
	from     Restore
}

// drain resolves every restore it can against the given topology and keeps
// the rest queued.
func (q *queue) drain(manifest model.PaneManifest, tabs []model.Tab) []resolved {
	var out []resolved
	kept := q.items[:0]
	for _, r := range q.items {
		if !r.IsTab() {
			if manifest.Contains(*r.Pane) {
				id := *r.Pane
				out = append(out, resolved{pane: &id, title: r.Title, from: r})
			}
			continue
		}
		if r.Anchor != nil {
			if pos, ok := locateAnchor(*r.Anchor, manifest, tabs); ok {
				out = append(out, resolved{position: pos, title: r.Title, from: r})
				continue
			}
		}
		if tabExists(r.TabPosition, manifest, tabs) {
			out = append(out, resolved{position: r.TabPosition, title: r.Title, from: r})
			continue
		}
		kept = append(kept, r)
	}
	q.items = kept
	return out
}

// dropPanes forgets pane restores whose pane is gone. Tab restores are kept:
// they can still fall back to their recorded position.
func (q *queue) dropPanes(manifest model.PaneManifest) int {
	kept := q.items[:0]
	dropped := 0
	for _, r := range q.items {
		if !r.IsTab() && !manifest.Contains(*r.Pane) {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	q.items = kept
	return dropped
}

func (q *queue) snapshot() []Restore {
	return append([]Restore(nil), q.items...)
}

func tabExists(position int, manifest model.PaneManifest, tabs []model.Tab) bool {
	if len(tabs) > 0 {
		_, ok := model.FindTab(tabs, position)
		return ok
	}
	_, ok := manifest[position]
	return ok
}
