package state

import (
	"github.com/timvw/emotitle/internal/model"
	"github.com/timvw/emotitle/internal/title"
)

// outcome is the reconciler's verdict for one observed title.
type outcome struct {
	cleaned string
	pinned  []title.Segment
	restore bool
	remove  bool
}

// reconcileTitle decides what happens to a decorated item that just gained
// focus. The stored original is the base: a live title whose base was
// overwritten, with or without segments, is cleaned back onto it.
func reconcileTitle(e *Entry, observed string) outcome {
	stripped := title.Parse(observed).Strip(e.OriginalTitle)
	out := outcome{cleaned: stripped.String(), pinned: stripped.Segments}
	out.restore = out.cleaned != observed

	if len(out.pinned) == 0 {
		if e.Mode == model.Temporary || observed == e.OriginalTitle {
			out.remove = true
		}
	}
	return out
}

// reconcilePanes inspects every focused pane that carries a decoration.
func (s *State) reconcilePanes() {
	for _, p := range s.manifest.Focused() {
		e, ok := s.store.panes[p.ID]
		if !ok {
			continue
		}
		out := reconcileTitle(e, p.Title)
		id := p.ID
		if out.restore {
			s.pending.push(Restore{Pane: &id, Title: out.cleaned})
			s.log.Debug("pane restore queued", "pane", id.String(), "title", out.cleaned)
		}
		if out.remove {
			s.store.RemovePane(id)
			continue
		}
		e.Decoration = title.Title{Segments: out.pinned}.Decoration()
	}
}

// reconcileTabs inspects the active tab if it carries a decoration.
func (s *State) reconcileTabs() {
	active, ok := model.ActiveTab(s.tabs)
	if !ok {
		return
	}
	key, ok := s.tabEntryAt(active.Position)
	if !ok {
		return
	}
	e := s.store.tabs[key]
	out := reconcileTitle(&e.Entry, active.Name)
	if out.restore {
		s.pending.push(Restore{TabPosition: active.Position, Anchor: cloneID(e.Anchor), Title: out.cleaned})
		s.log.Debug("tab restore queued", "position", active.Position, "title", out.cleaned)
	}
	if out.remove {
		s.store.RemoveTab(key)
		return
	}
	e.Decoration = title.Title{Segments: out.pinned}.Decoration()
}
