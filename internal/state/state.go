// Package state is the reconciliation engine. A State owns the decoration
// store, the pending restore queue and the tab index tracker, and is driven
// by the two topology channels of the host:
//
//	s.UpdatePanes(manifest)   // prune, remap tab entries, reconcile focused panes
//	s.UpdateTabs(tabs)        // track tab indices, reconcile the active tab
//	renames := s.Drain()      // restores that can be issued now
//
// Decorations enter through Apply. Nothing in this package performs I/O;
// callers issue the returned Rename values themselves. A State is not safe
// for concurrent use.
package state

import (
	"context"
	"errors"
	"fmt"

	"pkt.systems/pslog"

	"github.com/timvw/emotitle/internal/model"
	"github.com/timvw/emotitle/internal/tabindex"
	"github.com/timvw/emotitle/internal/title"
)

var (
	// ErrNoSnapshot is returned before the host has reported any topology.
	ErrNoSnapshot = errors.New("no topology snapshot received yet")
	// ErrPaneNotFound is returned when the requested or focused pane is unknown.
	ErrPaneNotFound = errors.New("pane not found")
	// ErrTabNotResolved is returned when no tab matches the request.
	ErrTabNotResolved = errors.New("could not resolve tab")
	// ErrNoTitle is returned when a target resolved but its title is unknown.
	ErrNoTitle = errors.New("could not find title")
)

// Rename is an outbound title change. Exactly one of Pane and Tab is set.
// A rename the host rejected is handed back through Requeue (restores) or
// Rollback (applies).
type Rename struct {
	Pane  *model.PaneID `json:"pane,omitempty"`
	Tab   *model.TabRef `json:"tab,omitempty"`
	Title string        `json:"title"`

	restore *Restore
	prior   *prior
}

// prior is the store content an apply replaced.
type prior struct {
	pane     *model.PaneID
	paneWas  *Entry
	tabsWere map[int]*TabEntry
}

func (r Rename) String() string {
	if r.Pane != nil {
		return fmt.Sprintf("pane %s -> %q", r.Pane, r.Title)
	}
	if r.Tab != nil {
		return fmt.Sprintf("tab %d (#%d) -> %q", r.Tab.Position, r.Tab.Ordinal, r.Title)
	}
	return fmt.Sprintf("<none> -> %q", r.Title)
}

// State is the engine aggregate.
type State struct {
	log pslog.Logger

	manifest  model.PaneManifest
	tabs      []model.Tab
	havePanes bool
	haveTabs  bool

	store   *Store
	pending *queue
	tracker *tabindex.Tracker
}

// New returns an empty State. history bounds the tab index event log; a
// non-positive value uses the tracker default. A nil logger falls back to
// the logger in context.Background.
func New(history int, logger pslog.Logger) *State {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &State{
		log:     logger,
		store:   NewStore(),
		pending: &queue{},
		tracker: tabindex.New(history),
	}
}

// UpdatePanes ingests a pane topology snapshot.
func (s *State) UpdatePanes(manifest model.PaneManifest) {
	if manifest == nil {
		manifest = model.PaneManifest{}
	}
	var old model.PaneManifest
	if s.havePanes {
		old = s.manifest
	}

	for _, id := range s.store.PrunePanes(manifest) {
		s.log.Debug("pane entry pruned", "pane", id.String())
	}
	if n := s.pending.dropPanes(manifest); n > 0 {
		s.log.Debug("pending restores dropped", "count", n)
	}
	s.remapTabs(old, manifest)

	s.manifest = manifest
	s.havePanes = true

	s.tracker.UpdateForPanes(s.tabs, manifest)
	s.reconcilePanes()
}

// UpdateTabs ingests a tab topology snapshot.
func (s *State) UpdateTabs(tabs []model.Tab) {
	s.tabs = append([]model.Tab(nil), tabs...)
	s.haveTabs = true

	s.tracker.UpdateForTabs(s.tabs, s.manifest)
	s.reconcileTabs()
}

// Drain returns the restores that resolve against the current topology.
// Unresolvable tab restores stay queued for a later snapshot.
func (s *State) Drain() []Rename {
	ready := s.pending.drain(s.manifest, s.tabs)
	out := make([]Rename, 0, len(ready))
	for _, r := range ready {
		from := r.from
		if r.pane != nil {
			out = append(out, Rename{Pane: r.pane, Title: r.title, restore: &from})
			continue
		}
		out = append(out, Rename{Tab: s.tabRef(r.position), Title: r.title, restore: &from})
	}
	return out
}

// Requeue puts back a drained restore the host failed to apply, so it is
// retried on a later drain. Renames that did not come from Drain are ignored.
func (s *State) Requeue(r Rename) {
	if r.restore == nil {
		return
	}
	s.pending.requeue(*r.restore)
	s.log.Debug("restore requeued", "rename", r.String())
}

// Rollback undoes the store change of an apply whose rename the host
// rejected. Renames that did not come from Apply are ignored.
func (s *State) Rollback(r Rename) {
	p := r.prior
	if p == nil {
		return
	}
	if p.pane != nil {
		if p.paneWas == nil {
			delete(s.store.panes, *p.pane)
		} else {
			s.store.panes[*p.pane] = p.paneWas
		}
	}
	for pos, e := range p.tabsWere {
		if e == nil {
			delete(s.store.tabs, pos)
			continue
		}
		s.store.tabs[pos] = e
	}
	s.log.Debug("apply rolled back", "rename", r.String())
}

// Pending returns the number of queued restores.
func (s *State) Pending() int {
	return s.pending.len()
}

// Apply dispatches a validated command.
func (s *State) Apply(cmd model.Command) (Rename, error) {
	switch cmd.Target.Kind {
	case model.TargetPane:
		return s.ApplyToPane(cmd.Target.PaneID, cmd.Decoration, cmd.Mode)
	case model.TargetTab:
		return s.ApplyToTab(cmd.Target.TabIndex, cmd.Target.PaneID, cmd.Decoration, cmd.Mode)
	default:
		return Rename{}, fmt.Errorf("unsupported target: %s", cmd.Target.Kind)
	}
}

// ApplyToPane decorates a terminal pane, the focused pane when paneID is nil.
func (s *State) ApplyToPane(paneID *uint32, decoration string, mode model.Mode) (Rename, error) {
	if !s.havePanes {
		return Rename{}, fmt.Errorf("could not resolve pane: %w", ErrNoSnapshot)
	}

	var id model.PaneID
	if paneID != nil {
		id = model.TerminalPane(*paneID)
	} else {
		focused, ok := s.FocusedPane()
		if !ok {
			return Rename{}, fmt.Errorf("no focused pane: %w", ErrPaneNotFound)
		}
		id = focused
	}

	pane, _, ok := s.manifest.Find(id)
	if !ok {
		return Rename{}, fmt.Errorf("%s: %w", id, ErrPaneNotFound)
	}

	before := &prior{pane: &id}
	if e, ok := s.store.panes[id]; ok {
		was := *e
		before.paneWas = &was
	}

	current := s.store.Effective(id, pane.Title)
	next := title.Compose(current, decoration)
	s.store.UpsertPane(id, title.Original(pane.Title), title.Parse(next).Decoration(), mode)

	return Rename{Pane: &id, Title: next, prior: before}, nil
}

// ApplyToTab decorates a tab. tabIndex addresses a position directly,
// paneID the tab holding that terminal pane; with neither the active tab is
// used. When paneID is given it becomes the entry's anchor.
func (s *State) ApplyToTab(tabIndex *int, paneID *uint32, decoration string, mode model.Mode) (Rename, error) {
	if !s.haveTabs && !s.havePanes {
		return Rename{}, fmt.Errorf("could not resolve tab: %w", ErrNoSnapshot)
	}

	position, err := s.resolveTab(tabIndex, paneID)
	if err != nil {
		return Rename{}, err
	}
	key, hasEntry := s.tabEntryAt(position)

	var anchor *model.PaneID
	switch {
	case paneID != nil:
		id := model.TerminalPane(*paneID)
		anchor = &id
	case hasEntry && s.store.tabs[key].Anchor != nil && containsInt(s.manifest.TabsContaining(*s.store.tabs[key].Anchor), position):
		anchor = cloneID(s.store.tabs[key].Anchor)
	default:
		if id, ok := s.manifest.AnchorCandidate(position); ok {
			anchor = &id
		}
	}

	observed, ok := s.tabTitle(position, key, hasEntry)
	if !ok {
		return Rename{}, fmt.Errorf("tab %d: %w", position, ErrNoTitle)
	}

	before := &prior{tabsWere: map[int]*TabEntry{
		position: copyTabEntry(s.store.tabs[position]),
	}}
	if hasEntry {
		before.tabsWere[key] = copyTabEntry(s.store.tabs[key])
	}

	current := observed
	if hasEntry {
		current = s.store.TabEffective(key, observed)
		if key != position {
			s.store.tabs[position] = s.store.tabs[key]
			delete(s.store.tabs, key)
		}
	}
	next := title.Compose(current, decoration)
	s.store.UpsertTab(position, anchor, title.Original(observed), title.Parse(next).Decoration(), mode)

	return Rename{Tab: s.tabRef(position), Title: next, prior: before}, nil
}

func copyTabEntry(e *TabEntry) *TabEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.Anchor = cloneID(e.Anchor)
	return &c
}

func (s *State) resolveTab(tabIndex *int, paneID *uint32) (int, error) {
	switch {
	case tabIndex != nil:
		if !tabExists(*tabIndex, s.manifest, s.tabs) {
			return 0, fmt.Errorf("tab %d: %w", *tabIndex, ErrTabNotResolved)
		}
		return *tabIndex, nil
	case paneID != nil:
		if !s.havePanes {
			return 0, fmt.Errorf("could not resolve pane: %w", ErrNoSnapshot)
		}
		id := model.TerminalPane(*paneID)
		pos, ok := locateAnchor(id, s.manifest, s.tabs)
		if !ok {
			return 0, fmt.Errorf("%s: %w", id, ErrPaneNotFound)
		}
		return pos, nil
	default:
		pos, ok := s.FocusedTab()
		if !ok {
			return 0, fmt.Errorf("no active tab: %w", ErrTabNotResolved)
		}
		return pos, nil
	}
}

// tabTitle returns the live name of the tab at position, falling back to
// the stored original while the tab channel lags behind.
func (s *State) tabTitle(position, key int, hasEntry bool) (string, bool) {
	if tab, ok := model.FindTab(s.tabs, position); ok {
		return tab.Name, true
	}
	if hasEntry {
		return s.store.TabOriginal(key)
	}
	return "", false
}

func (s *State) tabRef(position int) *model.TabRef {
	ordinal, ok := s.tracker.RenameTarget(position)
	if !ok {
		ordinal = position + 1
	}
	return &model.TabRef{Position: position, Ordinal: ordinal}
}

// FocusedTab returns the active tab position, from the tab channel when
// known and otherwise from the first focused pane.
func (s *State) FocusedTab() (int, bool) {
	if tab, ok := model.ActiveTab(s.tabs); ok {
		return tab.Position, true
	}
	for _, pos := range s.manifest.Positions() {
		for _, p := range s.manifest[pos] {
			if p.Focused {
				return pos, true
			}
		}
	}
	return 0, false
}

// FocusedPane returns the focused pane of the active tab. Hosts report one
// focused pane per tab; the active tab disambiguates.
func (s *State) FocusedPane() (model.PaneID, bool) {
	if pos, ok := s.FocusedTab(); ok {
		for _, p := range s.manifest[pos] {
			if p.Focused {
				return p.ID, true
			}
		}
	}
	focused := s.manifest.Focused()
	if len(focused) == 0 {
		return model.PaneID{}, false
	}
	return focused[0].ID, true
}
