package inspect

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/timvw/emotitle/internal/model"
	"github.com/timvw/emotitle/internal/state"
	"github.com/timvw/emotitle/internal/tabindex"
)

// maxEvents bounds the event history shown when events are expanded.
const maxEvents = 50

// renderInfo lays out a state dump as plain lines for the viewport.
func renderInfo(info state.Info, st styles, width int, showEvents bool) string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteString("\n")
	}
	none := func() { line("  " + st.dim.Render("(none)")) }

	line(st.section.Render("Tabs"))
	if len(info.Tabs) == 0 {
		none()
	}
	for _, tab := range info.Tabs {
		name := truncate(tab.Name, width-12)
		row := fmt.Sprintf("  %2d  %s", tab.Position, name)
		if tab.Active {
			line(st.active.Render(row) + st.dim.Render("  (active)"))
		} else {
			line(st.text.Render(row))
		}
		for _, p := range tab.Panes {
			marker := " "
			if info.FocusedPane != nil && *info.FocusedPane == p.ID {
				marker = "*"
			} else if p.Focused {
				marker = "·"
			}
			id := fmt.Sprintf("      %s %-12s ", marker, p.ID)
			line(st.dim.Render(id) + truncate(p.Title, width-runewidth.StringWidth(id)))
		}
	}

	line("")
	line(st.section.Render("Decorations"))
	if len(info.PaneEntries) == 0 && len(info.TabEntries) == 0 {
		none()
	}
	for _, e := range info.PaneEntries {
		label := fmt.Sprintf("  pane %s", e.Pane)
		line(entryLine(st, label, e.Entry, width))
	}
	for _, e := range info.TabEntries {
		label := fmt.Sprintf("  tab %d", e.Position)
		if e.Anchor != nil {
			label += fmt.Sprintf(" @%s", e.Anchor)
		}
		line(entryLine(st, label, e.Entry, width))
	}

	line("")
	line(st.section.Render(fmt.Sprintf("Pending restores (%d)", len(info.PendingRestores))))
	if len(info.PendingRestores) == 0 {
		none()
	}
	for _, r := range info.PendingRestores {
		line(st.temporary.Render(restoreLine(r, width)))
	}

	line("")
	line(st.section.Render("Tab index map"))
	if len(info.InternalIndexMap) == 0 {
		none()
	}
	for _, e := range info.InternalIndexMap {
		line(fmt.Sprintf("  #%-3d %s", e.InternalIndex, st.dim.Render(joinIDs(e.PaneKeys))))
	}

	line("")
	if !showEvents {
		line(st.section.Render(fmt.Sprintf("Events (%d)", len(info.EventHistory))) + st.dim.Render("  e to expand"))
		return b.String()
	}
	line(st.section.Render(fmt.Sprintf("Events (%d)", len(info.EventHistory))))
	if len(info.EventHistory) == 0 {
		none()
	}
	events := info.EventHistory
	if len(events) > maxEvents {
		events = events[len(events)-maxEvents:]
	}
	for i := len(events) - 1; i >= 0; i-- {
		line(eventLine(st, events[i]))
	}
	return b.String()
}

func entryLine(st styles, label string, e state.Entry, width int) string {
	mode := st.temporary.Render(fmt.Sprintf("%-9s", e.Mode))
	if e.Mode == model.Permanent {
		mode = st.permanent.Render(fmt.Sprintf("%-9s", e.Mode))
	}
	head := fmt.Sprintf("%-24s ", label)
	rest := truncate(e.OriginalTitle+"  + "+e.Decoration, width-runewidth.StringWidth(head)-10)
	return st.text.Render(head) + mode + " " + rest
}

func restoreLine(r state.Restore, width int) string {
	var target string
	switch {
	case r.Pane != nil:
		target = fmt.Sprintf("pane %s", r.Pane)
	case r.Anchor != nil:
		target = fmt.Sprintf("tab %d @%s", r.TabPosition, r.Anchor)
	default:
		target = fmt.Sprintf("tab %d", r.TabPosition)
	}
	head := fmt.Sprintf("  %-24s -> ", target)
	return head + truncate(fmt.Sprintf("%q", r.Title), width-runewidth.StringWidth(head))
}

func eventLine(st styles, e tabindex.Event) string {
	return fmt.Sprintf("  %5d  %-14s #%-3d %s", e.Seq, e.Type, e.InternalIndex, st.dim.Render(joinIDs(e.PaneKeys)))
}

func joinIDs(ids []model.PaneID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

// truncate cuts s to at most width terminal cells. Titles carry emoji, so
// widths are measured in cells rather than bytes.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
