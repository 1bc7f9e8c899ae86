// Package title parses and renders decorated titles.
//
// A decorated title is a base followed by zero or more segments, each joined
// with Delimiter:
//
//	build | 🔔 | 📌✅
//
// A segment whose text starts with PinMarker is pinned and survives
// stripping. The format is fixed; there is no escaping.
package title

import "strings"

const (
	// Delimiter separates the base title from each decoration segment.
	Delimiter = " | "
	// PinMarker marks a segment exempt from automatic stripping.
	PinMarker = "📌"
)

// Segment is one delimiter-separated piece of decoration.
type Segment struct {
	Text   string
	Pinned bool
}

// Title is the structured form of a (possibly decorated) title.
type Title struct {
	Base     string
	Segments []Segment
}

// NewSegment builds a segment, deriving Pinned from the text.
func NewSegment(text string) Segment {
	return Segment{Text: text, Pinned: strings.HasPrefix(text, PinMarker)}
}

// Parse splits s at every Delimiter. The text before the first delimiter is
// the base; an undecorated title yields no segments. Empty segments are kept
// so that String(Parse(s)) == s.
func Parse(s string) Title {
	parts := strings.Split(s, Delimiter)
	t := Title{Base: parts[0]}
	for _, p := range parts[1:] {
		t.Segments = append(t.Segments, NewSegment(p))
	}
	return t
}

// String renders the title back into its delimited form.
func (t Title) String() string {
	if len(t.Segments) == 0 {
		return t.Base
	}
	var b strings.Builder
	b.WriteString(t.Base)
	for _, s := range t.Segments {
		b.WriteString(Delimiter)
		b.WriteString(s.Text)
	}
	return b.String()
}

// Pinned returns only the pinned segments, in order.
func (t Title) Pinned() []Segment {
	var out []Segment
	for _, s := range t.Segments {
		if s.Pinned {
			out = append(out, s)
		}
	}
	return out
}

// Decoration joins the segment texts with Delimiter.
func (t Title) Decoration() string {
	texts := make([]string, len(t.Segments))
	for i, s := range t.Segments {
		texts[i] = s.Text
	}
	return strings.Join(texts, Delimiter)
}

// Strip returns base followed only by the pinned segments of t.
func (t Title) Strip(base string) Title {
	return Title{Base: base, Segments: t.Pinned()}
}

// Compose appends decoration to base. An empty decoration leaves base as is.
func Compose(base, decoration string) string {
	if decoration == "" {
		return base
	}
	return base + Delimiter + decoration
}

// Original returns the text before the first delimiter.
func Original(s string) string {
	return Parse(s).Base
}
