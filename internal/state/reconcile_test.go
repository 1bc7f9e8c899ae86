package state

import (
	"testing"

	"github.com/timvw/emotitle/internal/model"
)

func TestReconcileTitle(t *testing.T) {
	tests := []struct {
		name     string
		entry    Entry
		observed string
		want     outcome
	}{
		{
			name:     "temporary decoration is consumed",
			entry:    Entry{OriginalTitle: "bash", Decoration: "🚀", Mode: model.Temporary},
			observed: "bash | 🚀",
			want:     outcome{cleaned: "bash", restore: true, remove: true},
		},
		{
			name:     "pinned segments survive in order",
			entry:    Entry{OriginalTitle: "build", Decoration: "🔔 | 📌✅ | 📚", Mode: model.Permanent},
			observed: "build | 🔔 | 📌✅ | 📚",
			want:     outcome{cleaned: "build | 📌✅", restore: true},
		},
		{
			name:     "already clean pinned title",
			entry:    Entry{OriginalTitle: "build", Decoration: "📌✅", Mode: model.Permanent},
			observed: "build | 📌✅",
			want:     outcome{cleaned: "build | 📌✅"},
		},
		{
			name:     "temporary pinned entry is kept",
			entry:    Entry{OriginalTitle: "bash", Decoration: "📌🚀", Mode: model.Temporary},
			observed: "bash | 📌🚀",
			want:     outcome{cleaned: "bash | 📌🚀"},
		},
		{
			name:     "permanent entry restored but kept until observed clean",
			entry:    Entry{OriginalTitle: "bash", Decoration: "🔔", Mode: model.Permanent},
			observed: "bash | 🔔",
			want:     outcome{cleaned: "bash", restore: true},
		},
		{
			name:     "permanent entry removed once clean",
			entry:    Entry{OriginalTitle: "bash", Decoration: "🔔", Mode: model.Permanent},
			observed: "bash",
			want:     outcome{cleaned: "bash", remove: true},
		},
		{
			name:     "overwritten base is cleaned onto the stored original",
			entry:    Entry{OriginalTitle: "build", Decoration: "📌🚀", Mode: model.Permanent},
			observed: "garbage | 📌🚀 | 🔔",
			want:     outcome{cleaned: "build | 📌🚀", restore: true},
		},
		{
			name:     "renamed temporary title is restored to the original",
			entry:    Entry{OriginalTitle: "build", Decoration: "🔔", Mode: model.Temporary},
			observed: "vim",
			want:     outcome{cleaned: "build", restore: true, remove: true},
		},
		{
			name:     "renamed permanent title is restored and kept",
			entry:    Entry{OriginalTitle: "bash", Decoration: "🚀", Mode: model.Permanent},
			observed: "vim",
			want:     outcome{cleaned: "bash", restore: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.entry
			got := reconcileTitle(&e, tt.observed)
			if got.cleaned != tt.want.cleaned {
				t.Fatalf("expected cleaned %q, got %q", tt.want.cleaned, got.cleaned)
			}
			if got.restore != tt.want.restore {
				t.Fatalf("expected restore=%v, got %v", tt.want.restore, got.restore)
			}
			if got.remove != tt.want.remove {
				t.Fatalf("expected remove=%v, got %v", tt.want.remove, got.remove)
			}
		})
	}
}
