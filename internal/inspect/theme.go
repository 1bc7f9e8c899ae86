package inspect

import "github.com/charmbracelet/lipgloss"

// Theme defines the colors of the inspect view.
type Theme struct {
	Primary   lipgloss.Color // title, section headings
	Secondary lipgloss.Color // focused pane, active tab
	Error     lipgloss.Color // daemon errors
	Warning   lipgloss.Color // pending restores, temporary entries
	Success   lipgloss.Color // pinned segments, permanent entries
	Text      lipgloss.Color
	TextMuted lipgloss.Color // ids, hints, history
}

// DarkTheme returns the default theme for dark terminal backgrounds.
func DarkTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("#fab283"),
		Secondary: lipgloss.Color("#5c9cf5"),
		Error:     lipgloss.Color("#e06c75"),
		Warning:   lipgloss.Color("#f5a742"),
		Success:   lipgloss.Color("#7fd88f"),
		Text:      lipgloss.Color("#eeeeee"),
		TextMuted: lipgloss.Color("#808080"),
	}
}

// LightTheme returns a theme for bright terminal backgrounds.
func LightTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("#b35c00"),
		Secondary: lipgloss.Color("#0550ae"),
		Error:     lipgloss.Color("#cf222e"),
		Warning:   lipgloss.Color("#bf8700"),
		Success:   lipgloss.Color("#116329"),
		Text:      lipgloss.Color("#1f2328"),
		TextMuted: lipgloss.Color("#656d76"),
	}
}

// ThemeByName returns a theme by name. Defaults to dark.
func ThemeByName(name string) Theme {
	switch name {
	case "light":
		return LightTheme()
	default:
		return DarkTheme()
	}
}

type styles struct {
	title     lipgloss.Style
	section   lipgloss.Style
	active    lipgloss.Style
	permanent lipgloss.Style
	temporary lipgloss.Style
	err       lipgloss.Style
	dim       lipgloss.Style
	text      lipgloss.Style

	hintKey  lipgloss.Style
	hintDesc lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		section:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		active:    lipgloss.NewStyle().Bold(true).Foreground(t.Secondary),
		permanent: lipgloss.NewStyle().Foreground(t.Success),
		temporary: lipgloss.NewStyle().Foreground(t.Warning),
		err:       lipgloss.NewStyle().Foreground(t.Error),
		dim:       lipgloss.NewStyle().Foreground(t.TextMuted),
		text:      lipgloss.NewStyle().Foreground(t.Text),

		hintKey:  lipgloss.NewStyle().Foreground(t.Text),
		hintDesc: lipgloss.NewStyle().Foreground(t.TextMuted),
	}
}
