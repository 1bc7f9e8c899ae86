// Package inspect is a live terminal view of a running daemon's state.
package inspect

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/timvw/emotitle/internal/command"
	"github.com/timvw/emotitle/internal/daemon"
	"github.com/timvw/emotitle/internal/state"
)

// Fetcher returns the current state dump.
type Fetcher func(ctx context.Context) (state.Info, error)

// DaemonFetcher asks the daemon on socketPath for its state.
func DaemonFetcher(socketPath string) Fetcher {
	return func(ctx context.Context) (state.Info, error) {
		resp, err := daemon.Send(ctx, socketPath, map[string]string{command.KeyInfo: "true"})
		if err != nil {
			return state.Info{}, err
		}
		if !resp.OK {
			return state.Info{}, fmt.Errorf("daemon: %s", resp.Output)
		}
		var info state.Info
		if err := json.Unmarshal([]byte(resp.Output), &info); err != nil {
			return state.Info{}, fmt.Errorf("decode info: %w", err)
		}
		return info, nil
	}
}

type keyMap struct {
	Quit    key.Binding
	Refresh key.Binding
	Pause   key.Binding
	Events  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Pause:   key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "pause")),
		Events:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "events")),
	}
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{k.Refresh, k.Pause, k.Events, k.Quit}
}

type infoMsg struct {
	info state.Info
	err  error
}

type tickMsg struct{}

// TUI runs the inspect view.
type TUI struct {
	Fetch           Fetcher
	RefreshInterval time.Duration // 0 disables auto-refresh
	Theme           Theme
	NoColor         bool
}

type tuiModel struct {
	ctx             context.Context
	fetch           Fetcher
	refreshInterval time.Duration
	keys            keyMap
	styles          styles

	vp    viewport.Model
	ready bool

	info        *state.Info
	err         error
	fetching    bool
	paused      bool
	showEvents  bool
	refreshes   int
	lastRefresh time.Time

	width  int
	height int
}

func newModel(ctx context.Context, fetch Fetcher, interval time.Duration, theme Theme) *tuiModel {
	return &tuiModel{
		ctx:             ctx,
		fetch:           fetch,
		refreshInterval: interval,
		keys:            defaultKeys(),
		styles:          newStyles(theme),
	}
}

func (t *TUI) Run(ctx context.Context) error {
	if t.Fetch == nil {
		return fmt.Errorf("fetcher is required")
	}
	if t.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	m := newModel(ctx, t.Fetch, t.RefreshInterval, t.Theme)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *tuiModel) Init() tea.Cmd {
	m.fetching = true
	return m.doFetch()
}

func (m *tuiModel) scheduleTick() tea.Cmd {
	if m.refreshInterval <= 0 {
		return nil
	}
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *tuiModel) doFetch() tea.Cmd {
	fetch := m.fetch
	ctx := m.ctx
	return func() tea.Msg {
		info, err := fetch(ctx)
		return infoMsg{info: info, err: err}
	}
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h := msg.Height - 2 // header and footer
		if h < 1 {
			h = 1
		}
		if !m.ready {
			m.vp = viewport.New(msg.Width, h)
			m.vp.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = h
		}
		m.refreshContent()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			if m.fetching {
				return m, nil
			}
			m.fetching = true
			return m, m.doFetch()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			return m, nil
		case key.Matches(msg, m.keys.Events):
			m.showEvents = !m.showEvents
			m.refreshContent()
			return m, nil
		}

	case infoMsg:
		m.fetching = false
		m.err = msg.err
		if msg.err == nil {
			info := msg.info
			m.info = &info
			m.refreshes++
			m.lastRefresh = time.Now()
			m.refreshContent()
		}
		return m, m.scheduleTick()

	case tickMsg:
		if m.paused || m.fetching {
			return m, m.scheduleTick()
		}
		m.fetching = true
		return m, m.doFetch()
	}

	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m *tuiModel) refreshContent() {
	if !m.ready || m.info == nil {
		return
	}
	m.vp.SetContent(renderInfo(*m.info, m.styles, m.width, m.showEvents))
}

func (m *tuiModel) View() string {
	if !m.ready {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	if m.info == nil {
		if m.err == nil {
			b.WriteString("  Waiting for daemon...\n")
		}
	} else {
		b.WriteString(m.vp.View())
		b.WriteString("\n")
	}
	b.WriteString(m.footer())
	return b.String()
}

func (m *tuiModel) header() string {
	parts := []string{m.styles.title.Render("emotitle")}
	switch {
	case m.err != nil:
		parts = append(parts, m.styles.err.Render(truncate(m.err.Error(), m.width-12)))
	case m.info != nil:
		parts = append(parts, m.styles.dim.Render(fmt.Sprintf("%d tabs  %d decorated  %d pending",
			len(m.info.Tabs), len(m.info.PaneEntries)+len(m.info.TabEntries), len(m.info.PendingRestores))))
	}
	if m.paused {
		parts = append(parts, m.styles.temporary.Render("paused"))
	} else if m.fetching {
		parts = append(parts, m.styles.dim.Render("refreshing..."))
	}
	return strings.Join(parts, "  ")
}

func (m *tuiModel) footer() string {
	var hints []string
	for _, b := range m.keys.bindings() {
		h := b.Help()
		hints = append(hints, m.styles.hintKey.Render(h.Key)+" "+m.styles.hintDesc.Render(h.Desc))
	}
	if !m.lastRefresh.IsZero() {
		hints = append(hints, m.styles.dim.Render("updated "+m.lastRefresh.Format("15:04:05")))
	}
	return strings.Join(hints, "  ")
}
