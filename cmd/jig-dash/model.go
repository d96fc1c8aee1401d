package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"jig/pkg/health"
	"jig/pkg/spawn"
	"jig/pkg/worker"
)

// refreshInterval is the polling fallback when no change arrives.
const refreshInterval = 2 * time.Second

// Source is what the dashboard reads and acts on. *spawn.Coordinator
// implements it.
type Source interface {
	List(ctx context.Context, opts spawn.ListOptions) ([]spawn.TaskInfo, error)
	Nudge(ctx context.Context, name, nudgeType, message string) (int, error)
}

// tickMsg is sent on every refresh interval.
type tickMsg time.Time

// changeMsg is sent when the state directory changed on disk.
type changeMsg struct{}

// snapshotMsg carries one reconciled listing.
type snapshotMsg struct {
	infos []spawn.TaskInfo
	err   error
	at    time.Time
}

// noticeMsg is a one-line status message for the footer.
type noticeMsg string

// Model is the Bubble Tea model for jig-dash.
type Model struct {
	source  Source
	changes <-chan struct{}
	repo    string
	now     func() time.Time

	keys  KeyMap
	help  help.Model
	table table.Model
	theme Theme

	infos   []spawn.TaskInfo
	all     bool
	err     error
	notice  string
	updated time.Time
	width   int
	height  int
}

// newModel builds the dashboard for repo. changes may be nil.
func newModel(source Source, repo string, changes <-chan struct{}) Model {
	theme := DefaultTheme()
	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(theme.TableStyles())
	return Model{
		source:  source,
		changes: changes,
		repo:    repo,
		now:     time.Now,
		keys:    DefaultKeyMap,
		help:    help.New(),
		table:   t,
		theme:   theme,
	}
}

// columns sizes the table for a terminal width.
func columns(width int) []table.Column {
	name := max(12, width-70)
	return []table.Column{
		{Title: "Worker", Width: name},
		{Title: "Status", Width: 16},
		{Title: "Tmux", Width: 10},
		{Title: "Branch", Width: 18},
		{Title: "Changes", Width: 14},
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForChange blocks on the watcher channel and reports one change.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changeMsg{}
	}
}

func (m Model) fetchCmd() tea.Cmd {
	source, all, now := m.source, m.all, m.now
	return func() tea.Msg {
		infos, err := source.List(context.Background(), spawn.ListOptions{All: all})
		return snapshotMsg{infos: infos, err: err, at: now()}
	}
}

func (m Model) nudgeCmd(name string) tea.Cmd {
	source := m.source
	return func() tea.Msg {
		n, err := source.Nudge(context.Background(), name, health.NudgeIdle, "")
		if err != nil {
			return noticeMsg(fmt.Sprintf("nudge %s: %v", name, err))
		}
		return noticeMsg(fmt.Sprintf("nudged %s (%d)", name, n))
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), tickCmd(), waitForChange(m.changes))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetColumns(columns(msg.Width))
		m.table.SetHeight(max(3, msg.Height-6))
		m.help.Width = msg.Width

	case tickMsg:
		return m, tea.Batch(m.fetchCmd(), tickCmd())

	case changeMsg:
		return m, tea.Batch(m.fetchCmd(), waitForChange(m.changes))

	case snapshotMsg:
		m.err = msg.err
		if msg.err == nil {
			m.setInfos(msg.infos)
			m.updated = msg.at
		}

	case noticeMsg:
		m.notice = string(msg)
		return m, m.fetchCmd()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetchCmd()
	case key.Matches(msg, m.keys.All):
		m.all = !m.all
		return m, m.fetchCmd()
	case key.Matches(msg, m.keys.Nudge):
		if name, ok := m.selected(); ok {
			return m, m.nudgeCmd(name)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// selected returns the worker name under the cursor.
func (m Model) selected() (string, bool) {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return "", false
	}
	return row[0], true
}

func (m *Model) setInfos(infos []spawn.TaskInfo) {
	m.infos = infos
	rows := make([]table.Row, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, table.Row{
			info.Name,
			statusText(info),
			string(info.Live),
			info.Branch,
			changesText(info),
		})
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func statusText(info spawn.TaskInfo) string {
	switch {
	case !info.Registered:
		return "unregistered"
	case info.Pruned:
		return "pruned"
	default:
		return string(info.Status.Kind())
	}
}

func changesText(info spawn.TaskInfo) string {
	s := fmt.Sprintf("%d ahead", info.CommitsAhead)
	if info.Dirty {
		s += " *"
	}
	return s
}

// View implements tea.Model.
func (m Model) View() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Primary).Render("jig · " + m.repo)
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("  ")
	b.WriteString(m.summary())
	b.WriteString("\n\n")

	if len(m.infos) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(m.theme.Muted).Render("No workers. Start one with: jig spawn <name>"))
		b.WriteString("\n")
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
	}

	footer := m.footer()
	if footer != "" {
		b.WriteString(footer)
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// summary renders per-status counts in status colours.
func (m Model) summary() string {
	counts := map[worker.Kind]int{}
	for _, info := range m.infos {
		if info.Registered {
			counts[info.Status.Kind()]++
		}
	}
	kinds := make([]worker.Kind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		style := lipgloss.NewStyle().Foreground(m.theme.StatusColor(k))
		parts = append(parts, style.Render(fmt.Sprintf("%d %s", counts[k], k)))
	}
	return strings.Join(parts, "  ")
}

func (m Model) footer() string {
	muted := lipgloss.NewStyle().Foreground(m.theme.Muted)
	switch {
	case m.err != nil:
		return lipgloss.NewStyle().Foreground(m.theme.Error).Render("error: " + m.err.Error())
	case m.notice != "":
		return muted.Render(m.notice)
	case !m.updated.IsZero():
		scope := "active"
		if m.all {
			scope = "all"
		}
		return muted.Render(fmt.Sprintf("%s workers, updated %s", scope, m.updated.Format(time.TimeOnly)))
	}
	return ""
}
