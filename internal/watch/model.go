package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	morseStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

type statusMsg struct {
	status Status
	err    error
}

type tickMsg time.Time

// Model implements the Bubble Tea watch UI.
type Model struct {
	fetcher  Fetcher
	interval time.Duration
	target   string

	status  Status
	fetched bool
	err     error
	width   int
}

// NewModel creates a model that polls fetcher every interval. target labels the header.
func NewModel(fetcher Fetcher, interval time.Duration, target string) *Model {
	return &Model{fetcher: fetcher, interval: interval, target: target}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.fetch()
}

func (m *Model) fetch() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
		defer cancel()
		st, err := m.fetcher.Fetch(ctx)
		return statusMsg{status: st, err: err}
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	case statusMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
			m.fetched = true
		}
		return m, m.tick()
	case tickMsg:
		return m, m.fetch()
	default:
		return m, nil
	}
}

// Status returns the last successful poll.
func (m *Model) Status() Status {
	return m.status
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("morsekey " + m.target))
	b.WriteString("\n\n")

	snap := m.status.Snapshot
	if !m.fetched {
		b.WriteString(labelStyle.Render("waiting for decoder..."))
		b.WriteString("\n")
	} else {
		b.WriteString(labelStyle.Render("morse    "))
		b.WriteString(morseStyle.Render(wrap(snap.Raw, m.width)))
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("message  "))
		b.WriteString(messageStyle.Render(wrap(snap.Message, m.width)))
		b.WriteString("\n\n")
		b.WriteString(labelStyle.Render(fmt.Sprintf("cycle %s, updated %s",
			humanize.Comma(int64(snap.Cycle)), updated(snap.UpdatedAt))))
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(m.status.Stats.String()))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(footerStyle.Render("q to quit"))
	return b.String()
}

func updated(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

func wrap(s string, width int) string {
	if width <= 10 {
		return s
	}
	return lipgloss.NewStyle().Width(width - 9).Render(s)
}
