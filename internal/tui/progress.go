package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mfigueredo/placegrid/internal/engine/insights"
	"github.com/mfigueredo/placegrid/internal/tui/styles"
)

// ScanInfo is the static header shown above the progress bar.
type ScanInfo struct {
	Target        string // formatted address or raw coordinates
	PlaceTypes    string
	BoxSizeMeters float64
	TileTarget    int
}

type tickMsg time.Time

type scanDoneMsg struct {
	err error
}

// Model shows live grid-scan progress. The scan runs in a tea command; the
// view polls shared stats on a ticker, so the aggregator never blocks on
// the terminal.
type Model struct {
	info       ScanInfo
	stats      *insights.Stats
	bar        progress.Model
	startTime  time.Time
	cancel     context.CancelFunc
	cancelling bool
	done       bool
	err        error
	width      int
	run        func() error
}

// Run renders the progress view while run executes. It returns run's error,
// or the terminal error if the view itself failed.
func Run(info ScanInfo, stats *insights.Stats, cancel context.CancelFunc, run func() error) error {
	m := Model{
		info: info,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(50),
		),
		stats:     stats,
		startTime: time.Now(),
		cancel:    cancel,
		run:       run,
	}

	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok {
		return fm.err
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.startScan, tickCmd())
}

func (m Model) startScan() tea.Msg {
	return scanDoneMsg{err: m.run()}
}

func tickCmd() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if !m.cancelling && m.cancel != nil {
				m.cancelling = true
				m.cancel()
			}
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()
	case scanDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	done := m.stats.TilesDone.Load()
	total := int64(m.stats.TilesTotal)
	percent := 0.0
	if total > 0 {
		percent = float64(done) / float64(total)
	}

	elapsed := time.Since(m.startTime).Truncate(time.Second)

	header := styles.Title.Render("placegrid scan")
	rows := []string{
		styles.Label.Render("Target") + styles.Value.Render(m.info.Target),
		styles.Label.Render("Types") + styles.Value.Render(m.info.PlaceTypes),
		styles.Label.Render("Box") + styles.Value.Render(fmt.Sprintf("%.0f m, ~%d tiles", m.info.BoxSizeMeters, m.info.TileTarget)),
		"",
		m.bar.ViewAs(percent),
		styles.Value.Render(fmt.Sprintf("%d/%d tiles", done, total)),
		styles.SuccessText.Render(fmt.Sprintf("%d ok", m.stats.Succeeded.Load())) + styles.Value.Render(" · ") +
			styles.ErrorText.Render(fmt.Sprintf("%d failed", m.stats.Failed.Load())) + styles.Value.Render(" · ") +
			styles.Value.Render(fmt.Sprintf("%d places", m.stats.Places.Load())),
	}

	status := fmt.Sprintf("elapsed %s · q to cancel", elapsed)
	if m.cancelling {
		status = styles.ErrorText.Render("cancelling, waiting for in-flight tiles...")
	}

	body := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return header + "\n" + styles.Border.Render(body) + "\n" + styles.StatusBar.Render(status) + "\n"
}
