// Package progress implements the -P progress indicator of the inspector
// CLI: a small Bubble Tea program that polls the
// running pipeline for a byte-offset snapshot and renders a single
// progress bar plus a one-line stats readout, styled with lipgloss. It
// never touches the stable-schema report output, which keeps writing to
// its own configured writer regardless of whether -P is active.
package progress

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// pollInterval matches a typical terminal dashboard's 250ms refresh tick.
const pollInterval = 250 * time.Millisecond

// Snapshot is a point-in-time readout of the pipeline the progress bar
// tracks. TotalSize of 0 means unknown (a live UDP/RTP source, for
// example), in which case the bar renders as an indeterminate spinner
// line instead of a percentage.
type Snapshot struct {
	Offset           int64
	TotalSize        int64
	PacketsProcessed uint64
	CCErrors         uint64
	ActivePIDs       int
}

// SnapshotFunc is polled once per tick to obtain the current Snapshot.
// Implementations must be safe to call concurrently with the pipeline
// they report on; the inspector satisfies this by reading atomics rather
// than exposing live state.
type SnapshotFunc func() Snapshot

// Run starts the progress program and blocks until ctx is canceled, the
// snapshot reports TotalSize > 0 with Offset >= TotalSize, or the user
// presses q or ctrl+c. label is shown as the program's title, e.g. the
// source URL or output file path.
func Run(ctx context.Context, label string, fn SnapshotFunc) error {
	m := newModel(label, fn)
	p := tea.NewProgram(m, tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

type tickMsg time.Time

type snapshotMsg Snapshot

type model struct {
	label     string
	fn        SnapshotFunc
	startedAt time.Time
	snap      Snapshot
	width     int
	quitting  bool
	done      bool
}

func newModel(label string, fn SnapshotFunc) *model {
	return &model{label: label, fn: fn, startedAt: time.Now(), width: 60}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(tickEvery(), fetchSnapshot(m.fn))
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width > 10 {
			m.width = msg.Width
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		if m.quitting || m.done {
			return m, nil
		}
		return m, tea.Batch(tickEvery(), fetchSnapshot(m.fn))

	case snapshotMsg:
		m.snap = Snapshot(msg)
		if m.snap.TotalSize > 0 && m.snap.Offset >= m.snap.TotalSize {
			m.done = true
			return m, tea.Quit
		}
		return m, nil
	}
	return m, nil
}

func (m *model) View() string {
	if m.quitting {
		return ""
	}

	bar := m.renderBar(m.width - 2)
	pct := percent(m.snap.Offset, m.snap.TotalSize)

	header := titleStyle.Render(m.label)
	elapsed := time.Since(m.startedAt).Round(time.Second)

	var stats string
	if m.snap.TotalSize > 0 {
		stats = statsStyle.Render(fmt.Sprintf(
			"%s  %d/%d bytes  %d packets  %d CC errors  %d PIDs  %s elapsed",
			pctStyle.Render(fmt.Sprintf("%3d%%", pct)),
			m.snap.Offset, m.snap.TotalSize, m.snap.PacketsProcessed,
			m.snap.CCErrors, m.snap.ActivePIDs, elapsed,
		))
	} else {
		stats = statsStyle.Render(fmt.Sprintf(
			"%d bytes  %d packets  %d CC errors  %d PIDs  %s elapsed",
			m.snap.Offset, m.snap.PacketsProcessed, m.snap.CCErrors,
			m.snap.ActivePIDs, elapsed,
		))
	}

	return fmt.Sprintf("%s\n%s\n%s\n", header, bar, stats)
}

func (m *model) renderBar(width int) string {
	if width < 4 {
		width = 4
	}
	if m.snap.TotalSize <= 0 {
		// Indeterminate source: a single marker sweeps the bar based on
		// the packet count, never claiming a percentage it can't know.
		pos := int(m.snap.PacketsProcessed) % width
		return filledStyle.Render(pad(pos)) + markerStyle().Render(">") + emptyStyle.Render(pad(width-pos-1))
	}

	pct := percent(m.snap.Offset, m.snap.TotalSize)
	filled := (pct * width) / 100
	if filled > width {
		filled = width
	}
	empty := width - filled
	return filledStyle.Render(pad(filled)) + emptyStyle.Render(pad(empty))
}

func percent(offset, total int64) int {
	if total <= 0 {
		return 0
	}
	pct := int((offset * 100) / total)
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

func pad(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

func tickEvery() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshot(fn SnapshotFunc) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(fn())
	}
}
