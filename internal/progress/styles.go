package progress

import "github.com/charmbracelet/lipgloss"

// A small subset of a broadcast-monitoring palette, enough for a single
// progress bar and a one-line stats readout.
var (
	primary = lipgloss.Color("#FF6B35")
	success = lipgloss.Color("#4CAF50")
	muted   = lipgloss.Color("#90A4AE")
	bright  = lipgloss.Color("#FFFFFF")

	titleStyle = lipgloss.NewStyle().
			Foreground(bright).
			Bold(true)

	pctStyle = lipgloss.NewStyle().
			Foreground(primary).
			Bold(true)

	statsStyle = lipgloss.NewStyle().
			Foreground(muted)

	filledStyle = lipgloss.NewStyle().Background(success)
	emptyStyle  = lipgloss.NewStyle().Background(muted)
	marker      = lipgloss.NewStyle().Foreground(primary).Bold(true)
)

func markerStyle() lipgloss.Style {
	return marker
}
