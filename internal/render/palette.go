package render

import "github.com/charmbracelet/lipgloss"

var (
	Cyan   = lipgloss.Color("#00E5FF") // Primary highlight
	Yellow = lipgloss.Color("#FFB500") // Warnings
	Green  = lipgloss.Color("#2AFFAA") // Positive PnL
	Red    = lipgloss.Color("#FF5555") // Negative PnL
	Base01 = lipgloss.Color("#6C7280") // Muted text
	Base1  = lipgloss.Color("#B4BCC8") // Secondary text
)

// Styles - стили вывода сводки в терминал.
type Styles struct {
	container   lipgloss.Style
	title       lipgloss.Style
	label       lipgloss.Style
	muted       lipgloss.Style
	header      lipgloss.Style
	pnlPositive lipgloss.Style
	pnlNegative lipgloss.Style
	pnlNeutral  lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		container: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Cyan).
			Padding(0, 2),
		title:       lipgloss.NewStyle().Foreground(Cyan).Bold(true),
		label:       lipgloss.NewStyle().Foreground(Base1).Width(14),
		muted:       lipgloss.NewStyle().Foreground(Base01),
		header:      lipgloss.NewStyle().Foreground(Yellow).Bold(true),
		pnlPositive: lipgloss.NewStyle().Foreground(Green).Bold(true),
		pnlNegative: lipgloss.NewStyle().Foreground(Red).Bold(true),
		pnlNeutral:  lipgloss.NewStyle().Foreground(Base01),
	}
}
