package tui

import "github.com/charmbracelet/lipgloss"

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "2", Dark: "10"})
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "1", Dark: "9"})
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "3", Dark: "11"})
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "245"})
	boldStyle = lipgloss.NewStyle().Bold(true)
)

// statusIndicator returns the styled Unicode indicator for a stage status.
func statusIndicator(status StageStatus, spinnerView string) string {
	switch status {
	case StatusPending:
		return dimStyle.Render("○")
	case StatusRunning:
		return spinnerView
	case StatusPassed:
		return passStyle.Render("✓")
	case StatusFailed:
		return failStyle.Render("✗")
	case StatusSkipped:
		return dimStyle.Render("–")
	default:
		return "?"
	}
}
