package cli

import "github.com/charmbracelet/lipgloss"

var (
	styleAllow  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	styleDeny   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	styleWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleDim    = lipgloss.NewStyle().Faint(true)
	styleHeader = lipgloss.NewStyle().Bold(true).Underline(true)
	styleBold   = lipgloss.NewStyle().Bold(true)
)

// short truncates a hash for display.
func short(hash string) string {
	if len(hash) <= 16 {
		return hash
	}
	return hash[:16] + "…"
}

// clip truncates free-form text to n runes for table cells.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
