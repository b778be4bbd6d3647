package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Color palette
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonGreen   = lipgloss.Color("#39FF14")
	neonYellow  = lipgloss.Color("#FFFF00")
	neonOrange  = lipgloss.Color("#FF6700")
	hardRed     = lipgloss.Color("#FF0000")
	dimWhite    = lipgloss.Color("#B0B0B0")
	dimGray     = lipgloss.Color("#666666")

	// Logo style
	logoStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true).
			Padding(1, 0)

	// Panel styles
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(neonMagenta).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
			Background(neonMagenta).
			Foreground(lipgloss.Color("#0A0E27")).
			Bold(true).
			Padding(0, 1)

	// Stats styles
	statsLabelStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(neonYellow)

	// Per-target status styles
	succeededStyle = lipgloss.NewStyle().Foreground(neonGreen)
	failedStyle    = lipgloss.NewStyle().Foreground(hardRed)
	skippedStyle   = lipgloss.NewStyle().Foreground(neonOrange)
	activeStyle    = lipgloss.NewStyle().Foreground(neonCyan).Bold(true)
	pendingStyle   = lipgloss.NewStyle().Foreground(dimWhite).Faint(true)

	// Final state banners
	completedBannerStyle = lipgloss.NewStyle().Foreground(neonGreen).Bold(true)
	abortedBannerStyle   = lipgloss.NewStyle().Foreground(hardRed).Bold(true)
	cancelledBannerStyle = lipgloss.NewStyle().Foreground(neonOrange).Bold(true)

	// Log styles
	logTimestampStyle = lipgloss.NewStyle().Foreground(dimGray)
	logMessageStyle   = lipgloss.NewStyle().Foreground(dimWhite)

	// Help style
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(1, 0, 0, 2)
)
