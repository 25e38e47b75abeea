package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#a78bfa")
	colorFgBase  = lipgloss.Color("#c0c0c0")
	colorMuted   = lipgloss.Color("#808080")
	colorSubtle  = lipgloss.Color("#585858")
	colorCursor  = lipgloss.Color("#303030")
	colorError   = lipgloss.Color("#ff5555")
	colorWarning = lipgloss.Color("#f1a208")
)

var (
	baseStyle    = lipgloss.NewStyle().Foreground(colorFgBase)
	titleStyle   = baseStyle.Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	subtleStyle  = lipgloss.NewStyle().Foreground(colorSubtle)
	playingStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	cursorStyle  = lipgloss.NewStyle().Background(colorCursor).Foreground(colorFgBase)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)

	barStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorSubtle)
)
