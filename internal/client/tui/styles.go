package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#6C63FF")
	colorMuted   = lipgloss.Color("#666666")
	colorSuccess = lipgloss.Color("#2ECC71")
	colorWarning = lipgloss.Color("#F39C12")
	colorError   = lipgloss.Color("#E74C3C")
	colorSubtle  = lipgloss.Color("#414868")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSubtle).
			Padding(1, 2)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(14)

	onlineStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)
	offlineStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorWarning)
	errorStyle    = lipgloss.NewStyle().Foreground(colorError)
	noticeStyle   = lipgloss.NewStyle().Italic(true).Foreground(colorMuted)
	warnNotice    = lipgloss.NewStyle().Italic(true).Foreground(colorWarning)
)
