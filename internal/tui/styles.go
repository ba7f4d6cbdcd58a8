package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorBase    = lipgloss.Color("#1e1e2e")
	colorSurface = lipgloss.Color("#313244")
	colorOverlay = lipgloss.Color("#45475a")
	colorText    = lipgloss.Color("#cdd6f4")
	colorAccent  = lipgloss.Color("#89b4fa")
	colorError   = lipgloss.Color("#f38ba8")
	colorMuted   = lipgloss.Color("#6c7086")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBase).
			Background(colorText).
			Padding(0, 1)

	sessionStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			PaddingLeft(1)

	youLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText).
			Background(colorOverlay).
			Padding(0, 1)

	botLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBase).
			Background(colorText).
			Padding(0, 1)

	userBubbleStyle = lipgloss.NewStyle().
			Foreground(colorBase).
			Background(colorAccent).
			Padding(0, 1)

	botBubbleStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorSurface).
			Padding(0, 1)

	failedStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Italic(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorError)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(colorAccent)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)
