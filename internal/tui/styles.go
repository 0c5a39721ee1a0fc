package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#00ff88")
	muted  = lipgloss.Color("#9ca3af")
	text   = lipgloss.Color("#e6f1ff")
)

type styles struct {
	Greeting lipgloss.Style
	Language lipgloss.Style
	Fading   lipgloss.Style
	Title    lipgloss.Style
	Heading  lipgloss.Style
	Accent   lipgloss.Style
	Text     lipgloss.Style
	Muted    lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Greeting: lipgloss.NewStyle().Bold(true).Foreground(text),
		Language: lipgloss.NewStyle().Foreground(muted),
		Fading:   lipgloss.NewStyle().Faint(true).Foreground(muted),
		Title:    lipgloss.NewStyle().Bold(true).Foreground(accent),
		Heading:  lipgloss.NewStyle().Bold(true).Underline(true).Foreground(text),
		Accent:   lipgloss.NewStyle().Bold(true).Foreground(accent),
		Text:     lipgloss.NewStyle().Foreground(text),
		Muted:    lipgloss.NewStyle().Foreground(muted),
	}
}
