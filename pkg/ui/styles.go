package ui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	Title      lipgloss.Style
	User       lipgloss.Style
	Bot        lipgloss.Style
	Role       lipgloss.Style
	PromptHead lipgloss.Style
	Prompt     lipgloss.Style
	About      lipgloss.Style
	Status     lipgloss.Style
	Input      lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).Padding(0, 1),
		User:       lipgloss.NewStyle().Foreground(lipgloss.Color("252")).PaddingLeft(2),
		Bot:        lipgloss.NewStyle().PaddingLeft(0),
		Role:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		PromptHead: lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245")),
		Prompt:     lipgloss.NewStyle().Foreground(lipgloss.Color("111")),
		About: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1),
		Status: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Input: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(lipgloss.Color("240")),
	}
}
