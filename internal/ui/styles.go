package ui

import "github.com/charmbracelet/lipgloss"

// Color palette. One warm accent for titles, muted grays for chrome.
const (
	colorAmber    = "214" // titles and the prompt accent
	colorWhite    = "255"
	colorGray     = "245" // authors, labels
	colorDarkGray = "238" // separators, scores
	colorGreen    = "114" // success notes
	colorRed      = "196"
	colorYellow   = "220"
)

// Styles holds the lipgloss styles used by the printer.
type Styles struct {
	Title   lipgloss.Style
	Author  lipgloss.Style
	Score   lipgloss.Style
	Excerpt lipgloss.Style
	Label   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAmber)),
		Author:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Score:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorDarkGray)),
		Excerpt: lipgloss.NewStyle().Foreground(lipgloss.Color(colorWhite)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorDarkGray)),
	}
}

// NoColorStyles returns pass-through styles for pipes and NO_COLOR.
func NoColorStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle(),
		Author:  lipgloss.NewStyle(),
		Score:   lipgloss.NewStyle(),
		Excerpt: lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
	}
}

// GetStyles picks styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
