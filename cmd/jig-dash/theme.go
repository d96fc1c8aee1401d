package main

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"jig/pkg/worker"
)

// Theme defines the visual styling for jig-dash.
type Theme struct {
	Primary lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Muted   lipgloss.Color
}

// DefaultTheme returns the default theme.
func DefaultTheme() Theme {
	return Theme{
		Primary: lipgloss.Color("12"),  // Blue
		Success: lipgloss.Color("10"),  // Green
		Warning: lipgloss.Color("11"),  // Yellow
		Error:   lipgloss.Color("9"),   // Red
		Muted:   lipgloss.Color("240"), // Gray
	}
}

// StatusColor maps a worker status to a theme colour.
func (t Theme) StatusColor(k worker.Kind) lipgloss.Color {
	switch k {
	case worker.KindRunning:
		return t.Primary
	case worker.KindWaitingReview:
		return t.Warning
	case worker.KindApproved, worker.KindMerged:
		return t.Success
	case worker.KindFailed:
		return t.Error
	default:
		return t.Muted
	}
}

// TableStyles derives bubbles/table styles from the theme.
func (t Theme) TableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(t.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(t.Primary)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(t.Primary).
		Bold(false)
	return s
}
