package main

import "github.com/charmbracelet/lipgloss"

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
	labelStyle = lipgloss.NewStyle().Bold(true)
)

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "ok":
		return okStyle
	case "warning":
		return warnStyle
	default:
		return errStyle
	}
}
