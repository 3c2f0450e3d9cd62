// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import "github.com/charmbracelet/lipgloss"

var (
	appStyle      = lipgloss.NewStyle().Padding(1, 2)
	titleStyle    = lipgloss.NewStyle().Bold(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e06c75"))
	selectedStyle = lipgloss.NewStyle().Bold(true)
	editBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	stateStyles = map[string]lipgloss.Style{
		"synced":       lipgloss.NewStyle().Foreground(lipgloss.Color("#98c379")),
		"connected":    lipgloss.NewStyle().Foreground(lipgloss.Color("#61afef")),
		"connecting":   lipgloss.NewStyle().Foreground(lipgloss.Color("#e5c07b")),
		"disconnected": lipgloss.NewStyle().Foreground(lipgloss.Color("#e06c75")),
		"errored":      lipgloss.NewStyle().Foreground(lipgloss.Color("#e06c75")).Bold(true),
	}
)

func userStyle(color string) lipgloss.Style {
	if color == "" {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}
