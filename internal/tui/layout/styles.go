// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package layout

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Color palette
	PrimaryColor   = lipgloss.Color("#E8590C")
	SecondaryColor = lipgloss.Color("#FFA94D")
	AccentColor    = lipgloss.Color("#10B981")
	TextColor      = lipgloss.Color("#F3F4F6")
	MutedColor     = lipgloss.Color("#9CA3AF")
	BorderColor    = lipgloss.Color("#4B5563")
	ErrorColor     = lipgloss.Color("#EF4444")
	WarningColor   = lipgloss.Color("#F59E0B")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true)

	StatusStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true)

	StatusErrorStyle = lipgloss.NewStyle().
				Foreground(ErrorColor).
				Bold(true)

	// Transcript styles
	QuestionStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	AnswerStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	ReflectStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	FinalAnswerStyle = lipgloss.NewStyle().
				Foreground(AccentColor).
				Bold(true)

	ToolStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Italic(true)

	// Footer styles
	HelpTextStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	DividerStyle = lipgloss.NewStyle().
			Foreground(BorderColor)
)

// GetDivider returns a horizontal divider sized to the given width.
func GetDivider(width int) string {
	if width <= 0 {
		width = 80
	}
	return DividerStyle.Render(strings.Repeat("─", width))
}
