// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package layout provides the shared header/footer chrome and styles used by
// every dashboard screen.
package layout

import (
	"fmt"
	"strings"
)

// HelpItem represents a single help entry in the footer.
type HelpItem struct {
	Key         string
	Description string
}

// RenderHeader creates a header with title, an optional status line, and a
// divider.
func RenderHeader(title, status string, width int) string {
	var header strings.Builder

	header.WriteString(TitleStyle.Render(title))
	if status != "" {
		header.WriteString("  ")
		header.WriteString(status)
	}
	header.WriteString("\n")
	header.WriteString(GetDivider(width))

	return header.String()
}

// RenderFooter creates a footer with help items.
func RenderFooter(helpItems []HelpItem, width int) string {
	if len(helpItems) == 0 {
		return ""
	}

	var helpTexts []string
	for _, item := range helpItems {
		helpTexts = append(helpTexts, fmt.Sprintf("[%s] %s",
			HelpKeyStyle.Render(item.Key),
			HelpTextStyle.Render(item.Description)))
	}

	return GetDivider(width) + "\n" + strings.Join(helpTexts, "  ")
}
