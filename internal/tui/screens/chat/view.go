// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hearth-home/hearth/internal/protocol"
	"github.com/hearth-home/hearth/internal/stream"
	"github.com/hearth-home/hearth/internal/transcript"
	"github.com/hearth-home/hearth/internal/tui/layout"
)

// View renders the chat screen.
func (m Model) View() string {
	status := m.renderStatus()
	header := layout.RenderHeader("Hearth", status, m.width)

	footer := layout.RenderFooter([]layout.HelpItem{
		{Key: "enter", Description: "send"},
		{Key: "esc", Description: "stop"},
		{Key: "ctrl+n", Description: "new chat"},
		{Key: "ctrl+s", Description: "settings"},
		{Key: "ctrl+c", Description: "quit"},
	}, m.width)

	return lipgloss.JoinVertical(lipgloss.Top,
		header,
		m.viewport.View(),
		layout.GetDivider(m.width),
		m.input.View(),
		footer,
	)
}

func (m Model) renderStatus() string {
	if m.answering {
		return m.spin.View() + layout.StatusStyle.Render("answering")
	}
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return layout.StatusErrorStyle.Render(m.status)
	}
	return layout.StatusStyle.Render(m.status)
}

// RenderTranscript renders the committed turns plus the building answer.
func RenderTranscript(turns []transcript.Turn, width int) string {
	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		switch turn.Role {
		case transcript.RoleQuestion:
			renderQuestion(&b, turn)
		case transcript.RoleAnswer:
			renderAnswer(&b, turn)
		}
	}
	return b.String()
}

func renderQuestion(b *strings.Builder, turn transcript.Turn) {
	b.WriteString(layout.QuestionStyle.Render("You ▸ "))
	b.WriteString(turn.Question)
	b.WriteString("\n")
	if len(turn.CameraIDs) > 0 {
		b.WriteString(layout.ToolStyle.Render("  cameras: " + strings.Join(turn.CameraIDs, ", ")))
		b.WriteString("\n")
	}
	if len(turn.McpList) > 0 {
		b.WriteString(layout.ToolStyle.Render("  tools: " + strings.Join(turn.McpList, ", ")))
		b.WriteString("\n")
	}
}

func renderAnswer(b *strings.Builder, turn transcript.Turn) {
	b.WriteString(layout.AnswerStyle.Render("Hearth ▸ "))
	if turn.Building {
		b.WriteString(layout.ReflectStyle.Render("…"))
	}
	b.WriteString("\n")

	renderStreamSegments(b, turn)

	for _, entry := range turn.Entries {
		renderEntry(b, turn, entry)
	}

	if turn.Complete && !turn.Success {
		b.WriteString(layout.NoticeStyle.Render("  (the gateway reported this answer as failed)"))
		b.WriteString("\n")
	}
}

func renderStreamSegments(b *strings.Builder, turn transcript.Turn) {
	parsed := turn.Parsed()
	if !parsed.HasStructure {
		if parsed.Text != "" {
			b.WriteString(indent(layout.AnswerStyle.Render(parsed.Text)))
		}
		return
	}
	for _, seg := range parsed.Segments {
		var style lipgloss.Style
		switch seg.Type {
		case stream.SegmentReflect:
			style = layout.ReflectStyle
		case stream.SegmentFinalAnswer:
			style = layout.FinalAnswerStyle
		default:
			style = layout.AnswerStyle
		}
		content := seg.Content
		if !seg.Complete {
			content += " …"
		}
		b.WriteString(indent(style.Render(content)))
	}
}

// renderEntry renders the non-stream entries: tool activity, camera bursts,
// rule confirmations, proposed actions, and inline notices.
func renderEntry(b *strings.Builder, turn transcript.Turn, entry transcript.Entry) {
	if entry.ParseErr != "" {
		b.WriteString(indent(layout.NoticeStyle.Render("⚠ " + entry.ParseErr)))
		return
	}

	switch entry.Kind {
	case protocol.KindCallTool:
		var call protocol.CallToolPayload
		if entry.Env.DecodePayload(&call) == nil {
			b.WriteString(indent(layout.ToolStyle.Render("⚙ " + call.Name)))
		}

	case protocol.KindCallToolResult:
		var result protocol.CallToolResultPayload
		if entry.Env.DecodePayload(&result) == nil {
			line := "  ↳ " + result.Result
			if call, ok := turn.ToolCall(result.ID); ok {
				line = "  ↳ " + call.Name + ": " + result.Result
			}
			if result.IsError {
				b.WriteString(indent(layout.NoticeStyle.Render(line)))
			} else {
				b.WriteString(indent(layout.ToolStyle.Render(line)))
			}
		}

	case protocol.KindCameraImages:
		var images protocol.CameraImagesPayload
		if entry.Env.DecodePayload(&images) == nil {
			for _, img := range images.Images {
				b.WriteString(indent(layout.ToolStyle.Render(fmt.Sprintf("📷 %s %s", img.CameraID, img.URL))))
			}
		}

	case protocol.KindSaveRuleConfirm, protocol.KindSaveRuleConfirmResult:
		var rule protocol.RuleConfirmPayload
		if entry.Env.DecodePayload(&rule) == nil {
			label := "rule proposed"
			if rule.Saved {
				label = "rule saved"
			}
			b.WriteString(indent(layout.FinalAnswerStyle.Render("✓ " + label)))
			if len(rule.CameraOptions) > 0 {
				b.WriteString(indent(layout.ToolStyle.Render("  cameras: " + optionNames(rule.CameraOptions))))
			}
			if len(rule.ActionOptions) > 0 {
				b.WriteString(indent(layout.ToolStyle.Render("  actions: " + optionNames(rule.ActionOptions))))
			}
		}

	case protocol.KindAiGeneratedActions:
		var actions protocol.AiGeneratedActionsPayload
		if entry.Env.DecodePayload(&actions) == nil {
			for _, a := range actions.Actions {
				b.WriteString(indent(layout.ToolStyle.Render(fmt.Sprintf("▸ %s: %s", a.DeviceID, a.Action))))
			}
		}

	case protocol.KindException:
		var exc protocol.ExceptionPayload
		if entry.Env.DecodePayload(&exc) == nil {
			b.WriteString(indent(layout.NoticeStyle.Render(fmt.Sprintf("⚠ %s (%d)", exc.Message, exc.Code))))
		}

	case protocol.KindUnknown:
		b.WriteString(indent(layout.NoticeStyle.Render("⚠ unrecognized message: " + entry.Env.Header.Name)))
	}
}

func optionNames(options []protocol.RuleOption) string {
	names := make([]string, len(options))
	for i, o := range options {
		names[i] = o.Name
	}
	return strings.Join(names, ", ")
}

func indent(s string) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n") + "\n"
}
