// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream merges partial-text fragments into one growing buffer and
// parses the reflect/final-answer grammar the gateway streams its answers in.
// Parsing is pure and idempotent over the buffer: it is re-run on every
// fragment arrival and keeps no state beyond the buffer string itself.
package stream

import (
	"regexp"
	"strings"
)

// SegmentType identifies one section of a structured answer.
type SegmentType string

const (
	SegmentReflect     SegmentType = "reflect"
	SegmentFinalAnswer SegmentType = "final_answer"
	SegmentText        SegmentType = "text"
)

const (
	reflectOpen  = "<reflect>"
	reflectClose = "</reflect>"
	finalOpen    = "<final_answer>"
	finalClose   = "</final_answer>"
)

var (
	reflectPattern = regexp.MustCompile(`(?s)<reflect>(.*?)</reflect>`)
	finalPattern   = regexp.MustCompile(`(?s)<final_answer>(.*?)</final_answer>`)
)

// Segment is one parsed section of the answer buffer. Complete is false while
// the section's start tag has been seen but its end tag has not yet arrived.
type Segment struct {
	Type     SegmentType
	Content  string
	Complete bool
}

// Parsed is the result of parsing an answer buffer. When the buffer contains
// no recognized tags at all, HasStructure is false and Text holds the whole
// buffer; Segments is populated only for structured buffers, always in the
// display order reflect, final_answer, text regardless of arrival order.
type Parsed struct {
	HasStructure bool
	Text         string
	Segments     []Segment
}

// Accumulate appends a newly arrived fragment to the buffer. The transport
// guarantees ordered, at-most-once delivery of fragments within one
// connection, so concatenation is the whole merge rule.
func Accumulate(buffer, fragment string) string {
	return buffer + fragment
}

// Parse decomposes the accumulated buffer into reflect, final-answer and
// residual text segments. Closed sections are extracted by their delimiters;
// an open section (start tag seen, no end tag yet) yields an incomplete
// segment holding everything after its start tag.
func Parse(buffer string) Parsed {
	if !strings.Contains(buffer, reflectOpen) && !strings.Contains(buffer, finalOpen) {
		return Parsed{HasStructure: false, Text: buffer}
	}

	working := buffer
	var reflectSeg, finalSeg *Segment

	if m := reflectPattern.FindStringSubmatch(working); m != nil {
		reflectSeg = &Segment{Type: SegmentReflect, Content: m[1], Complete: true}
		working = reflectPattern.ReplaceAllString(working, "")
	}
	if m := finalPattern.FindStringSubmatch(working); m != nil {
		finalSeg = &Segment{Type: SegmentFinalAnswer, Content: m[1], Complete: true}
		working = finalPattern.ReplaceAllString(working, "")
	}

	// Open reflect section: runs to the final-answer start tag if one has
	// already arrived, otherwise to the end of the buffer.
	if reflectSeg == nil {
		if idx := strings.Index(working, reflectOpen); idx >= 0 {
			rest := working[idx+len(reflectOpen):]
			content := rest
			if fi := strings.Index(rest, finalOpen); fi >= 0 {
				content = rest[:fi]
				rest = rest[fi:]
			} else {
				rest = ""
			}
			reflectSeg = &Segment{Type: SegmentReflect, Content: content, Complete: false}
			working = working[:idx] + rest
		}
	}

	// Open final-answer section always runs to the end of the buffer.
	if finalSeg == nil {
		if idx := strings.Index(working, finalOpen); idx >= 0 {
			finalSeg = &Segment{Type: SegmentFinalAnswer, Content: working[idx+len(finalOpen):], Complete: false}
			working = working[:idx]
		}
	}

	parsed := Parsed{HasStructure: true}
	if reflectSeg != nil {
		parsed.Segments = append(parsed.Segments, *reflectSeg)
	}
	if finalSeg != nil {
		parsed.Segments = append(parsed.Segments, *finalSeg)
	}
	if residue := strings.TrimSpace(working); residue != "" {
		parsed.Segments = append(parsed.Segments, Segment{Type: SegmentText, Content: residue, Complete: true})
	}
	return parsed
}

// FinalAnswer returns the final-answer content when present, falling back to
// the unstructured text for tagless buffers. Used for transcript previews and
// history persistence.
func (p Parsed) FinalAnswer() string {
	for _, seg := range p.Segments {
		if seg.Type == SegmentFinalAnswer {
			return seg.Content
		}
	}
	if !p.HasStructure {
		return p.Text
	}
	return ""
}
