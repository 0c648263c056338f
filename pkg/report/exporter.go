// Copyright (C) 2026 SkySage AI (dev@skysage.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package report renders SkySage research transcripts and market
// comparison tables as paginated PDF reports.
//
// # Description
//
// The layout math lives in pure functions (WriteTranscript, WriteTable)
// that drive an abstract PageSink, so pagination can be tested without
// producing actual PDF bytes. A gofpdf-backed sink (see pdf.go) turns
// the same draw commands into a real document.
//
// Page geometry is A4 in millimeters with fixed margins, line heights,
// and font sizes. There is no dynamic font scaling: oversized cell text
// is truncated with an ellipsis and over-long words are hard-split by
// the sink's text wrapping.
//
// # Determinism
//
// Given identical input and an identical generation timestamp, an
// export produces byte-identical output. Callers pass the timestamp
// explicitly rather than the exporter reading the clock.
package report

import (
	"fmt"
	"time"
)

// =============================================================================
// Page Geometry
// =============================================================================

// A4 portrait dimensions in millimeters.
const (
	pageWidth  = 210.0
	pageHeight = 297.0
)

// Transcript layout constants.
const (
	transcriptMargin = 20.0
	lineHeight       = 6.0
	titleFontSize    = 16.0
	metaFontSize     = 10.0
	bodyFontSize     = 11.0
)

// Table layout constants.
const (
	tableMargin   = 18.0
	rowHeight     = 7.0
	tableFontSize = 9.0
)

// breakY is the vertical cursor limit. A content unit that would end
// below this line moves to a fresh page instead.
const breakY = 270.0

// =============================================================================
// Page Sink
// =============================================================================

// PageSink accepts the draw commands emitted by the pagination
// functions. Coordinates are millimeters from the top-left corner of
// the current page.
//
// Implementations must apply SetFont before measuring or drawing, since
// wrapping depends on the active font.
type PageSink interface {
	// AddPage starts a new page and makes it current.
	AddPage()

	// SetFont sets the active font size in points and weight.
	SetFont(sizePt float64, bold bool)

	// Text draws a single line of text at (x, y).
	Text(x, y float64, text string)

	// SplitText word-wraps text to the given width in the active font,
	// hard-splitting any single token wider than the line.
	SplitText(text string, width float64) []string
}

// =============================================================================
// Transcript Export
// =============================================================================

// TranscriptEntry is one message of a research conversation.
type TranscriptEntry struct {
	// Role is "user" or "assistant". Anything that is not "user" is
	// labeled as the consultant.
	Role string

	// Content is the message text.
	Content string
}

// speakerLabel maps a message role to the printed transcript label.
func speakerLabel(role string) string {
	if role == "user" {
		return "You"
	}
	return "Consultant"
}

// WriteTranscript paginates a conversation transcript onto the sink.
//
// The first page carries the report title and generation timestamp;
// each entry is a bold speaker label followed by its word-wrapped
// content. An entry whose label and wrapped lines would run past the
// bottom margin starts on a fresh page, so no entry is ever split
// across a page boundary. The exception is an entry taller than a whole
// page: it still gets a fresh page, then draws past the bottom margin
// rather than being split. Zero entries still produce the header page.
func WriteTranscript(sink PageSink, entries []TranscriptEntry, generatedAt time.Time) {
	maxWidth := pageWidth - transcriptMargin*2

	sink.AddPage()
	y := transcriptMargin

	sink.SetFont(titleFontSize, false)
	sink.Text(transcriptMargin, y, "SkySage — Research Chat Report")
	y += 10

	sink.SetFont(metaFontSize, false)
	sink.Text(transcriptMargin, y, "Generated: "+formatTimestamp(generatedAt))
	y += lineHeight * 2

	for _, entry := range entries {
		sink.SetFont(bodyFontSize, false)
		lines := sink.SplitText(entry.Content, maxWidth)

		// Label plus wrapped lines move as one unit.
		unitHeight := lineHeight * float64(1+len(lines))
		if y > transcriptMargin && y+unitHeight > breakY {
			sink.AddPage()
			y = transcriptMargin
		}

		sink.SetFont(bodyFontSize, true)
		sink.Text(transcriptMargin, y, speakerLabel(entry.Role))
		y += lineHeight

		sink.SetFont(bodyFontSize, false)
		for _, line := range lines {
			sink.Text(transcriptMargin, y, line)
			y += lineHeight
		}
		y += lineHeight
	}
}

// =============================================================================
// Table Export
// =============================================================================

// Column describes one table column: its printed header, nominal width
// in millimeters, and the character budget before cell text is
// truncated with an ellipsis.
type Column struct {
	Header   string
	Width    float64
	MaxChars int
}

// Table is a tabular report: a title line, a metadata subtitle, an
// optional summary sentence, and fixed-width columns of string cells.
type Table struct {
	Title    string
	Subtitle string
	Summary  string
	Columns  []Column
	Rows     [][]string
}

// WriteTable paginates a table onto the sink.
//
// Column widths are rescaled proportionally when their sum exceeds the
// usable page width. The bold header row is drawn once at the top of
// the table, not repeated on later pages; rows never split across a
// page boundary. Zero rows still produce the header page.
func WriteTable(sink PageSink, table Table, generatedAt time.Time) {
	usable := pageWidth - tableMargin*2
	widths := scaleWidths(table.Columns, usable)

	sink.AddPage()
	y := tableMargin

	sink.SetFont(titleFontSize, false)
	sink.Text(tableMargin, y, table.Title)
	y += 8

	sink.SetFont(metaFontSize, false)
	sink.Text(tableMargin, y, table.Subtitle+" | Generated: "+formatTimestamp(generatedAt))
	y += lineHeight
	sink.Text(tableMargin, y, table.Summary)
	y += 10

	sink.SetFont(tableFontSize, true)
	x := tableMargin
	for i, col := range table.Columns {
		sink.Text(x, y, col.Header)
		x += widths[i]
	}
	y += rowHeight

	sink.SetFont(tableFontSize, false)
	for _, row := range table.Rows {
		if y > tableMargin && y+rowHeight > breakY {
			sink.AddPage()
			y = tableMargin
		}
		x = tableMargin
		for i, col := range table.Columns {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			sink.Text(x, y, truncateCell(cell, col.MaxChars))
			x += widths[i]
		}
		y += rowHeight
	}
}

// scaleWidths returns the effective column widths: nominal widths when
// they fit, otherwise all widths scaled by the same factor so their sum
// equals the usable width.
func scaleWidths(columns []Column, usable float64) []float64 {
	total := 0.0
	for _, col := range columns {
		total += col.Width
	}
	factor := 1.0
	if total > usable && total > 0 {
		factor = usable / total
	}
	widths := make([]float64, len(columns))
	for i, col := range columns {
		widths[i] = col.Width * factor
	}
	return widths
}

// truncateCell caps cell text at maxChars runes, replacing the tail
// with an ellipsis when it does not fit. Rows keep a constant height
// because cells are never wrapped.
func truncateCell(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	if maxChars == 1 {
		return "…"
	}
	return string(runes[:maxChars-1]) + "…"
}

// formatTimestamp renders the generation timestamp shown in report
// headers.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05 MST")
}

// =============================================================================
// File Names
// =============================================================================

// TranscriptFileName returns the download name for a transcript report,
// carrying the ISO date of generation.
func TranscriptFileName(generatedAt time.Time) string {
	return fmt.Sprintf("skysage-research-report-%s.pdf", generatedAt.Format("2006-01-02"))
}

// ComparisonFileName returns the download name for a market comparison
// report, carrying the ISO date of generation.
func ComparisonFileName(generatedAt time.Time) string {
	return fmt.Sprintf("skysage-market-comparison-%s.pdf", generatedAt.Format("2006-01-02"))
}
