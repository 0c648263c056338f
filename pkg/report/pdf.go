// Copyright (C) 2026 SkySage AI (dev@skysage.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// =============================================================================
// PDF Sink
// =============================================================================

// pdfSink adapts a gofpdf document to the PageSink interface.
type pdfSink struct {
	pdf       *gofpdf.Fpdf
	translate func(string) string
}

// newPDFSink creates an A4 portrait document with metadata dates pinned
// to generatedAt so identical input yields identical bytes.
func newPDFSink(generatedAt time.Time) *pdfSink {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(generatedAt)
	pdf.SetModificationDate(generatedAt)
	return &pdfSink{
		pdf:       pdf,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

func (s *pdfSink) AddPage() {
	s.pdf.AddPage()
}

func (s *pdfSink) SetFont(sizePt float64, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	s.pdf.SetFont("Helvetica", style, sizePt)
}

func (s *pdfSink) Text(x, y float64, text string) {
	s.pdf.Text(x, y, s.translate(text))
}

func (s *pdfSink) SplitText(text string, width float64) []string {
	return s.pdf.SplitText(s.translate(text), width)
}

func (s *pdfSink) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// =============================================================================
// Public Export Functions
// =============================================================================

// ExportTranscriptPDF renders a conversation transcript as PDF bytes.
// Empty input yields a document with only the title and timestamp.
func ExportTranscriptPDF(entries []TranscriptEntry, generatedAt time.Time) ([]byte, error) {
	sink := newPDFSink(generatedAt)
	WriteTranscript(sink, entries, generatedAt)
	return sink.Bytes()
}

// ExportTablePDF renders a table report as PDF bytes.
func ExportTablePDF(table Table, generatedAt time.Time) ([]byte, error) {
	sink := newPDFSink(generatedAt)
	WriteTable(sink, table, generatedAt)
	return sink.Bytes()
}

// =============================================================================
// Market Comparison Table
// =============================================================================

// maxComparisonRows caps how many listing rows a comparison report
// includes.
const maxComparisonRows = 25

// ComparisonRow is one aircraft listing in a market comparison report.
// Pointer fields distinguish "absent" from zero; absent values print as
// an em dash.
type ComparisonRow struct {
	Manufacturer     string
	Model            string
	ManufacturerYear *int
	AskPrice         *float64
	SoldPrice        *float64
	AirframeHours    *float64
	Location         string
	BasedAt          string
	ListingStatus    string
	DaysOnMarket     *int
	SourcePlatform   string
}

// comparisonColumns returns the fixed column layout for comparison
// reports. The nominal widths exceed the usable A4 width and are
// rescaled proportionally by WriteTable.
func comparisonColumns() []Column {
	return []Column{
		{Header: "Manufacturer / Model", Width: 38, MaxChars: 20},
		{Header: "Year", Width: 12, MaxChars: 20},
		{Header: "Ask Price", Width: 24, MaxChars: 20},
		{Header: "Sold Price", Width: 24, MaxChars: 20},
		{Header: "Hours", Width: 18, MaxChars: 20},
		{Header: "Location", Width: 32, MaxChars: 20},
		{Header: "Status", Width: 18, MaxChars: 20},
		{Header: "Days on Mkt", Width: 18, MaxChars: 20},
		{Header: "Source", Width: 22, MaxChars: 20},
	}
}

// BuildComparisonTable shapes market comparison results into a Table
// for export, capping the row count and formatting absent values.
func BuildComparisonTable(rows []ComparisonRow, models []string, region, summary string) Table {
	if len(rows) > maxComparisonRows {
		rows = rows[:maxComparisonRows]
	}

	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells = append(cells, []string{
			orDash(strings.TrimSpace(strings.Join(nonEmpty(row.Manufacturer, row.Model), " "))),
			formatInt(row.ManufacturerYear),
			formatMoney(row.AskPrice),
			formatMoney(row.SoldPrice),
			formatFloat(row.AirframeHours),
			orDash(strings.TrimSpace(strings.Join(nonEmpty(row.Location, row.BasedAt), " "))),
			orDash(row.ListingStatus),
			formatInt(row.DaysOnMarket),
			orDash(row.SourcePlatform),
		})
	}

	return Table{
		Title:    "SkySage — Market Comparison",
		Subtitle: fmt.Sprintf("Models: %s | Region: %s", strings.Join(models, ", "), region),
		Summary:  summary,
		Columns:  comparisonColumns(),
		Rows:     cells,
	}
}

// nonEmpty filters out empty strings.
func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// orDash substitutes an em dash for empty text.
func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// formatInt renders an optional integer, dash when absent.
func formatInt(n *int) string {
	if n == nil {
		return "—"
	}
	return fmt.Sprintf("%d", *n)
}

// formatFloat renders an optional number without trailing zeros, dash
// when absent.
func formatFloat(n *float64) string {
	if n == nil {
		return "—"
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.1f", *n), "0"), ".")
}

// formatMoney renders an optional dollar amount with thousands
// separators, dash when absent.
func formatMoney(n *float64) string {
	if n == nil {
		return "—"
	}
	return "$" + groupThousands(fmt.Sprintf("%.0f", *n))
}

// groupThousands inserts commas into a plain digit string.
func groupThousands(digits string) string {
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
