package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// TimetableGrid describes a week sheet: one column per day, one row per
// booking line already formatted by the caller.
type TimetableGrid struct {
	Title   string
	Days    []string
	Entries map[string][]string
}

// PDFExporter renders datasets and timetable grids into basic PDFs.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 10)
	colWidth := 190.0 / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			value := row[header]
			pdf.CellFormat(colWidth, 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderTimetable creates a landscape week sheet with one column per day.
func (e *PDFExporter) RenderTimetable(grid TimetableGrid) ([]byte, error) {
	if len(grid.Days) == 0 {
		return nil, fmt.Errorf("timetable requires at least one day column")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if grid.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(grid.Title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	colWidth := 277.0 / float64(len(grid.Days))

	pdf.SetFont("Arial", "B", 10)
	for _, day := range grid.Days {
		pdf.CellFormat(colWidth, 8, day, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	maxRows := 0
	for _, day := range grid.Days {
		if n := len(grid.Entries[day]); n > maxRows {
			maxRows = n
		}
	}

	pdf.SetFont("Arial", "", 8)
	for row := 0; row < maxRows; row++ {
		for _, day := range grid.Days {
			value := ""
			if entries := grid.Entries[day]; row < len(entries) {
				value = entries[row]
			}
			pdf.CellFormat(colWidth, 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render timetable pdf: %w", err)
	}
	return buf.Bytes(), nil
}
