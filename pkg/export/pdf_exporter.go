package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets and weekly grids into basic PDF documents.
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

// Grid describes a day-by-period matrix for weekly timetable rendering.
type Grid struct {
	DayLabels []string
	Periods   int
	// Cells[dayIndex][period-1] holds the rendered cell text.
	Cells [][]string
}

// RenderGrid creates a landscape PDF with days as rows and periods as columns.
func (e *PDFExporter) RenderGrid(grid Grid, title string) ([]byte, error) {
	if grid.Periods <= 0 || len(grid.DayLabels) == 0 {
		return nil, fmt.Errorf("grid requires at least one day and one period")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	dayColWidth := 30.0
	periodColWidth := (277.0 - dayColWidth) / float64(grid.Periods)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(dayColWidth, 8, "Day", "1", 0, "C", false, 0, "")
	for p := 1; p <= grid.Periods; p++ {
		pdf.CellFormat(periodColWidth, 8, fmt.Sprintf("P%d", p), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for i, label := range grid.DayLabels {
		pdf.CellFormat(dayColWidth, 10, label, "1", 0, "C", false, 0, "")
		for p := 0; p < grid.Periods; p++ {
			var cell string
			if i < len(grid.Cells) && p < len(grid.Cells[i]) {
				cell = grid.Cells[i][p]
			}
			pdf.CellFormat(periodColWidth, 10, cell, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render grid pdf: %w", err)
	}
	return buf.Bytes(), nil
}
