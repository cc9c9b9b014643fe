package reports

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// WriteUserPDF renders a user report as a one-table PDF.
func WriteUserPDF(w io.Writer, report UserReport) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, tr("Self-evaluation report"))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Employee: %s %s", report.Name, report.LastName)))
	pdf.Ln(7)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Email: %s", report.Email)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Generated: %s", report.GeneratedAt.Format("2006-01-02 15:04")))
	pdf.Ln(10)

	sum := report.Summary
	pdf.Cell(0, 8, fmt.Sprintf("Total points: %.2f   Approved points: %.2f", sum.TotalPoints, sum.ApprovedPoints))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Pending: %d   Approved: %d   Rejected: %d", sum.PendingCount, sum.ApprovedCount, sum.RejectedCount))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(90, 8, "Category", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 8, "Items", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Points", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Approved", "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for _, category := range sortedCategories(report.Categories) {
		c := report.Categories[category]
		pdf.CellFormat(90, 8, tr(category), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 8, fmt.Sprintf("%d", c.Count), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, fmt.Sprintf("%.2f", c.TotalPoints), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, fmt.Sprintf("%.2f", c.ApprovedPoints), "1", 1, "R", false, 0, "")
	}

	if len(report.Responses) > 0 {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 8, "Responses")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		for _, r := range report.Responses {
			pdf.CellFormat(120, 7, tr(r.QuestionTitle), "B", 0, "L", false, 0, "")
			pdf.CellFormat(25, 7, fmt.Sprintf("%.2f", r.Points), "B", 0, "R", false, 0, "")
			pdf.CellFormat(40, 7, string(r.Status), "B", 1, "R", false, 0, "")
		}
	}
	return pdf.Output(w)
}

var libraryHeader = []string{"Email", "Name", "Items", "Articles", "Pending", "Approved", "Total points", "Approved points"}

// WriteLibraryXLSX writes the library overview as a single-sheet workbook.
func WriteLibraryXLSX(w io.Writer, rows []LibraryRow) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Library"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	for i, h := range libraryHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r, row := range rows {
		values := []any{row.Email, row.Name, row.Items, row.Articles, row.PendingCount, row.ApprovedCount, row.TotalPoints, row.ApprovedPoints}
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func sortedCategories(m map[string]CategorySummary) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
