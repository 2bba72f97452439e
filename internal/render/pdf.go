package render

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	pdfRowHeight  = 7.0
	pdfFontSize   = 8.0
	pdfTitleSize  = 14.0
	pdfCellMargin = 2.0
)

// PDFOptions controls the tabular PDF layout.
type PDFOptions struct {
	Title          string
	RowsPerPage    int
	IncludeHeaders bool
	GeneratedAt    time.Time
}

// PDF writes records as a landscape table, starting a new page (with the
// header row repeated) every RowsPerPage rows.
func PDF(w io.Writer, records []map[string]interface{}, columns []Column, opts PDFOptions) error {
	if len(columns) == 0 {
		return fmt.Errorf("no columns to render")
	}
	if opts.RowsPerPage <= 0 {
		return fmt.Errorf("rows per page must be positive")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 10)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colW := (pageW - left - right) / float64(len(columns))

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", pdfFontSize)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	fit := func(s string) string {
		s = tr(s)
		for len(s) > 0 && pdf.GetStringWidth(s) > colW-pdfCellMargin {
			s = s[:len(s)-1]
		}
		return s
	}

	header := func() {
		if !opts.IncludeHeaders {
			return
		}
		pdf.SetFont("Helvetica", "B", pdfFontSize)
		pdf.SetFillColor(230, 230, 230)
		for _, c := range columns {
			pdf.CellFormat(colW, pdfRowHeight, fit(c.Header), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", pdfFontSize)
	}

	newPage := func(first bool) {
		pdf.AddPage()
		if first {
			title := opts.Title
			if title == "" {
				title = "Export"
			}
			pdf.SetFont("Helvetica", "B", pdfTitleSize)
			pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
			if !opts.GeneratedAt.IsZero() {
				pdf.SetFont("Helvetica", "", pdfFontSize)
				pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s - %d records",
					opts.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), len(records)), "", 1, "L", false, 0, "")
			}
			pdf.Ln(2)
		}
		header()
		pdf.SetFont("Helvetica", "", pdfFontSize)
	}

	newPage(true)
	for i, rec := range records {
		if i > 0 && i%opts.RowsPerPage == 0 {
			newPage(false)
		}
		for _, c := range columns {
			pdf.CellFormat(colW, pdfRowHeight, fit(Cell(rec, c.Path)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.Output(w)
}

// PageCount is the number of pages PDF produces for n records.
func PageCount(n, rowsPerPage int) int {
	if n == 0 || rowsPerPage <= 0 {
		return 1
	}
	return (n + rowsPerPage - 1) / rowsPerPage
}
