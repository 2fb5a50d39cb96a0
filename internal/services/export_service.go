package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// exportHeader is shared by every export format.
var exportHeader = []string{"ID", "Type", "Category", "Amount", "Date", "Description"}

// ExportService renders the full transaction set as CSV, PDF or XLSX.
type ExportService struct {
	transactions *TransactionService
}

func NewExportService(transactions *TransactionService) *ExportService {
	return &ExportService{transactions: transactions}
}

func exportRecord(t core.Transaction) []string {
	return []string{
		strconv.FormatInt(t.ID, 10),
		string(t.Type),
		t.Category,
		t.Amount.String(),
		t.Date,
		t.Description,
	}
}

// WriteCSV streams a header line and one record per transaction, quoting fields where needed.
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	rows := 0
	err := s.transactions.Each(ctx, func(t core.Transaction) error {
		rows++
		if err := cw.Write(exportRecord(t)); err != nil {
			return err
		}
		// Flush every 100 rows so the response streams.
		if rows%100 == 0 {
			cw.Flush()
			return cw.Error()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	logExport(ctx, "csv", rows)
	return nil
}

// PDF layout in points, measured from the bottom edge of a Letter page.
const (
	pdfPageHeight = 792.0
	pdfTop        = 750.0
	pdfBottom     = 50.0
	pdfStep       = 20.0
)

var pdfColumns = []float64{30, 70, 140, 290, 370, 450}

// pdfCursor tracks the baseline of the next line. It starts at the top
// margin of page 1.
type pdfCursor struct {
	page int
	y    float64
}

func newPDFCursor() *pdfCursor {
	return &pdfCursor{page: 1, y: pdfTop}
}

// advance moves one line down. Below the bottom margin it starts a new
// page at the top margin and reports true.
func (c *pdfCursor) advance() bool {
	c.y -= pdfStep
	if c.y < pdfBottom {
		c.page++
		c.y = pdfTop
		return true
	}
	return false
}

// WritePDF renders a title, a column header and one line per transaction.
func (s *ExportService) WritePDF(ctx context.Context, w io.Writer) error {
	pdf, rows, err := s.buildPDF(ctx)
	if err != nil {
		return err
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	logExport(ctx, "pdf", rows)
	return nil
}

// buildPDF lays out the document without serialising it.
func (s *ExportService) buildPDF(ctx context.Context) (*fpdf.Fpdf, int, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("Transactions", true)
	pdf.AddPage()

	// The core fonts are cp1252; stored text is UTF-8.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	cur := newPDFCursor()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(pdfColumns[0], pdfPageHeight-cur.y, "Transactions")

	cur.advance()
	pdf.SetFont("Helvetica", "B", 10)
	writePDFLine(pdf, tr, cur.y, exportHeader)

	pdf.SetFont("Helvetica", "", 10)
	rows := 0
	err := s.transactions.Each(ctx, func(t core.Transaction) error {
		rows++
		if cur.advance() {
			pdf.AddPage()
		}
		rec := exportRecord(t)
		rec[5] = truncate(rec[5], 40)
		rec[2] = truncate(rec[2], 24)
		writePDFLine(pdf, tr, cur.y, rec)
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("read transactions: %w", err)
	}
	if err := pdf.Error(); err != nil {
		return nil, 0, fmt.Errorf("layout pdf: %w", err)
	}
	return pdf, rows, nil
}

func writePDFLine(pdf *fpdf.Fpdf, tr func(string) string, y float64, fields []string) {
	for i, f := range fields {
		pdf.Text(pdfColumns[i], pdfPageHeight-y, tr(f))
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

const xlsxSheet = "Transactions"

// WriteXLSX writes a single-sheet workbook with numeric amounts.
func (s *ExportService) WriteXLSX(ctx context.Context, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	for i, header := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(xlsxSheet, cell, header); err != nil {
			return fmt.Errorf("write xlsx header: %w", err)
		}
	}

	row := 1
	err := s.transactions.Each(ctx, func(t core.Transaction) error {
		row++
		values := []any{t.ID, string(t.Type), t.Category, t.Amount.Float(), t.Date, t.Description}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		return f.SetSheetRow(xlsxSheet, cell, &values)
	})
	if err != nil {
		return fmt.Errorf("write xlsx rows: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	logExport(ctx, "xlsx", row-1)
	return nil
}

func logExport(ctx context.Context, format string, rows int) {
	log.FromContext(ctx).WithComponent(log.ComponentExport).InfoContext(ctx, "Transactions exported",
		log.FieldFormat, format,
		log.FieldRows, rows,
		log.FieldOperation, log.OpExport)
}
