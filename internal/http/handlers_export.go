package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"

	"fintrack/internal/log"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Cache-Control", "no-store")
}

// handleExportCSV streams rows as they are read. Once the first bytes are
// sent a failure can only be logged.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	attachment(w, contentTypeCSV, "transactions.csv")
	cw := &countingWriter{w: w}
	if err := s.exports.WriteCSV(r.Context(), cw); err != nil {
		if cw.n == 0 {
			w.Header().Del("Content-Disposition")
			s.internalError(w, r, "CSV export failed", err, log.ComponentExport, log.OpExport)
			return
		}
		s.errors.LogError(r.Context(), "CSV export interrupted", err, log.ComponentExport, log.OpExport,
			log.NewFields().WithErrorType(log.ErrorTypeInternal))
	}
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	s.bufferedExport(w, r, contentTypePDF, "transactions.pdf", s.exports.WritePDF)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.bufferedExport(w, r, contentTypeXLSX, "transactions.xlsx", s.exports.WriteXLSX)
}

// bufferedExport renders the whole document before sending headers so a
// failure still yields a clean 500.
func (s *Server) bufferedExport(w http.ResponseWriter, r *http.Request, contentType, filename string, write func(context.Context, io.Writer) error) {
	var buf bytes.Buffer
	if err := write(r.Context(), &buf); err != nil {
		s.internalError(w, r, "Export failed", err, log.ComponentExport, log.OpExport)
		return
	}
	attachment(w, contentType, filename)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
