package http

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/trace"
)

var errInvalidID = errors.New("invalid id")

// parseID reads the {id} path value as a positive integer.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// formatMoney renders cents with thousands separators, e.g. "-1,234.50".
func formatMoney(m core.Money) string {
	s := m.String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}

var templateFuncs = template.FuncMap{
	"money": formatMoney,
	"negative": func(m core.Money) bool {
		return m.Cents < 0
	},
}

// render executes a template into a buffer so a failure can still produce a 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.errors.LogError(r.Context(), "Template execution failed", err, log.ComponentTemplate, log.OpRender,
			log.NewFields().WithErrorType(log.ErrorTypeInternal))
		InternalServerError("Internal server error").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderError shows the error page with the given status.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, "error.html", errorPage{
		Title:     http.StatusText(status),
		Status:    status,
		Message:   message,
		RequestID: trace.GetRequestID(r.Context()),
	})
}

// internalError logs err and answers 500 without exposing the detail.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error, component, op string) {
	s.errors.LogError(r.Context(), msg, err, component, op, log.NewFields().WithErrorType(log.ErrorTypeDatabase))
	if wantsJSON(r) {
		JSONFailure(http.StatusInternalServerError, "Internal server error").Write(w)
		return
	}
	s.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again.")
}

// wantsJSON reports whether the client sent or accepts JSON.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Content-Type"), "application/json") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

func validationMessage(err error) string {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return "invalid input"
}
