package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

const maxBodyBytes = 1 << 20

// RequestBodyParser reads a form-encoded or JSON body once and exposes its
// fields as trimmed strings.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	err      error
}

func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if p.err != nil {
		return p
	}
	p.err = p.parse(r.Header.Get("Content-Type"))
	return p
}

func (p *RequestBodyParser) parse(contentType string) error {
	trimmed := strings.TrimSpace(string(p.body))
	if strings.Contains(contentType, "application/json") || strings.HasPrefix(trimmed, "{") {
		p.jsonData = make(map[string]any)
		if trimmed == "" {
			return nil
		}
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			return fmt.Errorf("decode json body: %w", err)
		}
		return nil
	}

	values, err := url.ParseQuery(string(p.body))
	if err != nil {
		return fmt.Errorf("parse form body: %w", err)
	}
	p.formData = values
	return nil
}

func (p *RequestBodyParser) Err() error {
	return p.err
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(stringValue(val))
		}
		return ""
	}
	return strings.TrimSpace(p.formData.Get(key))
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func (p *RequestBodyParser) TransactionInput() core.TransactionInput {
	return core.TransactionInput{
		Type:        p.Get("type"),
		Category:    p.Get("category"),
		Amount:      p.Get("amount"),
		Date:        p.Get("date"),
		Description: p.Get("description"),
	}
}

func (p *RequestBodyParser) BudgetInput() core.BudgetInput {
	return core.BudgetInput{
		Category: p.Get("category"),
		Limit:    p.Get("budget_limit"),
	}
}

func (p *RequestBodyParser) SavingsGoalInput() core.SavingsGoalInput {
	return core.SavingsGoalInput{
		Name:    p.Get("goal_name"),
		Target:  p.Get("target_amount"),
		Current: p.Get("current_savings"),
		DueDate: p.Get("due_date"),
	}
}

// Amount parses a single money field, reporting failures as a ValidationError.
func (p *RequestBodyParser) Amount(field string) (core.Money, error) {
	m, err := core.ParseAmount(p.Get(field))
	if err != nil {
		return core.Money{}, &core.ValidationError{Field: field, Reason: err.Error()}
	}
	return m, nil
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
