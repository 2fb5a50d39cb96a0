package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/core"
)

func newParser(t *testing.T, contentType, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/add", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return NewRequestBodyParser(httptest.NewRecorder(), req)
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantJSON    bool
		want        core.TransactionInput
	}{
		{
			name:        "form",
			contentType: formType,
			body:        "type=expense&category=Food&amount=12.50&date=2024-01-01&description=lunch",
			want:        core.TransactionInput{Type: "expense", Category: "Food", Amount: "12.50", Date: "2024-01-01", Description: "lunch"},
		},
		{
			name:        "json with numeric amount",
			contentType: "application/json",
			body:        `{"type":"income","category":"Salary","amount":1000,"date":"2024-01-01"}`,
			wantJSON:    true,
			want:        core.TransactionInput{Type: "income", Category: "Salary", Amount: "1000", Date: "2024-01-01"},
		},
		{
			name:     "json detected without header",
			body:     `{"type":"expense","category":"Rent","amount":"400.00","date":"2024-01-02"}`,
			wantJSON: true,
			want:     core.TransactionInput{Type: "expense", Category: "Rent", Amount: "400.00", Date: "2024-01-02"},
		},
		{
			name:        "inner text kept as given",
			contentType: formType,
			body:        "category=Fo%07od&description=%20a%09b%20",
			want:        core.TransactionInput{Category: "Fo\aod", Description: "a\tb"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t, tt.contentType, tt.body)
			if err := p.Err(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Fatalf("IsJSON = %v, want %v", p.IsJSON(), tt.wantJSON)
			}
			if got := p.TransactionInput(); got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRequestBodyParserErrors(t *testing.T) {
	if p := newParser(t, "application/json", `{"type":`); p.Err() == nil {
		t.Fatal("expected decode error for truncated JSON")
	}

	p := newParser(t, formType, strings.Repeat("a", maxBodyBytes+10))
	if !isBodyTooLarge(p.Err()) {
		t.Fatalf("expected MaxBytesError, got %v", p.Err())
	}
}

func TestRequestBodyParserAmount(t *testing.T) {
	p := newParser(t, formType, "budget_limit=abc&amount=2.50")

	_, err := p.Amount("budget_limit")
	var ve *core.ValidationError
	if !errors.As(err, &ve) || ve.Field != "budget_limit" {
		t.Fatalf("expected ValidationError on budget_limit, got %v", err)
	}

	m, err := p.Amount("amount")
	if err != nil || m.Cents != 250 {
		t.Fatalf("amount = %+v, err %v", m, err)
	}
}

func TestBudgetAndSavingsInput(t *testing.T) {
	p := newParser(t, formType, "category=Food&budget_limit=200&goal_name=Bike&target_amount=500&current_savings=10&due_date=2024-12-31")
	if got := p.BudgetInput(); got != (core.BudgetInput{Category: "Food", Limit: "200"}) {
		t.Fatalf("budget input %+v", got)
	}
	want := core.SavingsGoalInput{Name: "Bike", Target: "500", Current: "10", DueDate: "2024-12-31"}
	if got := p.SavingsGoalInput(); got != want {
		t.Fatalf("savings input %+v", got)
	}
}
