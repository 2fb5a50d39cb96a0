package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DateLayout is the calendar date format accepted and stored for all dates.
const DateLayout = "2006-01-02"

type (
	TransactionType string

	Transaction struct {
		ID          int64
		Type        TransactionType
		Category    string
		Amount      Money
		Date        string
		Description string
	}

	Budget struct {
		ID       int64
		Category string
		Limit    Money
	}

	SavingsGoal struct {
		ID      int64
		Name    string
		Target  Money
		Current Money
		DueDate string // optional
	}

	// Balance aggregates all transactions: Balance = Income - Expense.
	Balance struct {
		Income  Money
		Expense Money
		Balance Money
	}

	// BudgetStatus joins a budget with the expense total of its category.
	BudgetStatus struct {
		Budget    Budget
		Spent     Money
		Remaining Money
	}
)

// ErrNotFound is returned when no row matches the requested id.
var ErrNotFound = errors.New("not found")

// ValidationError reports a malformed or missing input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// NewBalance computes the balance from the two totals.
func NewBalance(income, expense Money) Balance {
	return Balance{
		Income:  income,
		Expense: expense,
		Balance: Money{Cents: income.Cents - expense.Cents},
	}
}

// NewBudgetStatus computes the remaining amount for a budget given the category spend.
func NewBudgetStatus(b Budget, spent Money) BudgetStatus {
	return BudgetStatus{
		Budget:    b,
		Spent:     spent,
		Remaining: Money{Cents: b.Limit.Cents - spent.Cents},
	}
}

func (s BudgetStatus) Over() bool {
	return s.Remaining.Cents < 0
}

// Percent returns the spent share of the limit, capped at 100.
func (s BudgetStatus) Percent() int {
	return percent(s.Spent.Cents, s.Budget.Limit.Cents)
}

// Percent returns the progress towards the target, capped at 100.
func (g SavingsGoal) Percent() int {
	return percent(g.Current.Cents, g.Target.Cents)
}

func (g SavingsGoal) Reached() bool {
	return g.Target.Cents > 0 && g.Current.Cents >= g.Target.Cents
}

func percent(part, whole int64) int {
	if whole <= 0 {
		if part > 0 {
			return 100
		}
		return 0
	}
	p := int((part*100 + whole/2) / whole)
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}

func validDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// TransactionInput is the raw form model for creating or replacing a transaction.
type TransactionInput struct {
	Type        string
	Category    string
	Amount      string
	Date        string
	Description string
}

// TransactionCommand is a validated TransactionInput.
type TransactionCommand struct {
	Type        TransactionType
	Category    string
	Amount      Money
	Date        string
	Description string
}

func (in TransactionInput) Validate() (TransactionCommand, error) {
	typ := TransactionType(strings.ToLower(strings.TrimSpace(in.Type)))
	if !typ.Valid() {
		return TransactionCommand{}, invalid("type", "must be income or expense")
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return TransactionCommand{}, invalid("category", "required")
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return TransactionCommand{}, invalid("amount", err.Error())
	}
	date := strings.TrimSpace(in.Date)
	if date == "" {
		return TransactionCommand{}, invalid("date", "required")
	}
	if !validDate(date) {
		return TransactionCommand{}, invalid("date", "must be YYYY-MM-DD")
	}
	desc := strings.TrimSpace(in.Description)
	return TransactionCommand{
		Type:        typ,
		Category:    category,
		Amount:      amount,
		Date:        date,
		Description: desc,
	}, nil
}

// BudgetInput is the raw form model for a budget.
type BudgetInput struct {
	Category string
	Limit    string
}

type BudgetCommand struct {
	Category string
	Limit    Money
}

func (in BudgetInput) Validate() (BudgetCommand, error) {
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return BudgetCommand{}, invalid("category", "required")
	}
	limit, err := ParseAmount(in.Limit)
	if err != nil {
		return BudgetCommand{}, invalid("budget_limit", err.Error())
	}
	return BudgetCommand{Category: category, Limit: limit}, nil
}

// SavingsGoalInput is the raw form model for a savings goal.
type SavingsGoalInput struct {
	Name    string
	Target  string
	Current string
	DueDate string
}

type SavingsGoalCommand struct {
	Name    string
	Target  Money
	Current Money
	DueDate string
}

func (in SavingsGoalInput) Validate() (SavingsGoalCommand, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return SavingsGoalCommand{}, invalid("goal_name", "required")
	}
	target, err := ParseAmount(in.Target)
	if err != nil {
		return SavingsGoalCommand{}, invalid("target_amount", err.Error())
	}
	var current Money
	if strings.TrimSpace(in.Current) != "" {
		current, err = ParseAmount(in.Current)
		if err != nil {
			return SavingsGoalCommand{}, invalid("current_savings", err.Error())
		}
	}
	due := strings.TrimSpace(in.DueDate)
	if due != "" && !validDate(due) {
		return SavingsGoalCommand{}, invalid("due_date", "must be YYYY-MM-DD")
	}
	return SavingsGoalCommand{Name: name, Target: target, Current: current, DueDate: due}, nil
}
