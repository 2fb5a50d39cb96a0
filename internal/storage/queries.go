package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

// DBTX is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the single-statement operations on the three tables.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const transactionColumns = `id, type, category, amount_cents, date, description`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t    core.Transaction
		typ  string
		desc sql.NullString
	)
	if err := row.Scan(&t.ID, &typ, &t.Category, &t.Amount.Cents, &t.Date, &desc); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	t.Description = desc.String
	return t, nil
}

type TransactionParams struct {
	Type        core.TransactionType
	Category    string
	AmountCents int64
	Date        string
	Description string
}

const createTransaction = `INSERT INTO transactions (type, category, amount_cents, date, description)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

func (q *Queries) CreateTransaction(ctx context.Context, arg TransactionParams) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		string(arg.Type), arg.Category, arg.AmountCents, arg.Date, arg.Description)
	return scanTransaction(row)
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

// GetTransaction returns core.ErrNotFound when no row has the id.
func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, err
}

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions ORDER BY id`

func (q *Queries) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	var items []core.Transaction
	err := q.EachTransaction(ctx, func(t core.Transaction) error {
		items = append(items, t)
		return nil
	})
	return items, err
}

// EachTransaction streams all transactions in listing order without
// materialising the full set. Iteration stops at the first error from fn.
func (q *Queries) EachTransaction(ctx context.Context, fn func(core.Transaction) error) error {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	return rows.Err()
}

const updateTransaction = `UPDATE transactions
SET type = ?, category = ?, amount_cents = ?, date = ?, description = ?
WHERE id = ?`

// UpdateTransaction overwrites every field and reports the affected row count.
func (q *Queries) UpdateTransaction(ctx context.Context, id int64, arg TransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		string(arg.Type), arg.Category, arg.AmountCents, arg.Date, arg.Description, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const sumByType = `SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE type = ?`

// SumByType returns 0 when there are no rows of that type.
func (q *Queries) SumByType(ctx context.Context, typ core.TransactionType) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, sumByType, string(typ)).Scan(&total)
	return total, err
}

const sumExpensesByCategory = `SELECT category, COALESCE(SUM(amount_cents), 0)
FROM transactions
WHERE type = 'expense'
GROUP BY category`

func (q *Queries) SumExpensesByCategory(ctx context.Context) (map[string]int64, error) {
	rows, err := q.db.QueryContext(ctx, sumExpensesByCategory)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sums := make(map[string]int64)
	for rows.Next() {
		var (
			category string
			total    int64
		)
		if err := rows.Scan(&category, &total); err != nil {
			return nil, err
		}
		sums[category] = total
	}
	return sums, rows.Err()
}

const createBudget = `INSERT INTO budgets (category, budget_limit_cents) VALUES (?, ?)
RETURNING id, category, budget_limit_cents`

func (q *Queries) CreateBudget(ctx context.Context, category string, limitCents int64) (core.Budget, error) {
	var b core.Budget
	err := q.db.QueryRowContext(ctx, createBudget, category, limitCents).Scan(&b.ID, &b.Category, &b.Limit.Cents)
	return b, err
}

const listBudgets = `SELECT id, category, budget_limit_cents FROM budgets ORDER BY id`

func (q *Queries) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.Category, &b.Limit.Cents); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

const updateBudgetLimit = `UPDATE budgets SET budget_limit_cents = ? WHERE id = ?`

func (q *Queries) UpdateBudgetLimit(ctx context.Context, id, limitCents int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateBudgetLimit, limitCents, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteBudget = `DELETE FROM budgets WHERE id = ?`

func (q *Queries) DeleteBudget(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteBudget, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const savingsColumns = `id, goal_name, target_amount_cents, current_savings_cents, due_date`

func scanSavingsGoal(row rowScanner) (core.SavingsGoal, error) {
	var (
		g   core.SavingsGoal
		due sql.NullString
	)
	if err := row.Scan(&g.ID, &g.Name, &g.Target.Cents, &g.Current.Cents, &due); err != nil {
		return core.SavingsGoal{}, err
	}
	g.DueDate = due.String
	return g, nil
}

type SavingsGoalParams struct {
	Name         string
	TargetCents  int64
	CurrentCents int64
	DueDate      string
}

const createSavingsGoal = `INSERT INTO savings_goals (goal_name, target_amount_cents, current_savings_cents, due_date)
VALUES (?, ?, ?, ?)
RETURNING ` + savingsColumns

func (q *Queries) CreateSavingsGoal(ctx context.Context, arg SavingsGoalParams) (core.SavingsGoal, error) {
	due := sql.NullString{String: arg.DueDate, Valid: arg.DueDate != ""}
	row := q.db.QueryRowContext(ctx, createSavingsGoal, arg.Name, arg.TargetCents, arg.CurrentCents, due)
	return scanSavingsGoal(row)
}

const listSavingsGoals = `SELECT ` + savingsColumns + ` FROM savings_goals ORDER BY id`

func (q *Queries) ListSavingsGoals(ctx context.Context) ([]core.SavingsGoal, error) {
	rows, err := q.db.QueryContext(ctx, listSavingsGoals)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []core.SavingsGoal
	for rows.Next() {
		g, err := scanSavingsGoal(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, rows.Err()
}

const addSavingsContribution = `UPDATE savings_goals
SET current_savings_cents = current_savings_cents + ?
WHERE id = ?
RETURNING ` + savingsColumns

// AddSavingsContribution returns core.ErrNotFound when no goal has the id.
func (q *Queries) AddSavingsContribution(ctx context.Context, id, cents int64) (core.SavingsGoal, error) {
	g, err := scanSavingsGoal(q.db.QueryRowContext(ctx, addSavingsContribution, cents, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsGoal{}, core.ErrNotFound
	}
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("add contribution: %w", err)
	}
	return g, nil
}

const deleteSavingsGoal = `DELETE FROM savings_goals WHERE id = ?`

func (q *Queries) DeleteSavingsGoal(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteSavingsGoal, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
