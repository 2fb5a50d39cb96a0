package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fintrack/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "finances.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finances.db")
	for i := 0; i < 2; i++ {
		s, err := Open(context.Background(), path)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		if err := s.Ping(context.Background()); err != nil {
			t.Fatalf("ping #%d: %v", i, err)
		}
		s.Close()
	}
}

func TestTransactionQueries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithConn(ctx, func(q *Queries) error {
		a, err := q.CreateTransaction(ctx, TransactionParams{Type: core.Income, Category: "Salary", AmountCents: 100000, Date: "2024-01-01", Description: "Jan pay"})
		if err != nil {
			return err
		}
		b, err := q.CreateTransaction(ctx, TransactionParams{Type: core.Expense, Category: "Rent", AmountCents: 40000, Date: "2024-01-02"})
		if err != nil {
			return err
		}
		if b.ID <= a.ID {
			t.Fatalf("ids not increasing: %d then %d", a.ID, b.ID)
		}

		items, err := q.ListTransactions(ctx)
		if err != nil {
			return err
		}
		if len(items) != 2 || items[0].ID != a.ID || items[1].Category != "Rent" {
			t.Fatalf("unexpected list: %+v", items)
		}

		income, err := q.SumByType(ctx, core.Income)
		if err != nil {
			return err
		}
		expense, err := q.SumByType(ctx, core.Expense)
		if err != nil {
			return err
		}
		if income != 100000 || expense != 40000 {
			t.Fatalf("sums = %d/%d", income, expense)
		}

		n, err := q.UpdateTransaction(ctx, 9999, TransactionParams{Type: core.Expense, Category: "x", AmountCents: 1, Date: "2024-01-01"})
		if err != nil || n != 0 {
			t.Fatalf("update missing: n=%d err=%v", n, err)
		}

		n, err = q.DeleteTransaction(ctx, a.ID)
		if err != nil || n != 1 {
			t.Fatalf("delete: n=%d err=%v", n, err)
		}
		if _, err := q.GetTransaction(ctx, a.ID); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		// AUTOINCREMENT never reuses a deleted id
		c, err := q.CreateTransaction(ctx, TransactionParams{Type: core.Expense, Category: "Food", AmountCents: 500, Date: "2024-01-03"})
		if err != nil {
			return err
		}
		if c.ID <= b.ID {
			t.Fatalf("id %d reused or decreased after %d", c.ID, b.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("queries: %v", err)
	}
}

func TestSumByTypeEmpty(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	err := s.WithConn(ctx, func(q *Queries) error {
		total, err := q.SumByType(ctx, core.Income)
		if err != nil {
			return err
		}
		if total != 0 {
			t.Fatalf("expected 0 on empty table, got %d", total)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestWithConnPropagatesError(t *testing.T) {
	s := openTestStore(t)
	want := errors.New("boom")
	if err := s.WithConn(context.Background(), func(*Queries) error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	// connection must have been released: a second acquisition still works
	if err := s.WithConn(context.Background(), func(*Queries) error { return nil }); err != nil {
		t.Fatalf("second acquisition: %v", err)
	}
}

func TestSavingsGoalQueries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	err := s.WithConn(ctx, func(q *Queries) error {
		g, err := q.CreateSavingsGoal(ctx, SavingsGoalParams{Name: "Bike", TargetCents: 50000})
		if err != nil {
			return err
		}
		if g.DueDate != "" {
			t.Fatalf("expected empty due date, got %q", g.DueDate)
		}
		g, err = q.AddSavingsContribution(ctx, g.ID, 1250)
		if err != nil {
			return err
		}
		if g.Current.Cents != 1250 {
			t.Fatalf("current = %d", g.Current.Cents)
		}
		if _, err := q.AddSavingsContribution(ctx, 424242, 1); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
