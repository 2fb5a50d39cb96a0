package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// BudgetService manages per-category spending limits. Repeated categories are
// kept as separate rows.
type BudgetService struct {
	store *storage.Store
}

func NewBudgetService(store *storage.Store) *BudgetService {
	return &BudgetService{store: store}
}

func (s *BudgetService) Create(ctx context.Context, cmd core.BudgetCommand) (core.Budget, error) {
	var b core.Budget
	err := s.store.WithConn(ctx, func(q *storage.Queries) error {
		var err error
		b, err = q.CreateBudget(ctx, cmd.Category, cmd.Limit.Cents)
		return err
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	log.FromContext(ctx).WithComponent(log.ComponentBudget).InfoContext(ctx, "Budget created",
		log.FieldBudgetID, b.ID,
		log.FieldCategory, b.Category,
		log.FieldAmountCents, b.Limit.Cents,
		log.FieldOperation, log.OpCreate)
	return b, nil
}

func (s *BudgetService) ListAll(ctx context.Context) ([]core.Budget, error) {
	var items []core.Budget
	err := s.store.WithConn(ctx, func(q *storage.Queries) error {
		var err error
		items, err = q.ListBudgets(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return items, nil
}

// Statuses joins every budget with the expense total of its category.
func (s *BudgetService) Statuses(ctx context.Context) ([]core.BudgetStatus, error) {
	var (
		budgets []core.Budget
		spent   map[string]int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		budgets, err = s.ListAll(gctx)
		return err
	})
	g.Go(func() error {
		return s.store.WithConn(gctx, func(q *storage.Queries) error {
			var err error
			spent, err = q.SumExpensesByCategory(gctx)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("budget statuses: %w", err)
	}

	statuses := make([]core.BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		statuses = append(statuses, core.NewBudgetStatus(b, core.Money{Cents: spent[b.Category]}))
	}
	return statuses, nil
}

// UpdateLimit returns core.ErrNotFound when the id does not exist.
func (s *BudgetService) UpdateLimit(ctx context.Context, id int64, limit core.Money) error {
	var n int64
	err := s.store.WithConn(ctx, func(q *storage.Queries) error {
		var err error
		n, err = q.UpdateBudgetLimit(ctx, id, limit.Cents)
		return err
	})
	if err != nil {
		return fmt.Errorf("update budget %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update budget %d: %w", id, core.ErrNotFound)
	}
	log.FromContext(ctx).WithComponent(log.ComponentBudget).InfoContext(ctx, "Budget limit updated",
		log.FieldBudgetID, id,
		log.FieldAmountCents, limit.Cents,
		log.FieldOperation, log.OpUpdate)
	return nil
}

func (s *BudgetService) Delete(ctx context.Context, id int64) error {
	var n int64
	err := s.store.WithConn(ctx, func(q *storage.Queries) error {
		var err error
		n, err = q.DeleteBudget(ctx, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete budget %d: %w", id, core.ErrNotFound)
	}
	log.FromContext(ctx).WithComponent(log.ComponentBudget).InfoContext(ctx, "Budget deleted",
		log.FieldBudgetID, id,
		log.FieldOperation, log.OpDelete)
	return nil
}
