package services

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

type SavingsService struct {
	store *storage.Store
}

func NewSavingsService(store *storage.Store) *SavingsService {
	return &SavingsService{store: store}
}

func (s *SavingsService) Create(ctx context.Context, cmd core.SavingsGoalCommand) (core.SavingsGoal, error) {
	var g core.SavingsGoal
	err := s.store.WithConn(ctx, func(q *storage.Queries) error {
		var err error
		g, err = q.CreateSavingsGoal(ctx, storage.SavingsGoalParams{
			Name:         cmd.Name,
			TargetCents:  cmd.Target.Cents,
			CurrentCents: cmd.Current.Cents,
			DueDate:      cmd.DueDate,
		})
		return err
	})
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("create savings goal: %w", err)
	}
	log.FromContext(ctx).WithComponent(log.ComponentSavings).InfoContext(ctx, "Savings goal created",
		log.FieldGoalID, g.ID,
		log.FieldAmountCents, g.Target.Cents,
		log.FieldOperation, log.OpCreate)
	return g, nil
}

func (s *SavingsService) ListAll(ctx context.Context) ([]core.SavingsGoal, error) {
	var items []core.SavingsGoal
	err := s.store.WithConn(ctx, func(q *storage.Queries) error {
		var err error
		items, err = q.ListSavingsGoals(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	return items, nil
}

// Contribute adds amount to the goal's current savings.
func (s *SavingsService) Contribute(ctx context.Context, id int64, amount core.Money) (core.SavingsGoal, error) {
	var g core.SavingsGoal
	err := s.store.WithConn(ctx, func(q *storage.Queries) error {
		var err error
		g, err = q.AddSavingsContribution(ctx, id, amount.Cents)
		return err
	})
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("contribute to goal %d: %w", id, err)
	}
	log.FromContext(ctx).WithComponent(log.ComponentSavings).InfoContext(ctx, "Savings contribution recorded",
		log.FieldGoalID, id,
		log.FieldAmountCents, amount.Cents,
		"current_cents", g.Current.Cents,
		log.FieldOperation, log.OpContribute)
	return g, nil
}

func (s *SavingsService) Delete(ctx context.Context, id int64) error {
	var n int64
	err := s.store.WithConn(ctx, func(q *storage.Queries) error {
		var err error
		n, err = q.DeleteSavingsGoal(ctx, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete savings goal %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete savings goal %d: %w", id, core.ErrNotFound)
	}
	log.FromContext(ctx).WithComponent(log.ComponentSavings).InfoContext(ctx, "Savings goal deleted",
		log.FieldGoalID, id,
		log.FieldOperation, log.OpDelete)
	return nil
}
