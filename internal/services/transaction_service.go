package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// EventPublisher delivers transaction change events. *amqp.Client implements it.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error
}

// TransactionService orchestrates transaction operations across SQLite and AMQP.
type TransactionService struct {
	store  *storage.Store
	events EventPublisher
}

// NewTransactionService wires the store and an optional publisher (nil disables events).
func NewTransactionService(store *storage.Store, events EventPublisher) *TransactionService {
	return &TransactionService{store: store, events: events}
}

func (s *TransactionService) ListAll(ctx context.Context) ([]core.Transaction, error) {
	var items []core.Transaction
	err := s.store.WithConn(ctx, func(q *storage.Queries) error {
		var err error
		items, err = q.ListTransactions(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return items, nil
}

// Each streams all transactions in listing order.
func (s *TransactionService) Each(ctx context.Context, fn func(core.Transaction) error) error {
	return s.store.WithConn(ctx, func(q *storage.Queries) error {
		return q.EachTransaction(ctx, fn)
	})
}

func (s *TransactionService) Create(ctx context.Context, cmd core.TransactionCommand) (core.Transaction, error) {
	var t core.Transaction
	err := s.store.WithConn(ctx, func(q *storage.Queries) error {
		var err error
		t, err = q.CreateTransaction(ctx, toParams(cmd))
		return err
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	txLogger(ctx).InfoContext(ctx, "Transaction created", transactionFields(t, log.OpCreate)...)
	s.publish(ctx, amqp.TransactionCreated, t)
	return t, nil
}

// GetByID returns core.ErrNotFound when the id does not exist.
func (s *TransactionService) GetByID(ctx context.Context, id int64) (core.Transaction, error) {
	var t core.Transaction
	err := s.store.WithConn(ctx, func(q *storage.Queries) error {
		var err error
		t, err = q.GetTransaction(ctx, id)
		return err
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

// Update replaces all five fields. Zero affected rows yields core.ErrNotFound.
func (s *TransactionService) Update(ctx context.Context, id int64, cmd core.TransactionCommand) (core.Transaction, error) {
	var n int64
	err := s.store.WithConn(ctx, func(q *storage.Queries) error {
		var err error
		n, err = q.UpdateTransaction(ctx, id, toParams(cmd))
		return err
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}
	if n == 0 {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, core.ErrNotFound)
	}

	t := core.Transaction{
		ID:          id,
		Type:        cmd.Type,
		Category:    cmd.Category,
		Amount:      cmd.Amount,
		Date:        cmd.Date,
		Description: cmd.Description,
	}
	txLogger(ctx).InfoContext(ctx, "Transaction updated", transactionFields(t, log.OpUpdate)...)
	s.publish(ctx, amqp.TransactionUpdated, t)
	return t, nil
}

// Delete removes the row. Zero affected rows yields core.ErrNotFound.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	var n int64
	err := s.store.WithConn(ctx, func(q *storage.Queries) error {
		var err error
		n, err = q.DeleteTransaction(ctx, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete transaction %d: %w", id, core.ErrNotFound)
	}

	txLogger(ctx).InfoContext(ctx, "Transaction deleted",
		log.FieldTransactionID, id,
		log.FieldOperation, log.OpDelete)
	s.publish(ctx, amqp.TransactionDeleted, core.Transaction{ID: id})
	return nil
}

// ComputeBalance sums both types concurrently; missing rows count as zero.
func (s *TransactionService) ComputeBalance(ctx context.Context) (core.Balance, error) {
	var income, expense int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.store.WithConn(gctx, func(q *storage.Queries) error {
			var err error
			income, err = q.SumByType(gctx, core.Income)
			return err
		})
	})
	g.Go(func() error {
		return s.store.WithConn(gctx, func(q *storage.Queries) error {
			var err error
			expense, err = q.SumByType(gctx, core.Expense)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return core.Balance{}, fmt.Errorf("compute balance: %w", err)
	}
	return core.NewBalance(core.Money{Cents: income}, core.Money{Cents: expense}), nil
}

func (s *TransactionService) publish(ctx context.Context, typ amqp.EventType, t core.Transaction) {
	if s.events == nil {
		txLogger(ctx).DebugContext(ctx, "AMQP publisher not configured, skipping event", "event", typ)
		return
	}
	if err := s.events.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(typ, t)); err != nil {
		// The row is already committed; the event is best effort.
		txLogger(ctx).WithComponent(log.ComponentAMQP).ErrorContext(ctx, "Failed to publish transaction event",
			"event", typ,
			log.FieldTransactionID, t.ID,
			log.FieldOperation, log.OpPublish,
			log.FieldError, err)
	}
}

func toParams(cmd core.TransactionCommand) storage.TransactionParams {
	return storage.TransactionParams{
		Type:        cmd.Type,
		Category:    cmd.Category,
		AmountCents: cmd.Amount.Cents,
		Date:        cmd.Date,
		Description: cmd.Description,
	}
}

func transactionFields(t core.Transaction, op string) []any {
	return log.NewFields().
		WithTransaction(t.ID, string(t.Type), t.Category, t.Amount.Cents).
		WithOperation(op).
		ToSlice()
}

func txLogger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentTransaction)
}
