// Package ledger owns the in-memory application state: the transaction
// list and the goal list. All mutations go through the Service, which
// applies a pure core operation under lock, persists the changed
// collection, and only then reports success. Reads never touch storage.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"piggy/internal/core"
	"piggy/internal/events"
	applog "piggy/internal/log"
	"piggy/internal/store"
)

// EventSink receives a message after each successful mutation. Publishing
// is best effort: failures are logged and never fail the mutation.
type EventSink interface {
	Publish(ctx context.Context, e *events.LedgerEvent) error
}

type Service struct {
	mu     sync.RWMutex
	store  store.Store
	events EventSink
	logger *applog.Logger

	transactions []core.Transaction
	goals        []core.Goal
}

type Option func(*Service)

// WithEvents attaches an event sink for ledger mutations.
func WithEvents(sink EventSink) Option {
	return func(s *Service) { s.events = sink }
}

// WithLogger overrides the default component logger.
func WithLogger(l *applog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New loads both collections once and becomes their single owner for the
// life of the process. Corrupt or absent stored data comes back from the
// store as an empty list, so startup only fails on real storage errors.
func New(ctx context.Context, st store.Store, opts ...Option) (*Service, error) {
	s := &Service{
		store:  st,
		logger: applog.New(applog.Config{Component: "ledger"}),
	}
	for _, opt := range opts {
		opt(s)
	}

	transactions, err := st.LoadTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	goals, err := st.LoadGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("load goals: %w", err)
	}

	s.transactions = transactions
	s.goals = goals
	s.logger.InfoContext(ctx, "Ledger loaded",
		"transactions", len(transactions), "goals", len(goals))
	return s, nil
}

// Snapshot returns copies of both collections, safe to hold across
// later mutations.
func (s *Service) Snapshot() ([]core.Transaction, []core.Goal) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txs := make([]core.Transaction, len(s.transactions))
	copy(txs, s.transactions)
	goals := make([]core.Goal, len(s.goals))
	copy(goals, s.goals)
	return txs, goals
}

// Summary recomputes the financial summary from the full ledger.
func (s *Service) Summary() core.FinancialSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.ComputeSummary(s.transactions)
}

// Latest returns the most recent transaction, if any.
func (s *Service) Latest() (core.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.transactions) == 0 {
		return core.Transaction{}, false
	}
	return s.transactions[0], true
}

// AddTransaction validates and records a new ledger entry. The caller
// supplies identifier and timestamp; the entry ends up first in the list.
func (s *Service) AddTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := core.AddTransaction(s.transactions, t)
	if err := s.store.SaveTransactions(ctx, next); err != nil {
		return fmt.Errorf("persist transactions: %w", err)
	}
	s.transactions = next

	s.logger.InfoContext(ctx, "Transaction recorded",
		"id", t.ID, "kind", string(t.Kind), "amount_cents", t.Amount.Cents, "category", t.Category)
	s.emit(ctx, events.NewTransactionCreated(t))
	return nil
}

// DeleteTransaction removes the entry with the given ID. Absent IDs are
// a no-op and nothing is rewritten.
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := core.DeleteTransaction(s.transactions, id)
	if len(next) == len(s.transactions) {
		return nil
	}
	if err := s.store.SaveTransactions(ctx, next); err != nil {
		return fmt.Errorf("persist transactions: %w", err)
	}
	s.transactions = next

	s.logger.InfoContext(ctx, "Transaction deleted", "id", id)
	s.emit(ctx, events.NewTransactionDeleted(id))
	return nil
}

// AddGoal validates and appends a new savings goal. Its funded amount
// always starts at zero, whatever the caller passed.
func (s *Service) AddGoal(ctx context.Context, g core.Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := core.AddGoal(s.goals, g)
	if err := s.store.SaveGoals(ctx, next); err != nil {
		return fmt.Errorf("persist goals: %w", err)
	}
	s.goals = next

	s.logger.InfoContext(ctx, "Goal added", "id", g.ID, "name", g.Name, "target_cents", g.Target.Cents)
	return nil
}

// DeleteGoal removes the goal with the given ID. No-op if absent.
func (s *Service) DeleteGoal(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := core.DeleteGoal(s.goals, id)
	if len(next) == len(s.goals) {
		return nil
	}
	if err := s.store.SaveGoals(ctx, next); err != nil {
		return fmt.Errorf("persist goals: %w", err)
	}
	s.goals = next

	s.logger.InfoContext(ctx, "Goal deleted", "id", id)
	return nil
}

// ErrGoalNotFound is returned by Deposit for an unknown goal ID.
var ErrGoalNotFound = fmt.Errorf("goal not found")

// Deposit moves money into a goal. On success the goal's funded amount
// grows by exactly amount and a synthesized expense transaction lands in
// the ledger under the savings category, so the balance reflects the
// deposit. Both collections are persisted; the goals write happens first
// and a failed transaction write leaves the deposit recorded without its
// ledger entry, mirroring the last-write-wins storage model.
func (s *Service) Deposit(ctx context.Context, goalID string, amount core.Money) error {
	if err := amount.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextGoals, found := core.DepositToGoal(s.goals, goalID, amount)
	if !found {
		return ErrGoalNotFound
	}
	goal, _ := core.FindGoal(nextGoals, goalID)

	deposit := core.NewDepositTransaction(uuid.NewString(), goal, amount, time.Now())
	nextTxs := core.AddTransaction(s.transactions, deposit)

	if err := s.store.SaveGoals(ctx, nextGoals); err != nil {
		return fmt.Errorf("persist goals: %w", err)
	}
	s.goals = nextGoals
	if err := s.store.SaveTransactions(ctx, nextTxs); err != nil {
		return fmt.Errorf("persist transactions: %w", err)
	}
	s.transactions = nextTxs

	s.logger.InfoContext(ctx, "Goal deposit recorded",
		"goal", goal.Name, "amount_cents", amount.Cents, "current_cents", goal.Current.Cents)
	s.emit(ctx, events.NewGoalDeposited(goal, amount))
	s.emit(ctx, events.NewTransactionCreated(deposit))
	return nil
}

func (s *Service) emit(ctx context.Context, e *events.LedgerEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event", "type", e.Type, "error", err)
	}
}
