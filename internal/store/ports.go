// Package store defines the persistence port for the two ledger
// collections and provides the file-backed and in-memory implementations.
package store

import (
	"context"

	"piggy/internal/core"
)

// Collection names used as storage keys by every backend.
const (
	TransactionsCollection = "transactions"
	GoalsCollection        = "goals"
)

// Store reads and writes the two collections wholesale. Loads happen once
// at startup; every mutation saves the full list back, last write wins.
//
// Load implementations must never fail on absent or corrupt data: both
// degrade to an empty list (corruption is logged). Save errors are real
// and must be surfaced to the caller.
type Store interface {
	LoadTransactions(ctx context.Context) ([]core.Transaction, error)
	SaveTransactions(ctx context.Context, transactions []core.Transaction) error

	LoadGoals(ctx context.Context) ([]core.Goal, error)
	SaveGoals(ctx context.Context, goals []core.Goal) error

	Close() error
}
