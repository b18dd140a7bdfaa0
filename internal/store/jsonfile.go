package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"piggy/internal/core"
)

// JSONFile persists each collection as a single JSON document under a
// data directory (transactions.json, goals.json). It is the default
// backend: the whole list is rewritten on every save, mirroring the
// origin-scoped key-value layout described in the storage contract.
type JSONFile struct {
	mu  sync.Mutex
	dir string
}

func NewJSONFile(dir string) (*JSONFile, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &JSONFile{dir: dir}, nil
}

func (s *JSONFile) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

// LoadTransactions returns the stored ledger, or an empty list when the
// file is absent or unparseable. Corruption is logged, never raised.
func (s *JSONFile) LoadTransactions(ctx context.Context) ([]core.Transaction, error) {
	data, ok := s.read(ctx, TransactionsCollection)
	if !ok {
		return nil, nil
	}
	var out []core.Transaction
	if err := json.Unmarshal(data, &out); err != nil {
		slog.WarnContext(ctx, "Corrupt collection, starting empty",
			"collection", TransactionsCollection, "error", err)
		return nil, nil
	}
	return out, nil
}

func (s *JSONFile) SaveTransactions(ctx context.Context, transactions []core.Transaction) error {
	return s.save(ctx, TransactionsCollection, transactions)
}

func (s *JSONFile) LoadGoals(ctx context.Context) ([]core.Goal, error) {
	data, ok := s.read(ctx, GoalsCollection)
	if !ok {
		return nil, nil
	}
	var out []core.Goal
	if err := json.Unmarshal(data, &out); err != nil {
		slog.WarnContext(ctx, "Corrupt collection, starting empty",
			"collection", GoalsCollection, "error", err)
		return nil, nil
	}
	return out, nil
}

func (s *JSONFile) SaveGoals(ctx context.Context, goals []core.Goal) error {
	return s.save(ctx, GoalsCollection, goals)
}

func (s *JSONFile) read(ctx context.Context, collection string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(collection))
	if err != nil {
		if !os.IsNotExist(err) {
			slog.WarnContext(ctx, "Failed reading collection, starting empty",
				"collection", collection, "error", err)
		}
		return nil, false
	}
	return data, true
}

func (s *JSONFile) save(ctx context.Context, collection string, records any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", collection, err)
	}
	if err := os.WriteFile(s.path(collection), data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", collection, err)
	}
	slog.DebugContext(ctx, "Collection saved", "collection", collection, "bytes", len(data))
	return nil
}

func (s *JSONFile) Close() error { return nil }
