package store

import (
	"context"
	"sync"

	"piggy/internal/core"
)

// Memory keeps both collections in process memory only. Used as the
// zero-config backend and in tests.
type Memory struct {
	mu           sync.Mutex
	transactions []core.Transaction
	goals        []core.Goal
}

func NewMemory() *Memory {
	return &Memory{}
}

func (s *Memory) LoadTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.transactions...), nil
}

func (s *Memory) SaveTransactions(_ context.Context, transactions []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append([]core.Transaction(nil), transactions...)
	return nil
}

func (s *Memory) LoadGoals(_ context.Context) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Goal(nil), s.goals...), nil
}

func (s *Memory) SaveGoals(_ context.Context, goals []core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = append([]core.Goal(nil), goals...)
	return nil
}

func (s *Memory) Close() error { return nil }
