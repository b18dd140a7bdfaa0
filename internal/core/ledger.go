package core

import "time"

// Pure ledger operations. Every function leaves its inputs untouched and
// returns a fresh slice, so callers can hold on to old snapshots safely.

// ComputeSummary partitions the ledger by kind and sums amounts in a
// single pass. Order of the input list does not affect the result.
func ComputeSummary(transactions []Transaction) FinancialSummary {
	var income, expense int64
	for _, t := range transactions {
		switch t.Kind {
		case Income:
			income += t.Amount.Cents
		case Expense:
			expense += t.Amount.Cents
		}
	}
	return FinancialSummary{
		TotalIncome:  Money{Cents: income},
		TotalExpense: Money{Cents: expense},
		Balance:      Money{Cents: income - expense},
	}
}

// AddTransaction prepends t so the ledger stays most-recent-first.
// The caller supplies the identifier and creation timestamp.
func AddTransaction(transactions []Transaction, t Transaction) []Transaction {
	out := make([]Transaction, 0, len(transactions)+1)
	out = append(out, t)
	return append(out, transactions...)
}

// DeleteTransaction removes the first transaction whose ID matches,
// preserving the order of everything else. No-op if absent.
func DeleteTransaction(transactions []Transaction, id string) []Transaction {
	for i, t := range transactions {
		if t.ID == id {
			out := make([]Transaction, 0, len(transactions)-1)
			out = append(out, transactions[:i]...)
			return append(out, transactions[i+1:]...)
		}
	}
	return transactions
}

// AddGoal appends g with its funded amount reset to zero regardless of
// what the caller passed in.
func AddGoal(goals []Goal, g Goal) []Goal {
	g.Current = Money{}
	out := make([]Goal, 0, len(goals)+1)
	out = append(out, goals...)
	return append(out, g)
}

// DeleteGoal removes the goal with the given ID. No-op if absent.
func DeleteGoal(goals []Goal, id string) []Goal {
	for i, g := range goals {
		if g.ID == id {
			out := make([]Goal, 0, len(goals)-1)
			out = append(out, goals[:i]...)
			return append(out, goals[i+1:]...)
		}
	}
	return goals
}

// DepositToGoal increases the funded amount of the matching goal by
// amount and reports whether the goal was found. The stored value is not
// clamped at the target; over-funding is representable on purpose.
func DepositToGoal(goals []Goal, id string, amount Money) ([]Goal, bool) {
	out := make([]Goal, len(goals))
	copy(out, goals)
	for i := range out {
		if out[i].ID == id {
			out[i].Current.Cents += amount.Cents
			return out, true
		}
	}
	return out, false
}

// FindGoal returns the goal with the given ID, if present.
func FindGoal(goals []Goal, id string) (Goal, bool) {
	for _, g := range goals {
		if g.ID == id {
			return g, true
		}
	}
	return Goal{}, false
}

// NewDepositTransaction synthesizes the expense ledger entry recording a
// successful deposit, so goal funding shows up in the transaction history
// and in the balance.
func NewDepositTransaction(id string, g Goal, amount Money, now time.Time) Transaction {
	return Transaction{
		ID:          id,
		Amount:      amount,
		Category:    SavingsCategory,
		Description: "存入: " + g.Name,
		Date:        now,
		Kind:        Expense,
	}
}
