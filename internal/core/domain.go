package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  Kind = "INCOME"
	Expense Kind = "EXPENSE"
)

// SavingsCategory is the fixed category under which goal deposits are
// recorded in the transaction ledger.
const SavingsCategory = "儲蓄"

type (
	// Kind distinguishes money coming in from money going out.
	Kind string

	Money struct {
		Cents int64
	}

	// Transaction is a single recorded money movement. Immutable once
	// created; it is only ever removed from the ledger, never edited.
	Transaction struct {
		ID          string    `json:"id"`
		Amount      Money     `json:"amount"`
		Category    string    `json:"category"`
		Description string    `json:"description"`
		Date        time.Time `json:"date"`
		Kind        Kind      `json:"kind"`
	}

	// Goal is a savings target with a running funded amount. Current only
	// grows, via deposits; it is never decreased and never clamped at
	// Target (display code caps the percentage, the stored value is free
	// to exceed 100%).
	Goal struct {
		ID       string    `json:"id"`
		Name     string    `json:"name"`
		Target   Money     `json:"target"`
		Current  Money     `json:"current"`
		Deadline time.Time `json:"deadline"`
		Icon     string    `json:"icon,omitempty"`
	}

	// FinancialSummary is derived from the full transaction list on every
	// read; it is never stored.
	FinancialSummary struct {
		TotalIncome  Money
		TotalExpense Money
		Balance      Money
	}
)

// Category taxonomies offered by the transaction form. Advisory only:
// a transaction carries whatever label it was created with.
var (
	ExpenseCategories = []string{"飲食", "交通", "購物", "娛樂", "居住", "雜項"}
	IncomeCategories  = []string{"薪水", "獎金", "投資", "零用錢", "其他"}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrEmptyID          = errors.New("empty identifier")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyName        = errors.New("empty goal name")
)

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	}
	return ErrInvalidKind
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if t.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	return t.Kind.Validate()
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.ID) == "" {
		return ErrEmptyID
	}
	if len(strings.TrimSpace(g.Name)) == 0 {
		return ErrEmptyName
	}
	if len(g.Name) > 100 {
		return errors.New("goal name too long (max 100 characters)")
	}
	if err := g.Target.Validate(); err != nil {
		return err
	}
	if g.Current.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Percent returns the funding progress as a rounded percentage, uncapped.
func (g Goal) Percent() int {
	if g.Target.Cents <= 0 {
		return 0
	}
	return int((g.Current.Cents*100 + g.Target.Cents/2) / g.Target.Cents)
}

// DisplayPercent caps Percent at 100 for progress bars.
func (g Goal) DisplayPercent() int {
	if p := g.Percent(); p < 100 {
		return p
	}
	return 100
}
