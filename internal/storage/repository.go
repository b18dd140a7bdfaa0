package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"piggy/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements store.Store on a local SQLite database.
// The store contract is whole-collection replace on every save, so each
// save runs DELETE + INSERTs inside one transaction.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadTransactions implements store.Store. Rows come back in insertion
// order (position column), which preserves the most-recent-first ledger.
func (r *SQLiteRepository) LoadTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount_cents, category, description, created_at, kind
		 FROM transactions ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t       core.Transaction
			kind    string
			created string
		)
		if err := rows.Scan(&t.ID, &t.Amount.Cents, &t.Category, &t.Description, &created, &kind); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Kind = core.Kind(kind)
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			t.Date = ts
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// SaveTransactions implements store.Store.
func (r *SQLiteRepository) SaveTransactions(ctx context.Context, transactions []core.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save transactions: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	for i, t := range transactions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (id, position, amount_cents, category, description, created_at, kind)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, i, t.Amount.Cents, t.Category, t.Description,
			t.Date.UTC().Format(time.RFC3339Nano), string(t.Kind))
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transactions: %w", err)
	}

	slog.DebugContext(ctx, "Transactions saved to SQLite", "count", len(transactions))
	return nil
}

// LoadGoals implements store.Store.
func (r *SQLiteRepository) LoadGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, target_cents, current_cents, deadline, icon
		 FROM goals ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		var (
			g        core.Goal
			deadline sql.NullString
			icon     sql.NullString
		)
		if err := rows.Scan(&g.ID, &g.Name, &g.Target.Cents, &g.Current.Cents, &deadline, &icon); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if deadline.Valid && deadline.String != "" {
			if ts, err := time.Parse(time.RFC3339Nano, deadline.String); err == nil {
				g.Deadline = ts
			}
		}
		g.Icon = icon.String
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return out, nil
}

// SaveGoals implements store.Store.
func (r *SQLiteRepository) SaveGoals(ctx context.Context, goals []core.Goal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save goals: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM goals`); err != nil {
		return fmt.Errorf("clear goals: %w", err)
	}
	for i, g := range goals {
		deadline := ""
		if !g.Deadline.IsZero() {
			deadline = g.Deadline.UTC().Format(time.RFC3339Nano)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO goals (id, position, name, target_cents, current_cents, deadline, icon)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			g.ID, i, g.Name, g.Target.Cents, g.Current.Cents, deadline, g.Icon)
		if err != nil {
			return fmt.Errorf("insert goal %s: %w", g.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit goals: %w", err)
	}

	slog.DebugContext(ctx, "Goals saved to SQLite", "count", len(goals))
	return nil
}
