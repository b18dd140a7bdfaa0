package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"piggy/internal/core"
)

// AuditLog appends transaction records to a local JSONL file. It is the
// mirror of last resort when no spreadsheet is configured.
type AuditLog struct {
	mu   sync.Mutex
	file *os.File
}

var _ TransactionMirror = (*AuditLog)(nil)

type auditRecord struct {
	RecordedAt  time.Time `json:"recordedAt"`
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	AmountCents int64     `json:"amountCents"`
	Date        time.Time `json:"date"`
}

// NewAuditLog opens (or creates) the JSONL file in append mode.
func NewAuditLog(path string) (*AuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &AuditLog{file: f}, nil
}

func (a *AuditLog) AppendTransaction(ctx context.Context, t core.Transaction) error {
	rec := auditRecord{
		RecordedAt:  time.Now().UTC(),
		ID:          t.ID,
		Kind:        string(t.Kind),
		Category:    t.Category,
		Description: t.Description,
		AmountCents: t.Amount.Cents,
		Date:        t.Date,
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	line = append(line, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.file.Write(line); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	return nil
}

func (a *AuditLog) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}
