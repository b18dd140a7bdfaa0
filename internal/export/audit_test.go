package export

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"piggy/internal/core"
)

func TestAuditLogAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.jsonl")
	log, err := NewAuditLog(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	txs := []core.Transaction{
		{ID: "t1", Amount: core.Money{Cents: 100000}, Category: "薪水", Description: "月薪", Date: time.Now(), Kind: core.Income},
		{ID: "t2", Amount: core.Money{Cents: 20000}, Category: "飲食", Description: "午餐", Date: time.Now(), Kind: core.Expense},
	}
	for _, tx := range txs {
		if err := log.AppendTransaction(context.Background(), tx); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := log.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()

	var records []auditRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec auditRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("bad line %q: %v", scanner.Text(), err)
		}
		records = append(records, rec)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ID != "t1" || records[0].AmountCents != 100000 || records[0].Kind != "INCOME" {
		t.Fatalf("first record = %+v", records[0])
	}
	if records[1].Category != "飲食" {
		t.Fatalf("second record = %+v", records[1])
	}
}

func TestAuditLogAppendsAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	for i := 0; i < 2; i++ {
		log, err := NewAuditLog(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		tx := core.Transaction{ID: "t", Amount: core.Money{Cents: 100}, Category: "雜項", Description: "x", Date: time.Now(), Kind: core.Expense}
		if err := log.AppendTransaction(context.Background(), tx); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		_ = log.Close()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 2 {
		t.Fatalf("got %d lines, want 2", lines)
	}
}
