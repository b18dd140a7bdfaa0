// Package export mirrors ledger activity to external destinations: a
// Google Sheets spreadsheet when credentials are configured, or a local
// JSONL audit file otherwise.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"piggy/internal/core"
)

// TransactionMirror receives one row per ledger transaction.
type TransactionMirror interface {
	AppendTransaction(ctx context.Context, t core.Transaction) error
	Close() error
}

// SheetsMirror appends transaction rows to a Google Sheets spreadsheet.
type SheetsMirror struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ TransactionMirror = (*SheetsMirror)(nil)

// NewSheetsFromEnv creates a Sheets mirror using environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials via
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS. Optional: GOOGLE_SHEET_NAME (default
// "Ledger").
func NewSheetsFromEnv(ctx context.Context) (*SheetsMirror, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Ledger"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsMirror{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// AppendTransaction appends one row: date, kind, category, description,
// amount in display units.
func (m *SheetsMirror) AppendTransaction(ctx context.Context, t core.Transaction) error {
	if m.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row := []any{
		t.Date.Format(time.RFC3339),
		string(t.Kind),
		t.Category,
		t.Description,
		t.Amount.Units(),
	}
	rng := fmt.Sprintf("%s!A:E", m.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{row}}

	_, err := m.svc.Spreadsheets.Values.Append(m.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", m.sheetName, err)
	}
	return nil
}

func (m *SheetsMirror) Close() error { return nil }
