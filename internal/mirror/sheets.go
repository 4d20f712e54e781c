// Package mirror appends record changes to a backup Google Sheets
// spreadsheet. SQLite stays the system of record; the sheet is an
// append-only audit trail a user can read without the application.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
)

type SheetsMirror struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewFromEnv creates a mirror from environment variables.
// Required: GOOGLE_SPREADSHEET_ID. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS; without any of those, application
// default credentials are used.
func NewFromEnv(ctx context.Context) (*SheetsMirror, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Changes"
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

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	var opts []goption.ClientOption

	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		opts = append(opts, goption.WithCredentialsJSON([]byte(serviceAccountJSON)))
	case serviceAccountFile != "":
		opts = append(opts, goption.WithCredentialsFile(serviceAccountFile))
	}
	opts = append(opts, goption.WithScopes(gsheet.SpreadsheetsScope))

	return gsheet.NewService(ctx, opts...)
}

// AppendEMI appends one row describing an EMI change.
func (m *SheetsMirror) AppendEMI(ctx context.Context, op string, userID string, e core.EMI) error {
	row := []any{
		time.Now().Format(time.RFC3339), userID, "emi", op, e.ID,
		e.Name, centsToDecimal(e.EMIAmount.Cents), centsToDecimal(e.LoanAmount.Cents),
		e.DueDay, e.StartDate.Format("2006-01-02"), e.Duration, string(e.Category),
	}
	return m.appendRow(ctx, row)
}

// AppendTransaction appends one row describing a transaction change.
func (m *SheetsMirror) AppendTransaction(ctx context.Context, op string, userID string, t core.Transaction) error {
	row := []any{
		time.Now().Format(time.RFC3339), userID, "transaction", op, t.ID,
		t.Description, centsToDecimal(t.Amount.Cents), string(t.Type),
		t.Category, t.Date.Format("2006-01-02"), t.IsRecurring,
	}
	return m.appendRow(ctx, row)
}

// AppendTombstone marks a deletion where the record body is gone.
func (m *SheetsMirror) AppendTombstone(ctx context.Context, entity, id, userID string) error {
	row := []any{time.Now().Format(time.RFC3339), userID, entity, "deleted", id}
	return m.appendRow(ctx, row)
}

func (m *SheetsMirror) appendRow(ctx context.Context, row []any) error {
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err := m.svc.Spreadsheets.Values.
		Append(m.spreadsheetID, m.sheetName+"!A1", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append row to %s: %w", m.sheetName, err)
	}

	slog.InfoContext(ctx, "Row appended to mirror sheet", "sheet", m.sheetName)
	return nil
}

func centsToDecimal(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "." + fmt.Sprintf("%02d", cents%100)
	if neg {
		return "-" + s
	}
	return s
}
