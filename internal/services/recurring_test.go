package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type fakeRecurringStore struct {
	templates []storage.RecurringTemplate
	created   []core.Transaction
	marked    map[string]string
	createErr error
}

func (f *fakeRecurringStore) ListRecurringTemplates(ctx context.Context) ([]storage.RecurringTemplate, error) {
	return f.templates, nil
}

func (f *fakeRecurringStore) CreateTransaction(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	if f.createErr != nil {
		return core.Transaction{}, f.createErr
	}
	t.ID = "generated"
	f.created = append(f.created, t)
	return t, nil
}

func (f *fakeRecurringStore) MarkMaterialized(ctx context.Context, templateID, month string) error {
	if f.marked == nil {
		f.marked = make(map[string]string)
	}
	f.marked[templateID] = month
	return nil
}

func template(id string, date core.Date, lastMaterialized string) storage.RecurringTemplate {
	return storage.RecurringTemplate{
		UserID: "user-1",
		Transaction: core.Transaction{
			ID:          id,
			Amount:      core.Money{Cents: 150000},
			Type:        core.Expense,
			Category:    "Rent",
			Description: "Monthly rent",
			Date:        date,
			IsRecurring: true,
		},
		LastMaterialized: lastMaterialized,
	}
}

func TestProcessDueMaterializesTemplate(t *testing.T) {
	store := &fakeRecurringStore{
		templates: []storage.RecurringTemplate{
			template("tpl-1", core.NewDate(2026, 1, 5), ""),
		},
	}
	p := NewRecurringProcessor(store)

	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	count, err := p.ProcessDue(context.Background(), now)
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 processed, got %d", count)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected 1 created transaction, got %d", len(store.created))
	}

	created := store.created[0]
	if created.Date.Year() != 2026 || created.Date.Month() != 3 || created.Date.Day() != 5 {
		t.Errorf("expected date 2026-03-05, got %s", created.Date.Format("2006-01-02"))
	}
	if created.IsRecurring {
		t.Error("materialized transaction must not itself be recurring")
	}
	if store.marked["tpl-1"] != "2026-03" {
		t.Errorf("expected template marked for 2026-03, got %q", store.marked["tpl-1"])
	}
}

func TestProcessDueSkipsBeforeDay(t *testing.T) {
	store := &fakeRecurringStore{
		templates: []storage.RecurringTemplate{
			template("tpl-1", core.NewDate(2026, 1, 20), ""),
		},
	}
	p := NewRecurringProcessor(store)

	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	count, err := p.ProcessDue(context.Background(), now)
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 processed before the template's day, got %d", count)
	}
}

func TestProcessDueSkipsAlreadyMaterialized(t *testing.T) {
	store := &fakeRecurringStore{
		templates: []storage.RecurringTemplate{
			template("tpl-1", core.NewDate(2026, 1, 5), "2026-03"),
		},
	}
	p := NewRecurringProcessor(store)

	now := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	count, err := p.ProcessDue(context.Background(), now)
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 processed for already-materialized month, got %d", count)
	}
}

func TestProcessDueSkipsTemplateOwnMonth(t *testing.T) {
	store := &fakeRecurringStore{
		templates: []storage.RecurringTemplate{
			template("tpl-1", core.NewDate(2026, 3, 5), ""),
		},
	}
	p := NewRecurringProcessor(store)

	now := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	count, err := p.ProcessDue(context.Background(), now)
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("the template's starting month already has the original transaction, got %d", count)
	}
}

func TestProcessDueClampsShortMonth(t *testing.T) {
	store := &fakeRecurringStore{
		templates: []storage.RecurringTemplate{
			template("tpl-1", core.NewDate(2026, 1, 31), ""),
		},
	}
	p := NewRecurringProcessor(store)

	now := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	count, err := p.ProcessDue(context.Background(), now)
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("expected clamped template to be due on Feb 28, got %d processed", count)
	}
	if got := store.created[0].Date.Day(); got != 28 {
		t.Errorf("expected materialization day 28, got %d", got)
	}
}

func TestProcessDueSkipsFailingTemplate(t *testing.T) {
	store := &fakeRecurringStore{
		templates: []storage.RecurringTemplate{
			template("tpl-1", core.NewDate(2026, 1, 5), ""),
		},
		createErr: errors.New("db down"),
	}
	p := NewRecurringProcessor(store)

	count, err := p.ProcessDue(context.Background(), time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 processed when creation fails, got %d", count)
	}
	if len(store.marked) != 0 {
		t.Error("failed template must not be marked materialized")
	}
}
