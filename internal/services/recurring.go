// Package services holds business orchestration that sits outside the
// session store, currently the recurring transaction materializer.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const monthLayout = "2006-01"

// RecurringStore is what the processor needs from storage.
type RecurringStore interface {
	ListRecurringTemplates(ctx context.Context) ([]storage.RecurringTemplate, error)
	CreateTransaction(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error)
	MarkMaterialized(ctx context.Context, templateID, month string) error
}

// RecurringProcessor turns recurring transaction templates into concrete
// transactions, once per template per calendar month.
type RecurringProcessor struct {
	store RecurringStore
}

func NewRecurringProcessor(store RecurringStore) *RecurringProcessor {
	return &RecurringProcessor{store: store}
}

// ProcessDue materializes every template that is due at now and returns how
// many transactions were created. Individual template failures are logged
// and skipped so one bad template cannot starve the rest.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	templates, err := p.store.ListRecurringTemplates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring templates: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring transactions",
		"total_templates", len(templates),
		"processing_date", now.Format("2006-01-02"))

	processed := 0
	for _, tpl := range templates {
		if !isDue(tpl, now) {
			continue
		}

		txn := core.Transaction{
			Amount:      tpl.Transaction.Amount,
			Type:        tpl.Transaction.Type,
			Category:    tpl.Transaction.Category,
			Description: tpl.Transaction.Description,
			Date:        core.NewDate(now.Year(), int(now.Month()), materializationDay(tpl.Transaction.Date, now)),
		}

		created, err := p.store.CreateTransaction(ctx, tpl.UserID, txn)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to create transaction from template",
				"template_id", tpl.Transaction.ID,
				"error", err)
			continue
		}

		if err := p.store.MarkMaterialized(ctx, tpl.Transaction.ID, now.Format(monthLayout)); err != nil {
			// The transaction exists; a retry this month would duplicate it.
			slog.ErrorContext(ctx, "Failed to mark template materialized",
				"template_id", tpl.Transaction.ID,
				"error", err)
		}

		processed++
		slog.InfoContext(ctx, "Created transaction from recurring template",
			"template_id", tpl.Transaction.ID,
			"transaction_id", created.ID,
			"amount_cents", created.Amount.Cents)
	}

	return processed, nil
}

// isDue reports whether the template should materialize at now: not yet
// materialized this month, template already started, and the template's
// day of month reached (clamped in short months).
func isDue(tpl storage.RecurringTemplate, now time.Time) bool {
	if tpl.LastMaterialized == now.Format(monthLayout) {
		return false
	}
	if tpl.Transaction.Date.After(now) {
		return false
	}
	// The template's own month is covered by the template itself.
	if tpl.Transaction.Date.Year() == now.Year() && tpl.Transaction.Date.Month() == int(now.Month()) {
		return false
	}
	return now.Day() >= materializationDay(tpl.Transaction.Date, now)
}

// materializationDay clamps the template's day of month to the current
// month's length, so a template from the 31st runs on Feb 28.
func materializationDay(templateDate core.Date, now time.Time) int {
	day := templateDate.Day()
	lastDay := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
	if day > lastDay {
		return lastDay
	}
	return day
}
