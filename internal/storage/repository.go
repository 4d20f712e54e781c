// Package storage is the SQLite gateway implementation: the system of
// record for users, profiles, EMIs, and transactions.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/gateway"
)

const dateLayout = "2006-01-02"

type Repository struct {
	db *sql.DB
}

var (
	_ gateway.Gateway = (*Repository)(nil)
	_ auth.UserStore  = (*Repository)(nil)
)

func NewRepository(dbPath string) (*Repository, error) {
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

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateUser implements auth.UserStore.
func (r *Repository) CreateUser(ctx context.Context, email string, passwordHash []byte) (auth.User, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES (?, ?, ?)`,
		id, email, passwordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return auth.User{}, auth.ErrUserExists
		}
		return auth.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", id)
	return auth.User{ID: id, Email: email}, nil
}

func (r *Repository) UserByEmail(ctx context.Context, email string) (auth.User, []byte, error) {
	var u auth.User
	var hash []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, nil, gateway.ErrNotFound
	}
	if err != nil {
		return auth.User{}, nil, fmt.Errorf("query user by email: %w", err)
	}
	return u, hash, nil
}

func (r *Repository) UserByID(ctx context.Context, id string) (auth.User, error) {
	var u auth.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email FROM users WHERE id = ?`, id).Scan(&u.ID, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, gateway.ErrNotFound
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("query user by id: %w", err)
	}
	return u, nil
}

// GetProfile implements gateway.ProfileStore. A missing profile is reported
// as nil, nil rather than an error.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*gateway.Profile, error) {
	var p gateway.Profile
	var updatedAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, email, monthly_income_cents, updated_at FROM profiles WHERE user_id = ?`,
		userID).Scan(&p.UserID, &p.Email, &p.MonthlyIncome.Cents, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	p.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return &p, nil
}

func (r *Repository) UpdateProfile(ctx context.Context, userID string, income core.Money) (*gateway.Profile, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, email, monthly_income_cents, updated_at)
		SELECT id, email, ?, datetime('now') FROM users WHERE id = ?
		ON CONFLICT(user_id) DO UPDATE SET
			monthly_income_cents = excluded.monthly_income_cents,
			updated_at = excluded.updated_at`,
		income.Cents, userID)
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return r.GetProfile(ctx, userID)
}

func (r *Repository) ListEMIs(ctx context.Context, userID string) ([]core.EMI, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, loan_amount_cents, emi_amount_cents, due_day, start_date,
		       duration, remaining_months, interest_rate, category
		FROM emis WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list emis: %w", err)
	}
	defer rows.Close()

	var out []core.EMI
	for rows.Next() {
		e, err := scanEMI(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) CreateEMI(ctx context.Context, userID string, e core.EMI) (core.EMI, error) {
	e.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO emis (id, user_id, name, loan_amount_cents, emi_amount_cents,
		                  due_day, start_date, duration, remaining_months, interest_rate, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, userID, e.Name, e.LoanAmount.Cents, e.EMIAmount.Cents,
		e.DueDay, e.StartDate.Format(dateLayout), e.Duration, e.RemainingMonths,
		e.InterestRate, string(e.Category))
	if err != nil {
		return core.EMI{}, fmt.Errorf("create emi: %w", err)
	}

	slog.InfoContext(ctx, "EMI saved", "id", e.ID, "name", e.Name, "emi_amount_cents", e.EMIAmount.Cents)
	return e, nil
}

func (r *Repository) UpdateEMI(ctx context.Context, id string, patch gateway.EMIPatch) (core.EMI, error) {
	sets := []string{"updated_at = datetime('now')"}
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.LoanAmount != nil {
		add("loan_amount_cents", patch.LoanAmount.Cents)
	}
	if patch.EMIAmount != nil {
		add("emi_amount_cents", patch.EMIAmount.Cents)
	}
	if patch.DueDay != nil {
		add("due_day", *patch.DueDay)
	}
	if patch.StartDate != nil {
		add("start_date", patch.StartDate.Format(dateLayout))
	}
	if patch.Duration != nil {
		add("duration", *patch.Duration)
	}
	if patch.RemainingMonths != nil {
		add("remaining_months", *patch.RemainingMonths)
	}
	if patch.InterestRate != nil {
		add("interest_rate", *patch.InterestRate)
	}
	if patch.Category != nil {
		add("category", string(*patch.Category))
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		`UPDATE emis SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return core.EMI{}, fmt.Errorf("update emi: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.EMI{}, gateway.ErrNotFound
	}
	return r.GetEMI(ctx, id)
}

func (r *Repository) DeleteEMI(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM emis WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete emi: %w", err)
	}
	return nil
}

// GetEMI returns a single EMI by id. Used by the sync worker.
func (r *Repository) GetEMI(ctx context.Context, id string) (core.EMI, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, loan_amount_cents, emi_amount_cents, due_day, start_date,
		       duration, remaining_months, interest_rate, category
		FROM emis WHERE id = ?`, id)
	e, err := scanEMI(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.EMI{}, gateway.ErrNotFound
	}
	return e, err
}

func (r *Repository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, amount_cents, type, category, description, date, is_recurring
		FROM transactions WHERE user_id = ?
		ORDER BY date DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) CreateTransaction(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	t.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, amount_cents, type, category, description, date, is_recurring)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, userID, t.Amount.Cents, string(t.Type), t.Category, t.Description,
		t.Date.Format(dateLayout), boolToInt(t.IsRecurring))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved", "id", t.ID, "type", string(t.Type), "amount_cents", t.Amount.Cents)
	return t, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, id string, patch gateway.TransactionPatch) (core.Transaction, error) {
	sets := []string{"updated_at = datetime('now')"}
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.Amount != nil {
		add("amount_cents", patch.Amount.Cents)
	}
	if patch.Type != nil {
		add("type", string(*patch.Type))
	}
	if patch.Category != nil {
		add("category", *patch.Category)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Date != nil {
		add("date", patch.Date.Format(dateLayout))
	}
	if patch.IsRecurring != nil {
		add("is_recurring", boolToInt(*patch.IsRecurring))
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, gateway.ErrNotFound
	}
	return r.GetTransaction(ctx, id)
}

func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// GetTransaction returns a single transaction by id. Used by the sync worker.
func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, amount_cents, type, category, description, date, is_recurring
		FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, gateway.ErrNotFound
	}
	return t, err
}

// RecurringTemplate is a transaction flagged as recurring, with the month
// ("2006-01") it was last materialized into a concrete transaction.
type RecurringTemplate struct {
	UserID           string
	Transaction      core.Transaction
	LastMaterialized string
}

// ListRecurringTemplates returns all recurring transactions across users.
func (r *Repository) ListRecurringTemplates(ctx context.Context) ([]RecurringTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, id, amount_cents, type, category, description, date, is_recurring, last_materialized
		FROM transactions WHERE is_recurring = 1
		ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}
	defer rows.Close()

	var out []RecurringTemplate
	for rows.Next() {
		var tpl RecurringTemplate
		var dateStr string
		var recurring int
		err := rows.Scan(&tpl.UserID, &tpl.Transaction.ID, &tpl.Transaction.Amount.Cents,
			&tpl.Transaction.Type, &tpl.Transaction.Category, &tpl.Transaction.Description,
			&dateStr, &recurring, &tpl.LastMaterialized)
		if err != nil {
			return nil, fmt.Errorf("scan recurring template: %w", err)
		}
		d, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse template date: %w", err)
		}
		tpl.Transaction.Date = core.Date{Time: d}
		tpl.Transaction.IsRecurring = recurring == 1
		out = append(out, tpl)
	}
	return out, rows.Err()
}

// MarkMaterialized records that the template produced a transaction for
// month (formatted "2006-01").
func (r *Repository) MarkMaterialized(ctx context.Context, templateID, month string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET last_materialized = ? WHERE id = ?`, month, templateID)
	if err != nil {
		return fmt.Errorf("mark materialized: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEMI(row rowScanner) (core.EMI, error) {
	var e core.EMI
	var startDate, category string
	err := row.Scan(&e.ID, &e.Name, &e.LoanAmount.Cents, &e.EMIAmount.Cents,
		&e.DueDay, &startDate, &e.Duration, &e.RemainingMonths, &e.InterestRate, &category)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.EMI{}, err
		}
		return core.EMI{}, fmt.Errorf("scan emi: %w", err)
	}
	d, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return core.EMI{}, fmt.Errorf("parse emi start date: %w", err)
	}
	e.StartDate = core.Date{Time: d}
	e.Category = core.EMICategory(category)
	return e, nil
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var dateStr, typ string
	var recurring int
	err := row.Scan(&t.ID, &t.Amount.Cents, &typ, &t.Category, &t.Description, &dateStr, &recurring)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	d, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction date: %w", err)
	}
	t.Date = core.Date{Time: d}
	t.Type = core.TransactionType(typ)
	t.IsRecurring = recurring == 1
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
