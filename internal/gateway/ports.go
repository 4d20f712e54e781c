// Package gateway defines the ports to the remote system of record. The
// Finance Store talks to these interfaces only; concrete backends live in
// internal/storage (SQLite) and internal/gateway/memory.
package gateway

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/core"
)

// Profile is the per-user record carrying the fixed monthly income.
type Profile struct {
	UserID        string
	Email         string
	MonthlyIncome core.Money
	UpdatedAt     time.Time
}

// EMIPatch is a sparse update: only non-nil fields change.
type EMIPatch struct {
	Name            *string
	LoanAmount      *core.Money
	EMIAmount       *core.Money
	DueDay          *int
	StartDate       *core.Date
	Duration        *int
	RemainingMonths *int
	InterestRate    *float64
	Category        *core.EMICategory
}

// TransactionPatch is a sparse update: only non-nil fields change.
type TransactionPatch struct {
	Amount      *core.Money
	Type        *core.TransactionType
	Category    *string
	Description *string
	Date        *core.Date
	IsRecurring *bool
}

// ErrNotFound is returned by update operations when the record id does not
// exist. Deletes of absent ids are a no-op.
var ErrNotFound = errors.New("record not found")

type (
	ProfileStore interface {
		// GetProfile returns nil with no error when the user has no profile yet.
		GetProfile(ctx context.Context, userID string) (*Profile, error)
		UpdateProfile(ctx context.Context, userID string, income core.Money) (*Profile, error)
	}

	EMIStore interface {
		// ListEMIs returns the user's EMIs ordered by creation time descending.
		ListEMIs(ctx context.Context, userID string) ([]core.EMI, error)
		// CreateEMI assigns the record id and returns the stored EMI.
		CreateEMI(ctx context.Context, userID string, e core.EMI) (core.EMI, error)
		UpdateEMI(ctx context.Context, id string, patch EMIPatch) (core.EMI, error)
		DeleteEMI(ctx context.Context, id string) error
	}

	TransactionStore interface {
		// ListTransactions returns the user's transactions ordered by date descending.
		ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
		CreateTransaction(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, id string, patch TransactionPatch) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id string) error
	}

	// Gateway is the full remote contract the Finance Store depends on.
	Gateway interface {
		ProfileStore
		EMIStore
		TransactionStore
	}
)
