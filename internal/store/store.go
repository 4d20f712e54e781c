// Package store implements the session-scoped finance state container. It
// holds the authoritative in-memory snapshot of EMIs, transactions, and the
// monthly budget, and funnels every mutation through the remote gateway so
// local state never diverges from the last successful remote result.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/gateway"
)

// ErrNotAuthenticated is returned by mutating operations invoked without an
// active identity. No gateway call is issued in that case.
var ErrNotAuthenticated = errors.New("user not authenticated")

// Fixed user-facing error messages, one per operation.
const (
	msgLoadFailed         = "Failed to load data"
	msgAddEMIFailed       = "Failed to add EMI"
	msgUpdateEMIFailed    = "Failed to update EMI"
	msgDeleteEMIFailed    = "Failed to delete EMI"
	msgAddTxnFailed       = "Failed to add transaction"
	msgUpdateTxnFailed    = "Failed to update transaction"
	msgDeleteTxnFailed    = "Failed to delete transaction"
	msgUpdateBudgetFailed = "Failed to update budget"
)

// Change describes a successful mutation, for the change feed.
type Change struct {
	Entity string // "emi", "transaction", "budget"
	Op     string // "created", "updated", "deleted"
	ID     string
	UserID string
}

// ChangePublisher receives change notifications after successful mutations.
// Publishing is best-effort: failures are logged, never surfaced.
type ChangePublisher interface {
	PublishChange(ctx context.Context, c Change) error
}

// Store is the single authoritative state container for one session.
type Store struct {
	gw        gateway.Gateway
	publisher ChangePublisher
	logger    *slog.Logger

	mu    sync.Mutex
	state state
	user  *auth.User
	// epoch increments on every identity transition; results carrying a
	// stale epoch are discarded instead of applied.
	epoch uint64
}

// New creates a store bound to a gateway. publisher may be nil.
func New(gw gateway.Gateway, publisher ChangePublisher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		gw:        gw,
		publisher: publisher,
		logger:    logger.With("component", "store"),
		state:     initialState(),
	}
}

// SetIdentity handles session transitions. A nil user resets the store
// unconditionally; a non-nil user resets and then loads that user's data.
// Either way the epoch advances, so any result still in flight from the
// previous identity is discarded on arrival.
func (s *Store) SetIdentity(ctx context.Context, u *auth.User) error {
	s.mu.Lock()
	s.epoch++
	s.user = u
	s.state = reduce(s.state, action{typ: actionReset})
	s.mu.Unlock()

	if u == nil {
		return nil
	}
	return s.Refresh(ctx)
}

// Reset discards all session data without touching the identity.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.state = reduce(s.state, action{typ: actionReset})
}

// begin starts an operation: it requires an identity, sets loading, and
// clears any previous error. The returned epoch pins the operation to the
// current session.
func (s *Store) begin() (auth.User, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return auth.User{}, 0, ErrNotAuthenticated
	}
	s.state = reduce(s.state, action{typ: actionSetLoading, loading: true})
	s.state = reduce(s.state, action{typ: actionClearError})
	return *s.user, s.epoch, nil
}

// finish clears the loading flag. It runs on every exit path, success or
// failure, and is a no-op when the session has moved on.
func (s *Store) finish(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return
	}
	s.state = reduce(s.state, action{typ: actionSetLoading, loading: false})
}

// apply dispatches an action unless it belongs to a stale session.
func (s *Store) apply(epoch uint64, a action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	s.state = reduce(s.state, a)
	return true
}

// fail records the fixed per-operation message and logs the cause.
func (s *Store) fail(ctx context.Context, epoch uint64, msg string, err error) {
	s.logger.ErrorContext(ctx, "Store operation failed", "message", msg, "error", err)
	s.apply(epoch, action{typ: actionSetError, errMsg: msg})
}

func (s *Store) publish(ctx context.Context, userID, entity, op, id string) {
	if s.publisher == nil {
		return
	}
	c := Change{Entity: entity, Op: op, ID: id, UserID: userID}
	if err := s.publisher.PublishChange(ctx, c); err != nil {
		s.logger.WarnContext(ctx, "Change publish failed", "entity", entity, "op", op, "id", id, "error", err)
	}
}

// AddEMI creates the EMI remotely and prepends it to the local list.
func (s *Store) AddEMI(ctx context.Context, e core.EMI) (core.EMI, error) {
	user, epoch, err := s.begin()
	if err != nil {
		return core.EMI{}, err
	}
	defer s.finish(epoch)

	created, err := s.gw.CreateEMI(ctx, user.ID, e)
	if err != nil {
		s.fail(ctx, epoch, msgAddEMIFailed, err)
		return core.EMI{}, err
	}
	s.apply(epoch, action{typ: actionAddEMI, emi: created})
	s.publish(ctx, user.ID, "emi", "created", created.ID)
	return created, nil
}

// UpdateEMI patches the EMI remotely and replaces the local copy by id.
func (s *Store) UpdateEMI(ctx context.Context, id string, patch gateway.EMIPatch) (core.EMI, error) {
	user, epoch, err := s.begin()
	if err != nil {
		return core.EMI{}, err
	}
	defer s.finish(epoch)

	updated, err := s.gw.UpdateEMI(ctx, id, patch)
	if err != nil {
		s.fail(ctx, epoch, msgUpdateEMIFailed, err)
		return core.EMI{}, err
	}
	s.apply(epoch, action{typ: actionUpdateEMI, emi: updated})
	s.publish(ctx, user.ID, "emi", "updated", updated.ID)
	return updated, nil
}

// DeleteEMI removes the EMI remotely and locally. Deleting an id that is
// not present locally leaves the list unchanged.
func (s *Store) DeleteEMI(ctx context.Context, id string) error {
	user, epoch, err := s.begin()
	if err != nil {
		return err
	}
	defer s.finish(epoch)

	if err := s.gw.DeleteEMI(ctx, id); err != nil {
		s.fail(ctx, epoch, msgDeleteEMIFailed, err)
		return err
	}
	s.apply(epoch, action{typ: actionDeleteEMI, id: id})
	s.publish(ctx, user.ID, "emi", "deleted", id)
	return nil
}

// AddTransaction creates the transaction remotely and prepends it locally,
// regardless of its date value.
func (s *Store) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	user, epoch, err := s.begin()
	if err != nil {
		return core.Transaction{}, err
	}
	defer s.finish(epoch)

	created, err := s.gw.CreateTransaction(ctx, user.ID, t)
	if err != nil {
		s.fail(ctx, epoch, msgAddTxnFailed, err)
		return core.Transaction{}, err
	}
	s.apply(epoch, action{typ: actionAddTxn, txn: created})
	s.publish(ctx, user.ID, "transaction", "created", created.ID)
	return created, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, id string, patch gateway.TransactionPatch) (core.Transaction, error) {
	user, epoch, err := s.begin()
	if err != nil {
		return core.Transaction{}, err
	}
	defer s.finish(epoch)

	updated, err := s.gw.UpdateTransaction(ctx, id, patch)
	if err != nil {
		s.fail(ctx, epoch, msgUpdateTxnFailed, err)
		return core.Transaction{}, err
	}
	s.apply(epoch, action{typ: actionUpdateTxn, txn: updated})
	s.publish(ctx, user.ID, "transaction", "updated", updated.ID)
	return updated, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	user, epoch, err := s.begin()
	if err != nil {
		return err
	}
	defer s.finish(epoch)

	if err := s.gw.DeleteTransaction(ctx, id); err != nil {
		s.fail(ctx, epoch, msgDeleteTxnFailed, err)
		return err
	}
	s.apply(epoch, action{typ: actionDeleteTxn, id: id})
	s.publish(ctx, user.ID, "transaction", "deleted", id)
	return nil
}

// UpdateBudget persists the fixed monthly income and applies the budget.
func (s *Store) UpdateBudget(ctx context.Context, b core.MonthlyBudget) error {
	user, epoch, err := s.begin()
	if err != nil {
		return err
	}
	defer s.finish(epoch)

	if _, err := s.gw.UpdateProfile(ctx, user.ID, b.Income); err != nil {
		s.fail(ctx, epoch, msgUpdateBudgetFailed, err)
		return err
	}
	s.apply(epoch, action{typ: actionUpdateBudget, budget: b})
	s.publish(ctx, user.ID, "budget", "updated", user.ID)
	return nil
}

// Refresh loads profile, EMIs, and transactions from the gateway. The EMI
// and transaction fetches run concurrently; results are applied only when
// every fetch succeeded, so a failed refresh never leaves partial data
// behind a cleared loading flag.
func (s *Store) Refresh(ctx context.Context) error {
	user, epoch, err := s.begin()
	if err != nil {
		return err
	}
	defer s.finish(epoch)

	profile, err := s.gw.GetProfile(ctx, user.ID)
	if err != nil {
		s.fail(ctx, epoch, msgLoadFailed, err)
		return err
	}

	var (
		emis []core.EMI
		txns []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.gw.ListEMIs(gctx, user.ID)
		if err != nil {
			return err
		}
		emis = v
		return nil
	})
	g.Go(func() error {
		v, err := s.gw.ListTransactions(gctx, user.ID)
		if err != nil {
			return err
		}
		txns = v
		return nil
	})
	if err := g.Wait(); err != nil {
		s.fail(ctx, epoch, msgLoadFailed, err)
		return err
	}

	// A user without a profile keeps the default budget.
	if profile != nil {
		s.apply(epoch, action{typ: actionUpdateBudget, budget: core.MonthlyBudget{Income: profile.MonthlyIncome}})
	}
	s.apply(epoch, action{typ: actionSetEMIs, emis: emis})
	s.apply(epoch, action{typ: actionSetTxns, txns: txns})
	return nil
}

// Summary computes the financial summary from the current snapshot.
func (s *Store) Summary(now time.Time) core.FinancialSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Summarize(s.state.emis, s.state.transactions, s.state.budget.Income, now)
}

// EMIs returns a copy of the EMI list, most recent first.
func (s *Store) EMIs() []core.EMI {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.EMI(nil), s.state.emis...)
}

// Transactions returns a copy of the transaction list, most recent first.
func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.state.transactions...)
}

func (s *Store) MonthlyBudget() core.MonthlyBudget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.budget
}

// Loading reports whether an operation is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.loading
}

// Err returns the current error message, or "" when there is none. The
// message persists until the next operation clears it.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.errMsg
}

// User returns the current identity, or nil when signed out.
func (s *Store) User() *auth.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}
