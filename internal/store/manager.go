package store

import (
	"context"
	"log/slog"
	"sync"

	"fintrack/internal/auth"
	"fintrack/internal/gateway"
)

// Manager hands out one Store per authenticated identity. Consumers receive
// the instance explicitly instead of reaching into ambient state; the
// single-instance-per-session semantics stay intact because all consumers
// for a user share the same Store.
type Manager struct {
	gw        gateway.Gateway
	publisher ChangePublisher
	logger    *slog.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

func NewManager(gw gateway.Gateway, publisher ChangePublisher, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		gw:        gw,
		publisher: publisher,
		logger:    logger,
		stores:    make(map[string]*Store),
	}
}

// ForUser returns the user's session store, creating it and loading the
// user's data on first sight of the identity. The initial refresh runs
// exactly once per identity transition.
func (m *Manager) ForUser(ctx context.Context, u auth.User) (*Store, error) {
	m.mu.Lock()
	st, ok := m.stores[u.ID]
	if !ok {
		st = New(m.gw, m.publisher, m.logger)
		m.stores[u.ID] = st
	}
	m.mu.Unlock()

	if ok {
		return st, nil
	}
	if err := st.SetIdentity(ctx, &u); err != nil {
		return st, err
	}
	return st, nil
}

// SignOut resets and discards the user's session store. A late response
// from an operation issued before sign-out is discarded by the epoch guard.
func (m *Manager) SignOut(ctx context.Context, userID string) {
	m.mu.Lock()
	st, ok := m.stores[userID]
	delete(m.stores, userID)
	m.mu.Unlock()

	if ok {
		_ = st.SetIdentity(ctx, nil)
	}
}
