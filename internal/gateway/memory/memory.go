// Package memory is an in-memory Gateway used for development and tests. It
// mirrors the remote contract exactly, including creation-order listing for
// EMIs and date-order listing for transactions, and supports injecting
// per-operation failures and delays so callers can exercise error paths.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/gateway"
)

type userRecord struct {
	user auth.User
	hash []byte
}

type emiRecord struct {
	userID    string
	emi       core.EMI
	createdAt int64 // insertion counter
}

type txnRecord struct {
	userID string
	txn    core.Transaction
}

type Store struct {
	mu       sync.Mutex
	users    map[string]userRecord // by id
	profiles map[string]gateway.Profile
	emis     map[string]emiRecord
	txns     map[string]txnRecord
	seq      int64

	failures map[string]error
	delays   map[string]time.Duration
}

var _ gateway.Gateway = (*Store)(nil)
var _ auth.UserStore = (*Store)(nil)

func New() *Store {
	return &Store{
		users:    make(map[string]userRecord),
		profiles: make(map[string]gateway.Profile),
		emis:     make(map[string]emiRecord),
		txns:     make(map[string]txnRecord),
		failures: make(map[string]error),
		delays:   make(map[string]time.Duration),
	}
}

// FailWith makes every subsequent call of op return err. Pass nil to clear.
// Operation names match the Gateway method names.
func (s *Store) FailWith(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// DelayOp makes every subsequent call of op sleep for d before answering.
func (s *Store) DelayOp(op string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[op] = d
}

func (s *Store) gate(op string) error {
	s.mu.Lock()
	err := s.failures[op]
	d := s.delays[op]
	s.mu.Unlock()
	if d > 0 {
		time.Sleep(d)
	}
	return err
}

// CreateUser implements auth.UserStore.
func (s *Store) CreateUser(_ context.Context, email string, hash []byte) (auth.User, error) {
	if err := s.gate("CreateUser"); err != nil {
		return auth.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.users {
		if r.user.Email == email {
			return auth.User{}, auth.ErrUserExists
		}
	}
	u := auth.User{ID: uuid.NewString(), Email: email}
	s.users[u.ID] = userRecord{user: u, hash: hash}
	return u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (auth.User, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.users {
		if r.user.Email == email {
			return r.user, r.hash, nil
		}
	}
	return auth.User{}, nil, gateway.ErrNotFound
}

func (s *Store) UserByID(_ context.Context, id string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.users[id]
	if !ok {
		return auth.User{}, gateway.ErrNotFound
	}
	return r.user, nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (*gateway.Profile, error) {
	if err := s.gate("GetProfile"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := p
	return &cp, nil
}

func (s *Store) UpdateProfile(_ context.Context, userID string, income core.Money) (*gateway.Profile, error) {
	if err := s.gate("UpdateProfile"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profiles[userID]
	p.UserID = userID
	p.MonthlyIncome = income
	p.UpdatedAt = time.Now()
	if r, ok := s.users[userID]; ok {
		p.Email = r.user.Email
	}
	s.profiles[userID] = p
	cp := p
	return &cp, nil
}

func (s *Store) ListEMIs(_ context.Context, userID string) ([]core.EMI, error) {
	if err := s.gate("ListEMIs"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var recs []emiRecord
	for _, r := range s.emis {
		if r.userID == userID {
			recs = append(recs, r)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].createdAt > recs[j].createdAt })
	out := make([]core.EMI, len(recs))
	for i, r := range recs {
		out[i] = r.emi
	}
	return out, nil
}

func (s *Store) CreateEMI(_ context.Context, userID string, e core.EMI) (core.EMI, error) {
	if err := s.gate("CreateEMI"); err != nil {
		return core.EMI{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uuid.NewString()
	s.seq++
	s.emis[e.ID] = emiRecord{userID: userID, emi: e, createdAt: s.seq}
	return e, nil
}

func (s *Store) UpdateEMI(_ context.Context, id string, patch gateway.EMIPatch) (core.EMI, error) {
	if err := s.gate("UpdateEMI"); err != nil {
		return core.EMI{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.emis[id]
	if !ok {
		return core.EMI{}, gateway.ErrNotFound
	}
	e := r.emi
	if patch.Name != nil {
		e.Name = *patch.Name
	}
	if patch.LoanAmount != nil {
		e.LoanAmount = *patch.LoanAmount
	}
	if patch.EMIAmount != nil {
		e.EMIAmount = *patch.EMIAmount
	}
	if patch.DueDay != nil {
		e.DueDay = *patch.DueDay
	}
	if patch.StartDate != nil {
		e.StartDate = *patch.StartDate
	}
	if patch.Duration != nil {
		e.Duration = *patch.Duration
	}
	if patch.RemainingMonths != nil {
		e.RemainingMonths = *patch.RemainingMonths
	}
	if patch.InterestRate != nil {
		e.InterestRate = *patch.InterestRate
	}
	if patch.Category != nil {
		e.Category = *patch.Category
	}
	r.emi = e
	s.emis[id] = r
	return e, nil
}

func (s *Store) DeleteEMI(_ context.Context, id string) error {
	if err := s.gate("DeleteEMI"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.emis, id)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	if err := s.gate("ListTransactions"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, r := range s.txns {
		if r.userID == userID {
			out = append(out, r.txn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out, nil
}

func (s *Store) CreateTransaction(_ context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	if err := s.gate("CreateTransaction"); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = uuid.NewString()
	s.txns[t.ID] = txnRecord{userID: userID, txn: t}
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, id string, patch gateway.TransactionPatch) (core.Transaction, error) {
	if err := s.gate("UpdateTransaction"); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.txns[id]
	if !ok {
		return core.Transaction{}, gateway.ErrNotFound
	}
	t := r.txn
	if patch.Amount != nil {
		t.Amount = *patch.Amount
	}
	if patch.Type != nil {
		t.Type = *patch.Type
	}
	if patch.Category != nil {
		t.Category = *patch.Category
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Date != nil {
		t.Date = *patch.Date
	}
	if patch.IsRecurring != nil {
		t.IsRecurring = *patch.IsRecurring
	}
	r.txn = t
	s.txns[id] = r
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	if err := s.gate("DeleteTransaction"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.txns, id)
	return nil
}
