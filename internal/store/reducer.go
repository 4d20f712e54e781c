package store

import "fintrack/internal/core"

// state is one immutable snapshot of the session. reduce never mutates its
// input; every transition produces a fresh value with fresh slices where the
// lists change.
type state struct {
	emis         []core.EMI
	transactions []core.Transaction
	budget       core.MonthlyBudget
	loading      bool
	errMsg       string // "" means no error
}

func initialState() state {
	return state{}
}

type actionType int

const (
	actionSetLoading actionType = iota
	actionSetError
	actionClearError
	actionSetEMIs
	actionAddEMI
	actionUpdateEMI
	actionDeleteEMI
	actionSetTxns
	actionAddTxn
	actionUpdateTxn
	actionDeleteTxn
	actionUpdateBudget
	actionReset
)

// action is the tagged union of state transitions. Only the fields relevant
// to typ are read.
type action struct {
	typ     actionType
	loading bool
	errMsg  string
	id      string
	emi     core.EMI
	emis    []core.EMI
	txn     core.Transaction
	txns    []core.Transaction
	budget  core.MonthlyBudget
}

// reduce is the pure transition function over snapshots.
func reduce(s state, a action) state {
	switch a.typ {
	case actionSetLoading:
		s.loading = a.loading
	case actionSetError:
		s.errMsg = a.errMsg
		s.loading = false
	case actionClearError:
		s.errMsg = ""
	case actionSetEMIs:
		s.emis = append([]core.EMI(nil), a.emis...)
	case actionAddEMI:
		// New records go to the head so lists read most-recent-first.
		s.emis = append([]core.EMI{a.emi}, s.emis...)
	case actionUpdateEMI:
		out := make([]core.EMI, len(s.emis))
		for i, e := range s.emis {
			if e.ID == a.emi.ID {
				out[i] = a.emi
			} else {
				out[i] = e
			}
		}
		s.emis = out
	case actionDeleteEMI:
		out := make([]core.EMI, 0, len(s.emis))
		for _, e := range s.emis {
			if e.ID != a.id {
				out = append(out, e)
			}
		}
		s.emis = out
	case actionSetTxns:
		s.transactions = append([]core.Transaction(nil), a.txns...)
	case actionAddTxn:
		s.transactions = append([]core.Transaction{a.txn}, s.transactions...)
	case actionUpdateTxn:
		out := make([]core.Transaction, len(s.transactions))
		for i, t := range s.transactions {
			if t.ID == a.txn.ID {
				out[i] = a.txn
			} else {
				out[i] = t
			}
		}
		s.transactions = out
	case actionDeleteTxn:
		out := make([]core.Transaction, 0, len(s.transactions))
		for _, t := range s.transactions {
			if t.ID != a.id {
				out = append(out, t)
			}
		}
		s.transactions = out
	case actionUpdateBudget:
		s.budget = a.budget
	case actionReset:
		s = initialState()
	}
	return s
}
