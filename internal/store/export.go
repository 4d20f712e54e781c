package store

import (
	"encoding/json"

	"fintrack/internal/core"
)

// ExportSnapshot mirrors the store's state shape for user-triggered data
// export. Field names match the in-memory state exactly so the exported
// document round-trips.
type ExportSnapshot struct {
	EMIs          []core.EMI         `json:"emis"`
	Transactions  []core.Transaction `json:"transactions"`
	MonthlyBudget core.MonthlyBudget `json:"monthlyBudget"`
}

// Snapshot returns a copy of the full data snapshot.
func (s *Store) Snapshot() ExportSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ExportSnapshot{
		EMIs:          append([]core.EMI(nil), s.state.emis...),
		Transactions:  append([]core.Transaction(nil), s.state.transactions...),
		MonthlyBudget: s.state.budget,
	}
}

// ExportJSON serializes the snapshot as indented JSON for download.
func (s *Store) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(s.Snapshot(), "", "  ")
}
