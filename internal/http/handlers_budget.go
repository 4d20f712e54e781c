package http

import (
	"net/http"
	"time"

	"fintrack/internal/core"
)

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, storeFrom(r.Context()).MonthlyBudget())
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var b core.MonthlyBudget
	if err := decodeJSON(r, &b); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if b.Income.Cents < 0 {
		writeError(w, http.StatusUnprocessableEntity, "income cannot be negative")
		return
	}

	if err := storeFrom(r.Context()).UpdateBudget(r.Context(), b); err != nil {
		writeError(w, storeStatus(err), "Failed to update budget")
		return
	}

	s.invalidateSummary(userFrom(r.Context()).ID)
	writeJSON(w, http.StatusOK, storeFrom(r.Context()).MonthlyBudget())
}

// handleSummary serves the current month's financial summary, cached per
// user until the next mutation or TTL expiry.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r.Context()).ID
	if summary, ok := s.summaryCache.Get(userID); ok {
		writeJSON(w, http.StatusOK, summary)
		return
	}

	summary := storeFrom(r.Context()).Summary(time.Now())
	s.summaryCache.Set(userID, summary)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	st := storeFrom(r.Context())
	if err := st.Refresh(r.Context()); err != nil {
		writeError(w, storeStatus(err), "Failed to load data")
		return
	}

	s.invalidateSummary(userFrom(r.Context()).ID)
	writeJSON(w, http.StatusOK, st.Snapshot())
}

// handleExport streams the full data snapshot as a JSON download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := storeFrom(r.Context()).ExportJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export data")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="finance-data.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
