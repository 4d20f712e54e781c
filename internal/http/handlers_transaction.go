package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/gateway"
)

type transactionPatchRequest struct {
	Amount      *core.Money           `json:"amount"`
	Type        *core.TransactionType `json:"type"`
	Category    *string               `json:"category"`
	Description *string               `json:"description"`
	Date        *core.Date            `json:"date"`
	IsRecurring *bool                 `json:"isRecurring"`
}

func (p transactionPatchRequest) toPatch() gateway.TransactionPatch {
	return gateway.TransactionPatch{
		Amount:      p.Amount,
		Type:        p.Type,
		Category:    p.Category,
		Description: p.Description,
		Date:        p.Date,
		IsRecurring: p.IsRecurring,
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txns := storeFrom(r.Context()).Transactions()
	if txns == nil {
		txns = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txns)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := decodeJSON(r, &t); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t.ID = ""
	if err := t.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := storeFrom(r.Context()).AddTransaction(r.Context(), t)
	if err != nil {
		writeError(w, storeStatus(err), "Failed to add transaction")
		return
	}

	s.invalidateSummary(userFrom(r.Context()).ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := storeFrom(r.Context()).UpdateTransaction(r.Context(), r.PathValue("id"), req.toPatch())
	if err != nil {
		writeError(w, storeStatus(err), "Failed to update transaction")
		return
	}

	s.invalidateSummary(userFrom(r.Context()).ID)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := storeFrom(r.Context()).DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, storeStatus(err), "Failed to delete transaction")
		return
	}

	s.invalidateSummary(userFrom(r.Context()).ID)
	w.WriteHeader(http.StatusNoContent)
}
