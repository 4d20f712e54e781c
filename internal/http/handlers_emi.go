package http

import (
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/gateway"
)

type emiPatchRequest struct {
	Name            *string           `json:"name"`
	LoanAmount      *core.Money       `json:"loanAmount"`
	EMIAmount       *core.Money       `json:"emiAmount"`
	DueDay          *int              `json:"dueDate"`
	StartDate       *core.Date        `json:"startDate"`
	Duration        *int              `json:"duration"`
	RemainingMonths *int              `json:"remainingMonths"`
	InterestRate    *float64          `json:"interestRate"`
	Category        *core.EMICategory `json:"category"`
}

func (p emiPatchRequest) toPatch() gateway.EMIPatch {
	return gateway.EMIPatch{
		Name:            p.Name,
		LoanAmount:      p.LoanAmount,
		EMIAmount:       p.EMIAmount,
		DueDay:          p.DueDay,
		StartDate:       p.StartDate,
		Duration:        p.Duration,
		RemainingMonths: p.RemainingMonths,
		InterestRate:    p.InterestRate,
		Category:        p.Category,
	}
}

// emiView is an EMI as served to clients, extended with the next date an
// installment falls due.
type emiView struct {
	core.EMI
	NextDueDate core.Date `json:"nextDueDate"`
}

func newEMIView(e core.EMI, now time.Time) emiView {
	return emiView{EMI: e, NextDueDate: core.Date{Time: core.NextDueDate(e.DueDay, now)}}
}

func (s *Server) handleListEMIs(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	views := []emiView{}
	for _, e := range storeFrom(r.Context()).EMIs() {
		views = append(views, newEMIView(e, now))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleAddEMI(w http.ResponseWriter, r *http.Request) {
	var e core.EMI
	if err := decodeJSON(r, &e); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e.ID = ""
	// RemainingMonths is derived from the start date and duration; any
	// client-supplied value is discarded.
	e.RemainingMonths = core.RemainingMonths(e, time.Now())
	if err := e.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := storeFrom(r.Context()).AddEMI(r.Context(), e)
	if err != nil {
		writeError(w, storeStatus(err), "Failed to add EMI")
		return
	}

	s.invalidateSummary(userFrom(r.Context()).ID)
	writeJSON(w, http.StatusCreated, newEMIView(created, time.Now()))
}

func (s *Server) handleUpdateEMI(w http.ResponseWriter, r *http.Request) {
	var req emiPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := storeFrom(r.Context()).UpdateEMI(r.Context(), r.PathValue("id"), req.toPatch())
	if err != nil {
		writeError(w, storeStatus(err), "Failed to update EMI")
		return
	}

	s.invalidateSummary(userFrom(r.Context()).ID)
	writeJSON(w, http.StatusOK, newEMIView(updated, time.Now()))
}

func (s *Server) handleDeleteEMI(w http.ResponseWriter, r *http.Request) {
	if err := storeFrom(r.Context()).DeleteEMI(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, storeStatus(err), "Failed to delete EMI")
		return
	}

	s.invalidateSummary(userFrom(r.Context()).ID)
	w.WriteHeader(http.StatusNoContent)
}
