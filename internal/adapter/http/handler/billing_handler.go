package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/waterledger/internal/adapter/http/dto"
	"github.com/iho/waterledger/internal/usecase"
)

// BillingHandler serves the read side: outstanding amounts and credit.
type BillingHandler struct {
	billingUC *usecase.BillingUseCase
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(billingUC *usecase.BillingUseCase) *BillingHandler {
	return &BillingHandler{billingUC: billingUC}
}

// Outstanding lists every period of the unit with money still owed,
// oldest first, together with the unit's credit balance.
func (h *BillingHandler) Outstanding(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	unitID := chi.URLParam(r, "unitID")

	items, err := h.billingUC.GetOutstanding(r.Context(), clientID, unitID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get outstanding", err.Error())
		return
	}

	var creditBalance int64
	if fiscalYear := r.URL.Query().Get("fiscal_year"); fiscalYear != "" {
		creditBalance, err = h.billingUC.GetCreditBalance(r.Context(), clientID, unitID, fiscalYear)
		if err != nil {
			writeError(w, mapDomainError(err), "failed to get credit balance", err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, dto.OutstandingFromItems(unitID, items, creditBalance))
}

// CreditBalance returns the unit's prepaid balance for a fiscal year.
func (h *BillingHandler) CreditBalance(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	unitID := chi.URLParam(r, "unitID")
	fiscalYear := chi.URLParam(r, "fiscalYear")

	balance, err := h.billingUC.GetCreditBalance(r.Context(), clientID, unitID, fiscalYear)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get credit balance", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"unit_id":              unitID,
		"fiscal_year":          fiscalYear,
		"credit_balance_cents": balance,
	})
}
