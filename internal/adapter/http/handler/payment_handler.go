package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/iho/waterledger/internal/adapter/http/dto"
	"github.com/iho/waterledger/internal/usecase"
)

const actorHeader = "X-Actor"

// PaymentHandler handles payment-related HTTP requests.
type PaymentHandler struct {
	paymentUC  *usecase.PaymentUseCase
	reversalUC *usecase.ReversalUseCase
	billingUC  *usecase.BillingUseCase
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentUC *usecase.PaymentUseCase, reversalUC *usecase.ReversalUseCase, billingUC *usecase.BillingUseCase) *PaymentHandler {
	return &PaymentHandler{
		paymentUC:  paymentUC,
		reversalUC: reversalUC,
		billingUC:  billingUC,
	}
}

// Record records a payment against a unit's outstanding bills.
func (h *PaymentHandler) Record(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")

	var req dto.RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input := req.ToUseCaseInput(clientID, actorFrom(r), chimiddleware.GetReqID(r.Context()))

	result, err := h.paymentUC.RecordPayment(r.Context(), input)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to record payment", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.PaymentFromResult(result))
}

// Reverse deletes a recorded payment by exact inversion.
func (h *PaymentHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	transactionID := chi.URLParam(r, "transactionID")
	if transactionID == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	result, err := h.reversalUC.ReverseTransaction(r.Context(), usecase.ReverseTransactionInput{
		ClientID:      clientID,
		TransactionID: transactionID,
		Actor:         actorFrom(r),
		RequestID:     chimiddleware.GetReqID(r.Context()),
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to reverse payment", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ReversalResponse{
		TransactionID:   transactionID,
		AffectedPeriods: result.AffectedPeriods,
	})
}

// Get retrieves a single recorded payment.
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")
	if transactionID == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	transaction, err := h.billingUC.GetTransaction(r.Context(), transactionID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get payment", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(transaction))
}

// ListByUnit lists a unit's payments, newest first.
func (h *PaymentHandler) ListByUnit(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	unitID := chi.URLParam(r, "unitID")

	transactions, err := h.billingUC.ListTransactions(r.Context(), usecase.ListTransactionsInput{
		ClientID: clientID,
		UnitID:   unitID,
		Limit:    parseIntQuery(r, "limit", 50),
		Offset:   parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list payments", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionsFromDomain(transactions))
}

func actorFrom(r *http.Request) string {
	if actor := r.Header.Get(actorHeader); actor != "" {
		return actor
	}
	return "api"
}
