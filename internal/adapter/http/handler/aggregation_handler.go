package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/waterledger/internal/adapter/http/dto"
	"github.com/iho/waterledger/internal/usecase"
)

// AggregationHandler handles the materialized view endpoints.
type AggregationHandler struct {
	aggregationUC *usecase.AggregationUseCase
}

// NewAggregationHandler creates a new AggregationHandler.
func NewAggregationHandler(aggregationUC *usecase.AggregationUseCase) *AggregationHandler {
	return &AggregationHandler{aggregationUC: aggregationUC}
}

// Rebuild recomputes the fiscal-year view. An empty body means a full
// rebuild of every unit.
func (h *AggregationHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	fiscalYear := chi.URLParam(r, "fiscalYear")

	var req dto.RebuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
		req.AllUnits = true
	}

	if err := h.aggregationUC.Rebuild(r.Context(), clientID, fiscalYear, req.ToScope()); err != nil {
		writeError(w, mapDomainError(err), "failed to rebuild view", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "rebuilt"})
}

// GetView returns the aggregated fiscal-year view.
func (h *AggregationHandler) GetView(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	fiscalYear := chi.URLParam(r, "fiscalYear")

	view, err := h.aggregationUC.GetView(r.Context(), clientID, fiscalYear)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get view", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ViewFromDomain(view))
}
