package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"stocklog/pkg/ledger"
	"stocklog/pkg/tradelog"
)

func (p transactionPayload) request() (tradelog.AddTransactionRequest, error) {
	ts, err := parseTimestamp(p.Timestamp)
	if err != nil {
		return tradelog.AddTransactionRequest{}, err
	}
	return tradelog.AddTransactionRequest{
		StockID:   strings.TrimSpace(p.StockID),
		Type:      ledger.TransactionType(strings.ToLower(strings.TrimSpace(p.Type))),
		Price:     p.Price,
		Quantity:  p.Quantity,
		Timestamp: ts,
	}, nil
}

func (h *handler) getTransactions(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.GetTransactions(r.URL.Query().Get("stock_id"))
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) addTransaction(w http.ResponseWriter, r *http.Request) {
	var payload transactionPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	req, err := payload.request()
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	created, err := h.core.AddTransaction(req)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) updateTransaction(w http.ResponseWriter, r *http.Request) {
	var payload transactionPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	req, err := payload.request()
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	updated, err := h.core.UpdateTransaction(chi.URLParam(r, "id"), req)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.core.DeleteTransaction(chi.URLParam(r, "id")); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
