package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"stocklog/pkg/tradelog"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *handler) getStocks(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.GetStocks()
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) addStock(w http.ResponseWriter, r *http.Request) {
	var payload stockPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	stock, err := h.core.AddStock(payload.Code, payload.Name)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stock)
}

func (h *handler) getStock(w http.ResponseWriter, r *http.Request) {
	stock, err := h.core.GetStock(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stock)
}

func (h *handler) deleteStock(w http.ResponseWriter, r *http.Request) {
	if err := h.core.DeleteStock(chi.URLParam(r, "id")); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *handler) updateStockPrice(w http.ResponseWriter, r *http.Request) {
	var payload pricePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	if payload.Price == nil {
		writeBadRequest(w, r, "price is required")
		return
	}
	stock, err := h.core.UpdateStockPrice(chi.URLParam(r, "id"), *payload.Price)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stock)
}

func (h *handler) refreshStockPrice(w http.ResponseWriter, r *http.Request) {
	stock, quote, err := h.core.RefreshStockPrice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshPriceResponse{Stock: stock, Quote: quote})
}

func (h *handler) getQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.core.FetchQuote(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *handler) getStockHistory(w http.ResponseWriter, r *http.Request) {
	newestFirst := r.URL.Query().Get("order") == "desc"
	result, err := h.core.GetStockHistory(chi.URLParam(r, "id"), newestFirst)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) getMaxSellable(w http.ResponseWriter, r *http.Request) {
	stockID := chi.URLParam(r, "id")
	at, err := parseTimestamp(r.URL.Query().Get("at"))
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	qty, err := h.core.MaxSellable(stockID, at, r.URL.Query().Get("exclude"))
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	resp := maxSellableResponse{StockID: stockID, MaxSellable: qty}
	if !at.IsZero() {
		resp.At = at.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) exportStockExcel(w http.ResponseWriter, r *http.Request) {
	stockID := chi.URLParam(r, "id")
	stock, err := h.core.GetStock(stockID)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	// Buffered so a failed export still gets a JSON error.
	var buf bytes.Buffer
	if err := h.core.ExportHistoryExcel(stockID, &buf); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, stock.Code))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *handler) getReviews(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 20)
	result, err := h.core.GetReviews(chi.URLParam(r, "id"), limit)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) createReview(w http.ResponseWriter, r *http.Request) {
	var payload reviewPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	result, err := h.core.ReviewStock(r.Context(), tradelog.ReviewRequest{
		StockID:  chi.URLParam(r, "id"),
		Provider: payload.Provider,
		BaseURL:  payload.BaseURL,
		APIKey:   payload.APIKey,
		Model:    payload.Model,
		Language: payload.Language,
	})
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
