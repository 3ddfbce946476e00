package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stocklog/pkg/ledger"
)

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.GetDashboard()
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) getFeeSettings(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.GetFeeSettings()
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) setFeeSettings(w http.ResponseWriter, r *http.Request) {
	var payload ledger.FeeSettings
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	result, err := h.core.SetFeeSettings(payload)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) previewFees(w http.ResponseWriter, r *http.Request) {
	var payload feePreviewPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	side := ledger.TransactionType(strings.ToLower(strings.TrimSpace(payload.Type)))
	breakdown, total, err := h.core.PreviewFees(side, payload.Price, payload.Quantity)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	gross := payload.Price * float64(payload.Quantity)
	amount := gross + total
	if side == ledger.Sell {
		amount = gross - total
	}
	writeJSON(w, http.StatusOK, feePreviewResponse{
		Breakdown: breakdown,
		Total:     total,
		Amount:    ledger.Round2(amount),
	})
}

func (h *handler) getOperationLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := normalizeLimitOffset(
		parseIntDefault(r.URL.Query().Get("limit"), 50),
		parseIntDefault(r.URL.Query().Get("offset"), 0),
	)
	result, err := h.core.GetOperationLogs(limit, offset)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Helpers.

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func normalizeLimitOffset(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

const marketMinuteLayout = "2006-01-02 15:04"

// parseTimestamp accepts RFC 3339, or a minute-precision wall time in the
// market zone. Empty input yields the zero time.
func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(marketMinuteLayout, value, ledger.MarketLocation()); err == nil {
		return t, nil
	}
	return time.Time{}, errors.New("invalid timestamp: " + value)
}
