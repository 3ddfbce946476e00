package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"stocklog/pkg/tradelog"
)

// ErrorResponse represents an error API response with structured information.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	// MaxSellable accompanies INSUFFICIENT_SHARES so clients can offer the
	// largest quantity that would be accepted.
	MaxSellable *int64 `json:"max_sellable,omitempty"`
}

// writeErrorResponse writes err with the HTTP status of its error code.
// Errors that are not *tradelog.Error are reported as internal errors.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	response := ErrorResponse{
		Code:      http.StatusInternalServerError,
		Message:   err.Error(),
		ErrorCode: string(tradelog.ErrCodeInternal),
		RequestID: middleware.GetReqID(r.Context()),
	}

	var logErr *tradelog.Error
	if errors.As(err, &logErr) {
		response.ErrorCode = string(logErr.Code)
		response.Code = mapErrorCodeToHTTPStatus(logErr.Code)
		response.MaxSellable = logErr.MaxSellable
	}

	if ow, ok := w.(*outcomeWriter); ok {
		ow.recordOutcome(response)
	}
	writeJSON(w, response.Code, response)
}

// writeBadRequest reports a malformed request as INVALID_INPUT.
func writeBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeErrorResponse(w, r, tradelog.NewError(tradelog.ErrCodeInvalidInput, message))
}

// mapErrorCodeToHTTPStatus maps business error codes to HTTP status codes.
func mapErrorCodeToHTTPStatus(code tradelog.ErrorCode) int {
	switch code {
	case tradelog.ErrCodeInvalidInput, tradelog.ErrCodeInvalidPrice, tradelog.ErrCodeInvalidQuantity:
		return http.StatusBadRequest
	case tradelog.ErrCodeInsufficientShares:
		return http.StatusUnprocessableEntity
	case tradelog.ErrCodeNotFound:
		return http.StatusNotFound
	case tradelog.ErrCodeDuplicate:
		return http.StatusConflict
	case tradelog.ErrCodeUpstream:
		return http.StatusBadGateway
	case tradelog.ErrCodeUnsupported:
		return http.StatusNotImplemented
	case tradelog.ErrCodeDatabase, tradelog.ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
