package tradelog

import (
	"errors"
	"fmt"

	"stocklog/pkg/ledger"
)

// ErrorCode defines error classification codes for structured error handling.
type ErrorCode string

// Error codes for different error categories.
const (
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeDuplicate          ErrorCode = "DUPLICATE"
	ErrCodeInvalidPrice       ErrorCode = "INVALID_PRICE"
	ErrCodeInvalidQuantity    ErrorCode = "INVALID_QUANTITY"
	ErrCodeInsufficientShares ErrorCode = "INSUFFICIENT_SHARES"
	ErrCodeDatabase           ErrorCode = "DATABASE_ERROR"
	ErrCodeUpstream           ErrorCode = "UPSTREAM_ERROR"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeUnsupported        ErrorCode = "UNSUPPORTED"
)

// Error represents a structured error with classification code.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
	// MaxSellable is set on INSUFFICIENT_SHARES errors.
	MaxSellable *int64
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with classification code and additional context.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// IsErrorCode checks if an error chain contains an *Error with the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the classification code of err, or ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// validationError converts a failed ledger validation into an *Error.
func validationError(res ledger.ValidationResult) *Error {
	code := ErrCodeInvalidInput
	switch res.Code {
	case ledger.CodeInvalidPrice:
		code = ErrCodeInvalidPrice
	case ledger.CodeInvalidQuantity:
		code = ErrCodeInvalidQuantity
	case ledger.CodeInsufficientShares:
		code = ErrCodeInsufficientShares
	}
	return &Error{Code: code, Message: res.Message, MaxSellable: res.MaxSellable}
}
