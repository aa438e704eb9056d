// Package apperror implements the error taxonomy shared by every layer of
// the ledger service: a machine-readable kind, an HTTP status mapping, and
// the JSON envelope handlers write back to callers.
package apperror

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Kind is a machine-readable error code, stable across releases.
type Kind string

const (
	KindValidation          Kind = "validation_error"
	KindInvalidAPIKey       Kind = "invalid_api_key"
	KindRateLimitExceeded   Kind = "rate_limit_exceeded"
	KindAccountNotFound     Kind = "account_not_found"
	KindBusinessNotFound    Kind = "business_not_found"
	KindTransactionNotFound Kind = "transaction_not_found"
	KindNotFound            Kind = "not_found"
	KindCurrencyMismatch    Kind = "currency_mismatch"
	KindInsufficientFunds   Kind = "insufficient_funds"
	KindIdempotencyConflict Kind = "idempotency_conflict"
	KindDatabaseError       Kind = "database_error"
	KindInternal            Kind = "internal_error"
)

var httpStatus = map[Kind]int{
	KindValidation:          http.StatusBadRequest,
	KindInvalidAPIKey:       http.StatusUnauthorized,
	KindRateLimitExceeded:   http.StatusTooManyRequests,
	KindAccountNotFound:     http.StatusNotFound,
	KindBusinessNotFound:    http.StatusNotFound,
	KindTransactionNotFound: http.StatusNotFound,
	KindNotFound:            http.StatusNotFound,
	KindCurrencyMismatch:    http.StatusBadRequest,
	KindInsufficientFunds:   http.StatusUnprocessableEntity,
	KindIdempotencyConflict: http.StatusConflict,
	KindDatabaseError:       http.StatusInternalServerError,
	KindInternal:            http.StatusInternalServerError,
}

// Error is the error type passed between layers and ultimately written to
// the HTTP response.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

// Status returns the HTTP status code for this error's kind.
func (e *Error) Status() int {
	if status, ok := httpStatus[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func newErr(kind Kind, msg string, details map[string]any) *Error {
	return &Error{Kind: kind, Message: msg, Details: details}
}

func Validation(msg string) *Error { return newErr(KindValidation, msg, nil) }

func InvalidAPIKey() *Error { return newErr(KindInvalidAPIKey, "invalid API key", nil) }

func RateLimitExceeded() *Error { return newErr(KindRateLimitExceeded, "rate limit exceeded", nil) }

func AccountNotFound(id string) *Error {
	return newErr(KindAccountNotFound, fmt.Sprintf("account not found: %s", id), nil)
}

func BusinessNotFound(id string) *Error {
	return newErr(KindBusinessNotFound, fmt.Sprintf("business not found: %s", id), nil)
}

func TransactionNotFound(id string) *Error {
	return newErr(KindTransactionNotFound, fmt.Sprintf("transaction not found: %s", id), nil)
}

func NotFound(what string) *Error { return newErr(KindNotFound, what, nil) }

func CurrencyMismatch(from, to string) *Error {
	return newErr(KindCurrencyMismatch, fmt.Sprintf("currency mismatch: %s vs %s", from, to), nil)
}

func InsufficientFunds(available, requested string) *Error {
	return newErr(KindInsufficientFunds, "insufficient funds", map[string]any{
		"available": available,
		"requested": requested,
	})
}

func IdempotencyConflict(existingID string) *Error {
	return newErr(KindIdempotencyConflict, fmt.Sprintf("idempotency key reused with a different request: %s", existingID), nil)
}

func Database(err error) *Error {
	return newErr(KindDatabaseError, "database error", nil).withCause(err)
}

func Internal(err error) *Error {
	return newErr(KindInternal, "internal error", nil).withCause(err)
}

// withCause keeps the original error out of the client-facing message
// while still letting the caller log it with %v.
func (e *Error) withCause(cause error) *Error {
	e.cause = cause
	return e
}

// Cause returns the wrapped lower-level error, if any, for logging. It is
// never serialized to the client.
func (e *Error) Cause() error {
	return e.cause
}

// envelope is the wire shape: {"error": {"code","message","details"}}.
type envelope struct {
	Error struct {
		Code    Kind           `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}

// WriteJSON writes the standard error envelope for any error. Errors that
// are not *Error are reported as internal_error without leaking detail.
func WriteJSON(w http.ResponseWriter, err error) {
	appErr, ok := err.(*Error)
	if !ok {
		appErr = Internal(err)
	}

	var env envelope
	env.Error.Code = appErr.Kind
	env.Error.Message = appErr.Message
	env.Error.Details = appErr.Details

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status())
	_ = json.NewEncoder(w).Encode(env)
}
