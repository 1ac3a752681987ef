// payment-settlement/pkg/errors/errors.go
package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes shared by both services.
const (
	CodeAlreadyPaid         = "DUPLICATE_PAYMENT"
	CodeValidation          = "VALIDATION"
	CodeNotFound            = "NOT_FOUND"
	CodeNotInitialized      = "NOT_INITIALIZED"
	CodeDeliveryFailure     = "DELIVERY_FAILURE"
	CodeMalformedEvent      = "MALFORMED_EVENT"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeUnavailable         = "UNAVAILABLE"
)

// Sentinels for errors.Is. Any E with the same Code matches.
var (
	ErrAlreadyPaid         = E{Code: CodeAlreadyPaid, Message: "order already paid"}
	ErrValidation          = E{Code: CodeValidation, Message: "invalid input"}
	ErrNotFound            = E{Code: CodeNotFound, Message: "not found"}
	ErrNotInitialized      = E{Code: CodeNotInitialized, Message: "publisher channel is not initialized"}
	ErrDeliveryFailure     = E{Code: CodeDeliveryFailure, Message: "event delivery failed"}
	ErrMalformedEvent      = E{Code: CodeMalformedEvent, Message: "malformed event"}
	ErrInsufficientBalance = E{Code: CodeInsufficientBalance, Message: "insufficient bonuses"}
	ErrUnauthorized        = E{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrInvalidTransition   = E{Code: CodeInvalidTransition, Message: "status transition not allowed"}
)

type E struct {
	Code    string
	Message string
	Err     error
}

func (e E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e E) Unwrap() error { return e.Err }

// Is reports whether target is an E carrying the same code.
func (e E) Is(target error) bool {
	var t E
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func Wrap(code, msg string, err error) error {
	return E{Code: code, Message: msg, Err: err}
}

// New builds an E without a cause.
func New(code, msg string) error {
	return E{Code: code, Message: msg}
}

// CodeOf returns the code of the first E in err's chain, or "" if none.
func CodeOf(err error) string {
	var e E
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// MessageOf returns the message of the first E in err's chain, falling back to err.Error().
func MessageOf(err error) string {
	var e E
	if stderrors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
