package httpapi

import (
	"encoding/json"
	"net/http"

	apperr "github.com/example/payment-settlement/pkg/errors"
)

type errorOut struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	detail := apperr.MessageOf(err)
	if code == http.StatusInternalServerError {
		detail = "Internal server error"
	}
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, code, errorOut{Detail: detail})
}

func statusFor(err error) int {
	switch apperr.CodeOf(err) {
	case apperr.CodeAlreadyPaid:
		return http.StatusConflict
	case apperr.CodeValidation:
		return http.StatusUnprocessableEntity
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperr.CodeInsufficientBalance:
		return http.StatusBadRequest
	case apperr.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func validationError(msg string) error {
	return apperr.New(apperr.CodeValidation, msg)
}
