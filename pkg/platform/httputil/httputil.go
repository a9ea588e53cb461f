// Package httputil writes JSON responses and maps error codes to HTTP status.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "rwaledger/pkg/domain-errors"
)

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": code, "error_description": message}. Internal
// errors omit the description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	if code == "" {
		code = dErrors.CodeInternal
	}
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body["error_description"] = de.Message
		}
	}
	WriteJSON(w, StatusFor(code), body)
}

// StatusFor maps a failure code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput, dErrors.CodeEmptyBatch, dErrors.CodeBatchTooLarge:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusForbidden
	case dErrors.CodeAssetNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeAlreadyPaused, dErrors.CodeAlreadyUnpaused, dErrors.CodeReentrantCall:
		return http.StatusConflict
	case dErrors.CodeRecipientNotVerified, dErrors.CodeAssetNotCompliant, dErrors.CodeAssetNotActive, dErrors.CodeReceiptRejected:
		return http.StatusUnprocessableEntity
	case dErrors.CodePaused:
		return http.StatusServiceUnavailable
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
