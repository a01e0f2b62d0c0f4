package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/PythonTilk/Notes/internal/domain"
	"github.com/PythonTilk/Notes/internal/service/account"
)

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the error taxonomy to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, account.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrDuplicateUsername),
		errors.Is(err, domain.ErrDuplicateEmail),
		errors.Is(err, domain.ErrEmailBanned),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrTokenInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyBanned),
		errors.Is(err, domain.ErrCannotBanAdmin):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNotBanned):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
