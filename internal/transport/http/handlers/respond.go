package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/vedran77/parley/internal/service"
	"github.com/vedran77/parley/pkg/validator"
)

const maxBodyBytes = 64 << 10

// apiError is how a known service error is rendered.
type apiError struct {
	status  int
	code    string
	message string
}

var knownErrors = []struct {
	target error
	apiError
}{
	{service.ErrEmailTaken, apiError{http.StatusConflict, "EMAIL_TAKEN", "An account with this email already exists"}},
	{service.ErrInvalidCreds, apiError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Email or password is incorrect"}},
	{service.ErrUserNotFound, apiError{http.StatusNotFound, "NOT_FOUND", "User not found"}},
}

// respondError writes the mapped response for err, or a logged 500.
func respondError(w http.ResponseWriter, op string, err error) {
	for _, known := range knownErrors {
		if errors.Is(err, known.target) {
			writeError(w, known.status, known.code, known.message)
			return
		}
	}
	jww.ERROR.Printf("[HTTP] %s: %+v", op, err)
	writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
}

// decodeBody reads a bounded JSON body into dst. On failure the 400 is
// already written.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be a JSON object")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		jww.DEBUG.Printf("[HTTP] writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func writeValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"code":   "VALIDATION_ERROR",
			"fields": errs,
		},
	})
}
