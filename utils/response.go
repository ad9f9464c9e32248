package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"recipeshare/common"
)

type M map[string]interface{}

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, M{"message": msg})
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// StatusFor maps an error kind to an HTTP status. conflictStatus lets routes
// that report rule conflicts as 400 override the default 409.
func StatusFor(err error, conflictStatus int) int {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrConflict):
		return conflictStatus
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithServiceError writes err using its kind. Unclassified errors are
// logged and hidden behind a generic message.
func RespondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	RespondWithServiceErrorStatus(w, r, err, http.StatusConflict)
}

func RespondWithServiceErrorStatus(w http.ResponseWriter, r *http.Request, err error, conflictStatus int) {
	code := StatusFor(err, conflictStatus)
	if code == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"requestId", GetRequestIDFromContext(r.Context()),
			"error", err,
		)
		RespondWithError(w, code, "Internal server error")
		return
	}
	RespondWithError(w, code, common.Message(err))
}

const maxBodyBytes = 1 << 20

// DecodeJSON reads a JSON body into dst, rejecting unknown fields and
// oversized bodies. Failures are validation errors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("malformed request body: %w", common.ErrValidation)
	}
	return nil
}
