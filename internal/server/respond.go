package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mmynk/ajoledger/internal/auth"
	"github.com/mmynk/ajoledger/internal/ledger"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps domain error kinds to HTTP statuses. Anything matching no
// sentinel is an infrastructure failure: logged in full, returned as an
// opaque 500 so driver internals never leak to clients.
func writeError(w http.ResponseWriter, err error) {
	var status int
	var kind string

	switch {
	case errors.Is(err, ledger.ErrValidation), errors.Is(err, auth.ErrWeakPassword):
		status, kind = http.StatusBadRequest, "validation"
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		status, kind = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ledger.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, ledger.ErrDuplicateDistribution):
		status, kind = http.StatusConflict, "duplicate_distribution"
	case errors.Is(err, ledger.ErrConflict),
		errors.Is(err, ledger.ErrDuplicate),
		errors.Is(err, auth.ErrEmailExists):
		status, kind = http.StatusConflict, "conflict"
	case errors.Is(err, ledger.ErrInvalidTransition):
		status, kind = http.StatusConflict, "invalid_transition"
	case errors.Is(err, ledger.ErrNotReady):
		status, kind = http.StatusUnprocessableEntity, "not_ready"
	case errors.Is(err, ledger.ErrInvalidState):
		status, kind = http.StatusUnprocessableEntity, "invalid_state"
	default:
		slog.Error("internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", Kind: "validation"})
		return false
	}
	return true
}
