package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/careloop/clinic-scheduling/internal/scheduling"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeServiceError maps the scheduling error taxonomy onto HTTP statuses.
// Every handler funnels service failures through here so a given error kind
// always produces the same status and code.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		ve *scheduling.ValidationError
		nf *scheduling.NotFoundError
		sc *scheduling.SlotConflict
		pv *scheduling.PolicyViolation
		te *scheduling.TransientError
	)

	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, "validation_failed", ve.Error())
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, "not_found", nf.Error())
	case errors.As(err, &sc):
		writeError(w, http.StatusConflict, "slot_conflict", sc.Error())
	case errors.As(err, &pv):
		writeError(w, http.StatusUnprocessableEntity, "policy_violation", pv.Error())
	case errors.As(err, &te), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "upstream_timeout", "the operation did not complete, retry with care")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
