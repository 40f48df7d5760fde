package http

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/robertarktes/order-lifecycle/internal/domain"
	"github.com/robertarktes/order-lifecycle/internal/observability"
)

// writeErr maps domain errors to machine-readable 4xx reasons. Anything
// unexpected is logged and surfaced as a generic 500.
func writeErr(w http.ResponseWriter, logger observability.Logger, err error) {
	var status int
	var reason string

	switch {
	case errors.Is(err, domain.ErrValidation):
		status, reason = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrNotFound):
		status, reason = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrUnauthorized):
		status, reason = http.StatusForbidden, "unauthorized"
	case errors.Is(err, domain.ErrStateConflict):
		status, reason = http.StatusConflict, "invalid_state"
	case errors.Is(err, domain.ErrCapacityExceeded):
		status, reason = http.StatusConflict, "capacity_exceeded"
	case errors.Is(err, domain.ErrSerializationFailure):
		status, reason = http.StatusConflict, "conflict_retry"
	case errors.Is(err, domain.ErrUpstream):
		status, reason = http.StatusBadGateway, "upstream_unavailable"
	default:
		logger.Error("request failed: ", err)
		status, reason = http.StatusInternalServerError, "internal"
	}

	writeJSON(w, status, map[string]interface{}{"error": reason})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	data, _ := json.Marshal(body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
