package handlers

import (
	"context"
	"errors"
	"net/http"

	"debtster_routes/internal/ports"
)

type errorBody struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind"`
	Details []string `json:"details,omitempty"`
	Hint    string   `json:"hint,omitempty"`
}

const notAssignedHint = "no route is assigned to you for this date; ask your supervisor for an assignment"

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch ports.Kind(err) {
	case "unauthenticated":
		return http.StatusUnauthorized
	case "forbidden":
		return http.StatusForbidden
	case "not_assigned", "not_found":
		return http.StatusNotFound
	case "invalid_date", "invalid_amount", "unknown_installment", "missing_idempotency_key", "invalid_schedule":
		return http.StatusUnprocessableEntity
	case "invalid_input":
		return http.StatusBadRequest
	case "store_unavailable":
		return http.StatusServiceUnavailable
	case "assignment_conflict", "immutable_assignment":
		return http.StatusConflict
	case "duplicate_submission":
		return http.StatusOK
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	body := errorBody{Error: err.Error(), Kind: ports.Kind(err)}
	switch code {
	case http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", "5")
	case http.StatusInternalServerError:
		h.Log.WithField("path", r.URL.Path).Errorf("[HTTP][ERR] %v", err)
		body.Error = "internal error"
	case http.StatusUnauthorized, http.StatusForbidden:
		// the reason stays in the audit log
		body.Error = http.StatusText(code)
	}
	if errors.Is(err, ports.ErrNotAssigned) {
		body.Hint = notAssignedHint
	}
	h.JSON(w, code, body)
}
