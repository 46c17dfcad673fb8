package ports

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrForbidden             = errors.New("forbidden")
	ErrNotAssigned           = errors.New("collector has no assignment for date")
	ErrInvalidDate           = errors.New("invalid date")
	ErrStoreUnavailable      = errors.New("store unavailable")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrDuplicateSubmission   = errors.New("duplicate submission")
	ErrUnknownInstallment    = errors.New("unknown installment")
	ErrMissingIdempotencyKey = errors.New("idempotency key required")
	ErrAssignmentConflict    = errors.New("client already assigned to another collector")
	ErrImmutableAssignment   = errors.New("assignment is in the past")
	ErrNotFound              = errors.New("not found")
	ErrInvalidSchedule       = errors.New("invalid schedule")
	ErrInvalidInput          = errors.New("invalid input")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrUnauthenticated, "unauthenticated"},
	{ErrForbidden, "forbidden"},
	{ErrNotAssigned, "not_assigned"},
	{ErrInvalidDate, "invalid_date"},
	{ErrStoreUnavailable, "store_unavailable"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrDuplicateSubmission, "duplicate_submission"},
	{ErrUnknownInstallment, "unknown_installment"},
	{ErrMissingIdempotencyKey, "missing_idempotency_key"},
	{ErrAssignmentConflict, "assignment_conflict"},
	{ErrImmutableAssignment, "immutable_assignment"},
	{ErrNotFound, "not_found"},
	{ErrInvalidSchedule, "invalid_schedule"},
	{ErrInvalidInput, "invalid_input"},
}

// Kind names the taxonomy member err belongs to, or "internal".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}

// Transient reports whether a caller may retry err later.
func Transient(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// StoreError marks a persistence failure as ErrStoreUnavailable unless it
// already carries a taxonomy kind or is a caller cancellation.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != "internal" || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

// FromKind maps a kind name produced by Kind back to its sentinel. Unknown
// names return nil.
func FromKind(name string) error {
	for _, k := range kinds {
		if k.name == name {
			return k.err
		}
	}
	return nil
}
