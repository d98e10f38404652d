package loyalty

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable wraps transport failures. Callers decide whether to retry.
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition rejects a status move that the machine does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrMissingReason rejects a cancellation without a reason.
	ErrMissingReason = errors.New("cancellation reason is required")

	ErrInsufficientPoints = errors.New("insufficient points")

	ErrInvalidInput = errors.New("invalid input")
)

// Unavailable wraps a transport error so errors.Is(err, ErrStoreUnavailable) holds
// while keeping the original cause reachable.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
