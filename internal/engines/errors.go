package engines

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable indicates a secondary engine could not be reached or is not
// registered. The pipeline treats this as cross-validation being unavailable
// rather than as evidence against the result.
var ErrUnavailable = errors.New("engine unavailable")

// ErrTimeout indicates a secondary engine did not answer within the
// configured cross-validation budget.
var ErrTimeout = errors.New("engine timeout")

// Wrap maps context cancellation onto the engine error taxonomy and
// annotates other failures with the engine identifier.
func Wrap(engineID string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", engineID, ErrTimeout)
	}
	return fmt.Errorf("%s: %w", engineID, err)
}

// Soft reports whether an engine failure should degrade to the unavailable
// path instead of propagating.
func Soft(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
