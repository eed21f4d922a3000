package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrDimensionMismatch indicates mismatched state/control dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrInvalidControlValue is returned when a control payload is not a
	// finite number or is outside the field's domain.
	ErrInvalidControlValue = errors.New("dynamo: invalid control value")

	// ErrIntegrationFailure marks a segment that the solver could not
	// complete. It is fatal to the real-time loop.
	ErrIntegrationFailure = errors.New("dynamo: integration failure")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Segment int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("segment %d (t=%.4f min): %v", e.Segment, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// IntegrationFailure wraps cause so that it matches both ErrIntegrationFailure
// and the underlying error. The caller that knows the segment index fills in
// Segment.
func IntegrationFailure(t float64, x State, cause error) error {
	return &SimulationError{
		Time:    t,
		State:   x.Clone(),
		Wrapped: fmt.Errorf("%w: %w", ErrIntegrationFailure, cause),
	}
}
