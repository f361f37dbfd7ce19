package mmc

import "fmt"

var (
	// ErrInvalidParameter marks malformed inputs (non-positive or
	// non-finite rates, server counts below one). A caller bug:
	// surfaced as-is, never retried.
	ErrInvalidParameter = fmt.Errorf("invalid parameter")

	// ErrUnstableQueue marks rho >= 1 for an otherwise well-formed
	// configuration. Routine during capacity searches; callers treat
	// the offending server count as infeasible rather than fatal.
	ErrUnstableQueue = fmt.Errorf("unstable queue")
)

// ParameterError carries the offending parameter and the constraint it
// violated.
type ParameterError struct {
	Name       string
	Value      float64
	Constraint string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: must be %s", e.Name, e.Value, e.Constraint)
}

func (e *ParameterError) Unwrap() error { return ErrInvalidParameter }

// UnstableQueueError carries the full configuration that saturated.
type UnstableQueueError struct {
	Lambda  float64
	Mu      float64
	Servers int
	Rho     float64
}

func (e *UnstableQueueError) Error() string {
	return fmt.Sprintf("unstable: rho=%.4g >= 1 (lambda=%g, mu=%g, c=%d)", e.Rho, e.Lambda, e.Mu, e.Servers)
}

func (e *UnstableQueueError) Unwrap() error { return ErrUnstableQueue }
