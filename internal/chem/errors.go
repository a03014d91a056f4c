package chem

import (
	"errors"
	"fmt"
)

// Domain errors for engine, inversion and mass-balance operations.
var (
	// ErrEngineExit indicates the engine process failed to start or exited non-zero.
	ErrEngineExit = errors.New("chem: engine exited abnormally")

	// ErrEngineTimeout indicates the engine did not finish within its deadline.
	ErrEngineTimeout = errors.New("chem: engine invocation timed out")

	// ErrNoResponse indicates the engine finished without writing a response.
	ErrNoResponse = errors.New("chem: engine response document missing")

	// ErrMissingColumn indicates an expected column is absent from the response.
	ErrMissingColumn = errors.New("chem: response column missing")

	// ErrMissingRow indicates the response has fewer data rows than required.
	ErrMissingRow = errors.New("chem: response row missing")

	// ErrBadValue indicates a response cell could not be read as a number.
	ErrBadValue = errors.New("chem: response value not numeric")

	// ErrNoSignChange indicates a root-finding bracket whose endpoints share a sign.
	ErrNoSignChange = errors.New("chem: bracket does not contain a sign change")

	// ErrMaxIterations indicates the root finder exhausted its iteration budget.
	ErrMaxIterations = errors.New("chem: root finder exceeded iteration limit")

	// ErrUnknownSpecies indicates a species that is not part of the state.
	ErrUnknownSpecies = errors.New("chem: unknown species")

	// ErrNotSetUp indicates ocean chemistry was read before Setup succeeded.
	ErrNotSetUp = errors.New("chem: ocean chemistry not set up")
)

// EngineInvocationError reports a failed or timed-out engine process.
type EngineInvocationError struct {
	Template TemplateID
	WorkDir  string
	Wrapped  error
}

func (e *EngineInvocationError) Error() string {
	return fmt.Sprintf("engine invocation (%s in %s): %v", e.Template, e.WorkDir, e.Wrapped)
}

func (e *EngineInvocationError) Unwrap() error { return e.Wrapped }

// ResponseParseError reports a response document that lacks an expected
// column or row. It almost always means the engine did not converge.
type ResponseParseError struct {
	Path    string
	Column  string
	Row     int
	Wrapped error
}

func (e *ResponseParseError) Error() string {
	switch {
	case e.Column != "":
		return fmt.Sprintf("parse %s: column %q row %d: %v", e.Path, e.Column, e.Row, e.Wrapped)
	default:
		return fmt.Sprintf("parse %s: row %d: %v", e.Path, e.Row, e.Wrapped)
	}
}

func (e *ResponseParseError) Unwrap() error { return e.Wrapped }

// ConvergenceError reports a root search that could not produce a root.
type ConvergenceError struct {
	Quantity    string
	Lo, Hi      float64
	FLo, FHi    float64
	Iterations  int
	Evaluations int
	Wrapped     error
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("solve %s on [%g, %g] (f=%g, %g) after %d iterations: %v",
		e.Quantity, e.Lo, e.Hi, e.FLo, e.FHi, e.Iterations, e.Wrapped)
}

func (e *ConvergenceError) Unwrap() error { return e.Wrapped }

// InvariantViolation reports state that broke a mass-balance invariant.
// It indicates a caller bug; the offending mutation is not applied.
type InvariantViolation struct {
	What string
	Got  float64
	Want float64
	Tol  float64
}

func (e *InvariantViolation) Error() string {
	if e.Tol > 0 {
		return fmt.Sprintf("invariant violated: %s: got %g, want %g ± %g", e.What, e.Got, e.Want, e.Tol)
	}
	return fmt.Sprintf("invariant violated: %s (%g)", e.What, e.Got)
}
