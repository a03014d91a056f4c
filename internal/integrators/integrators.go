// Package integrators steps first-order ODE systems dy/dx = f(x, y).
package integrators

import "errors"

var (
	// ErrStepTooSmall indicates the adaptive step shrank below its minimum.
	ErrStepTooSmall = errors.New("integrators: adaptive step below minimum")

	// ErrInvalidState indicates a NaN or Inf in the solution.
	ErrInvalidState = errors.New("integrators: invalid state (NaN or Inf detected)")
)

// System is a first-order ODE system.
type System interface {
	Derive(y []float64, x float64) []float64
}

// Func adapts a function to System.
type Func func(y []float64, x float64) []float64

func (f Func) Derive(y []float64, x float64) []float64 { return f(y, x) }

// Stepper advances y from x to x+dx.
type Stepper interface {
	Step(sys System, y []float64, x, dx float64) []float64
}

// ByName returns a fixed-step stepper: "euler", "rk4" or "rk45".
func ByName(name string) (Stepper, error) {
	switch name {
	case "euler":
		return NewEuler(), nil
	case "rk4", "":
		return NewRK4(), nil
	case "rk45":
		return NewRK45(), nil
	}
	return nil, errors.New("integrators: unknown method " + name)
}
