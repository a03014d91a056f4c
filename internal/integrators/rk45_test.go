package integrators

import (
	"math"
	"testing"
)

func energy(y []float64) float64 {
	return 0.5 * (y[0]*y[0] + y[1]*y[1])
}

func TestRK45_Step(t *testing.T) {
	integrator := NewRK45()
	y := []float64{1.0, 0.0}
	dx := 0.01

	for i := 0; i < 1000; i++ {
		y = integrator.Step(oscillator, y, float64(i)*dx, dx)
	}

	if !valid(y) {
		t.Error("RK45 produced invalid state")
	}
}

func TestRK45_EnergyConservation(t *testing.T) {
	integrator := NewRK45()
	y := []float64{1.0, 0.0}
	initialEnergy := energy(y)
	dx := 0.01

	for i := 0; i < 10000; i++ {
		y = integrator.Step(oscillator, y, float64(i)*dx, dx)
	}

	drift := math.Abs(energy(y)-initialEnergy) / initialEnergy
	if drift > 1e-6 {
		t.Errorf("RK45 energy drift too high: %e", drift)
	}
}

func TestRK45_AdaptiveStep(t *testing.T) {
	integrator := NewRK45()
	y, newDx, ok := integrator.StepAdaptive(oscillator, []float64{1.0, 0.0}, 0, 0.1, 1e-8)

	if !valid(y) {
		t.Error("StepAdaptive produced invalid state")
	}
	if newDx <= 0 {
		t.Errorf("StepAdaptive returned invalid dx: %f", newDx)
	}
	if ok && newDx > 0.1*integrator.maxScale {
		t.Errorf("step grew past max scale: %f", newDx)
	}
}

func TestRK45_Integrate(t *testing.T) {
	integrator := NewRK45()
	y, err := integrator.Integrate(oscillator, []float64{1, 0}, 0, 2*math.Pi, 0.1, 1e-10)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(y[0]-1) > 1e-7 || math.Abs(y[1]) > 1e-7 {
		t.Errorf("expected one full period back at (1, 0), got %v", y)
	}
}

func TestRK45_IntegrateStepTooSmall(t *testing.T) {
	integrator := NewRK45()
	integrator.MinStep = 1e-3
	stiff := Func(func(y []float64, x float64) []float64 { return []float64{-1e6 * (y[0] - math.Cos(x))} })
	if _, err := integrator.Integrate(stiff, []float64{0}, 0, 1, 0.1, 1e-12); err != ErrStepTooSmall {
		t.Errorf("expected ErrStepTooSmall, got %v", err)
	}
}
