package integrators

import "testing"

func BenchmarkEuler(b *testing.B) {
	integrator := NewEuler()
	y := []float64{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		y = integrator.Step(oscillator, y, 0, 0.01)
	}
}

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4()
	y := []float64{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		y = integrator.Step(oscillator, y, 0, 0.01)
	}
}

func BenchmarkRK45(b *testing.B) {
	integrator := NewRK45()
	y := []float64{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		y = integrator.Step(oscillator, y, 0, 0.01)
	}
}
