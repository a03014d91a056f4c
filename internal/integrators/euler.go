package integrators

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys System, y []float64, x, dx float64) []float64 {
	dy := sys.Derive(y, x)
	result := make([]float64, len(y))
	for i := range y {
		result[i] = y[i] + dx*dy[i]
	}
	return result
}
