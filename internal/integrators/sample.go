package integrators

import "math"

// Sample integrates y0 across the points xs (ascending) with substeps fixed
// steps per interval and returns y at every point.
func Sample(st Stepper, sys System, y0 []float64, xs []float64, substeps int) ([][]float64, error) {
	if substeps < 1 {
		substeps = 1
	}
	out := make([][]float64, len(xs))
	if len(xs) == 0 {
		return out, nil
	}
	y := append([]float64(nil), y0...)
	out[0] = append([]float64(nil), y...)
	for i := 1; i < len(xs); i++ {
		dx := (xs[i] - xs[i-1]) / float64(substeps)
		x := xs[i-1]
		for s := 0; s < substeps; s++ {
			y = st.Step(sys, y, x, dx)
			x += dx
		}
		if !valid(y) {
			return nil, ErrInvalidState
		}
		out[i] = append([]float64(nil), y...)
	}
	return out, nil
}

func valid(y []float64) bool {
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
