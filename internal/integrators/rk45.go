package integrators

import "math"

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
	// MinStep bounds Integrate's step size from below.
	MinStep float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
		MinStep:  1e-9,
	}
}

// Step takes one Dormand-Prince step of size dx without error control.
func (r *RK45) Step(sys System, y []float64, x, dx float64) []float64 {
	yNew, _, _ := r.StepAdaptive(sys, y, x, dx, 1e-6)
	return yNew
}

// StepAdaptive takes one step and returns the suggested next step size and
// whether the local error was within tol.
func (r *RK45) StepAdaptive(sys System, y []float64, x, dx, tol float64) ([]float64, float64, bool) {
	n := len(y)

	k1 := sys.Derive(y, x)

	y2 := make([]float64, n)
	for i := 0; i < n; i++ {
		y2[i] = y[i] + dx*b21*k1[i]
	}
	k2 := sys.Derive(y2, x+a2*dx)

	y3 := make([]float64, n)
	for i := 0; i < n; i++ {
		y3[i] = y[i] + dx*(b31*k1[i]+b32*k2[i])
	}
	k3 := sys.Derive(y3, x+a3*dx)

	y4 := make([]float64, n)
	for i := 0; i < n; i++ {
		y4[i] = y[i] + dx*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	k4 := sys.Derive(y4, x+a4*dx)

	y5 := make([]float64, n)
	for i := 0; i < n; i++ {
		y5[i] = y[i] + dx*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	k5 := sys.Derive(y5, x+a5*dx)

	y6 := make([]float64, n)
	for i := 0; i < n; i++ {
		y6[i] = y[i] + dx*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	k6 := sys.Derive(y6, x+dx)

	yNew := make([]float64, n)
	for i := 0; i < n; i++ {
		yNew[i] = y[i] + dx*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}

	k7 := sys.Derive(yNew, x+dx)

	errMax := 0.0
	for i := 0; i < n; i++ {
		errEst := dx * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		scale := math.Abs(y[i]) + math.Abs(dx*k1[i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}

	errRatio := errMax / tol

	var dxNew float64
	if errRatio > 1 {
		scale := math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
		dxNew = dx * scale
	} else {
		if errRatio > 0 {
			scale := math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
			dxNew = dx * scale
		} else {
			dxNew = dx * r.maxScale
		}
	}

	return yNew, dxNew, errRatio <= 1
}

// Integrate advances y0 from x0 to x1 with error control, rejecting and
// retrying steps whose local error exceeds tol.
func (r *RK45) Integrate(sys System, y0 []float64, x0, x1, dx, tol float64) ([]float64, error) {
	y := append([]float64(nil), y0...)
	x := x0
	for x < x1 {
		if x+dx > x1 {
			dx = x1 - x
		}
		yNew, dxNew, ok := r.StepAdaptive(sys, y, x, dx, tol)
		if ok {
			x += dx
			y = yNew
			if !valid(y) {
				return nil, ErrInvalidState
			}
		}
		if dxNew < r.MinStep && x < x1 {
			return nil, ErrStepTooSmall
		}
		dx = dxNew
	}
	return y, nil
}
