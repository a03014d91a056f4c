package weathering

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/kamino/internal/units"
)

// Grid is the set of seafloor conditions a sweep visits.
type Grid struct {
	Pressures    []float64 // Pa
	Temperatures []float64 // K
}

// Size returns the number of points.
func (g Grid) Size() int { return len(g.Pressures) * len(g.Temperatures) }

// Validate rejects empty grids and non-physical values.
func (g Grid) Validate() error {
	if len(g.Pressures) == 0 || len(g.Temperatures) == 0 {
		return errors.New("weathering: empty grid")
	}
	for _, p := range g.Pressures {
		if !(p > 0) || math.IsInf(p, 0) {
			return fmt.Errorf("weathering: invalid grid pressure %g", p)
		}
	}
	for _, t := range g.Temperatures {
		if !(t > 0) || math.IsInf(t, 0) {
			return fmt.Errorf("weathering: invalid grid temperature %g", t)
		}
	}
	return nil
}

// PressureGrid returns n pressures (Pa) evenly spaced between loAtm and
// hiAtm.
func PressureGrid(loAtm, hiAtm float64, n int) []float64 {
	if n == 1 {
		return []float64{units.AtmToPascal(loAtm)}
	}
	out := make([]float64, n)
	floats.Span(out, units.AtmToPascal(loAtm), units.AtmToPascal(hiAtm))
	return out
}

// TemperatureGrid returns n seafloor temperatures in K: the first half
// evenly spaced over 1-20 °C, the rest log-spaced from 10^1.5 to 10^3 °C
// for hydrothermal conditions.
func TemperatureGrid(n int) []float64 {
	nLin := n / 2
	nLog := n - nLin
	celsius := make([]float64, 0, n)
	if nLin == 1 {
		celsius = append(celsius, 1)
	} else if nLin > 1 {
		lin := make([]float64, nLin)
		floats.Span(lin, 1, 20)
		celsius = append(celsius, lin...)
	}
	if nLog == 1 {
		celsius = append(celsius, math.Pow(10, 1.5))
	} else if nLog > 1 {
		lg := make([]float64, nLog)
		floats.LogSpan(lg, math.Pow(10, 1.5), 1000)
		celsius = append(celsius, lg...)
	}
	for i, c := range celsius {
		celsius[i] = units.CelsiusToKelvin(c)
	}
	return celsius
}

// DefaultGrid is the 60×64 survey grid: 100-2000 atm by TemperatureGrid(64).
func DefaultGrid() Grid {
	return Grid{
		Pressures:    PressureGrid(100, 2000, 60),
		Temperatures: TemperatureGrid(64),
	}
}
