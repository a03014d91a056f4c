// Package oceanheat computes the steady temperature profile of an ocean
// heated from above by absorbed sunlight.
package oceanheat

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/kamino/internal/integrators"
)

// Diffusivities of the three layers, in m²/s.
const (
	MixedDiffusivity       = 1e-1
	ThermoclineDiffusivity = 1e-5
	DeepDiffusivity        = 0.7e-5
)

// Params describes the water column.
type Params struct {
	// MixedLayerDepth h sets the layer boundaries at 0.9h and 1.2h (m).
	MixedLayerDepth float64
	// AbsorptionScale is the e-folding depth of absorbed sunlight (m).
	AbsorptionScale float64
	// Insolation is the absorbed flux at the surface (W/m²).
	Insolation   float64
	Density      float64 // kg/m³
	HeatCapacity float64 // J/(kg·K)
	Depth        float64 // m
	Levels       int
	// Substeps is the number of integration steps between levels.
	Substeps int
}

func DefaultParams() Params {
	return Params{
		MixedLayerDepth: 200,
		AbsorptionScale: 50,
		Insolation:      272,
		Density:         1000,
		HeatCapacity:    4184,
		Depth:           3000,
		Levels:          300,
		Substeps:        10,
	}
}

func (p Params) validate() error {
	for name, v := range map[string]float64{
		"mixed layer depth": p.MixedLayerDepth,
		"absorption scale":  p.AbsorptionScale,
		"density":           p.Density,
		"heat capacity":     p.HeatCapacity,
		"depth":             p.Depth,
	} {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("oceanheat: %s must be positive, got %g", name, v)
		}
	}
	if p.Insolation < 0 {
		return fmt.Errorf("oceanheat: negative insolation %g", p.Insolation)
	}
	if p.Levels < 2 {
		return errors.New("oceanheat: need at least 2 levels")
	}
	return nil
}

// Diffusivity returns K(z) for depth z below the surface.
func (p Params) Diffusivity(z float64) float64 {
	h := p.MixedLayerDepth
	switch {
	case z < 0.9*h:
		return MixedDiffusivity
	case z < 1.2*h:
		return ThermoclineDiffusivity
	default:
		return DeepDiffusivity
	}
}

// Gradient returns dT/dz (K/m) at depth z.
func (p Params) Gradient(z float64) float64 {
	return -(1 / p.Diffusivity(z)) * (p.Insolation / (p.Density * p.HeatCapacity)) * math.Exp(-z/p.AbsorptionScale)
}

// Profile is temperature (K) against depth (m).
type Profile struct {
	Depths       []float64
	Temperatures []float64
}

// SeafloorTemperature returns the temperature at the deepest level.
func (pr *Profile) SeafloorTemperature() float64 {
	return pr.Temperatures[len(pr.Temperatures)-1]
}

// At linearly interpolates the temperature at depth z.
func (pr *Profile) At(z float64) float64 {
	d := pr.Depths
	if z <= d[0] {
		return pr.Temperatures[0]
	}
	for i := 1; i < len(d); i++ {
		if z <= d[i] {
			f := (z - d[i-1]) / (d[i] - d[i-1])
			return pr.Temperatures[i-1] + f*(pr.Temperatures[i]-pr.Temperatures[i-1])
		}
	}
	return pr.SeafloorTemperature()
}

// Solve integrates the profile down from the surface temperature (K).
// A nil stepper selects RK4.
func Solve(p Params, surfaceTemperature float64, st integrators.Stepper) (*Profile, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if st == nil {
		st = integrators.NewRK4()
	}
	z := make([]float64, p.Levels)
	floats.Span(z, 0, p.Depth)

	sys := integrators.Func(func(_ []float64, depth float64) []float64 {
		return []float64{p.Gradient(depth)}
	})
	ys, err := integrators.Sample(st, sys, []float64{surfaceTemperature}, z, p.Substeps)
	if err != nil {
		return nil, fmt.Errorf("oceanheat: %w", err)
	}
	temps := make([]float64, len(ys))
	for i, y := range ys {
		temps[i] = y[0]
	}
	return &Profile{Depths: z, Temperatures: temps}, nil
}
