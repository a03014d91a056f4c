// Package eos builds adiabats from an equation of state for water and ice.
//
// Liquid is a linearized seawater equation of state. Callers needing ice
// phases or extreme pressures supply their own EOS.
package eos

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/kamino/internal/rootfind"
)

// EOS evaluates properties at pressure (MPa), temperature (K) and salinity
// (mol/kg).
type EOS interface {
	Entropy(pressure, temperature, salinity float64) (float64, error)
	Density(pressure, temperature, salinity float64) (float64, error)
	Phase(pressure, temperature, salinity float64) (string, error)
}

// SearchHalfWidth is the temperature window (K) searched around the
// previous level.
const SearchHalfWidth = 50.0

// Adiabat is a constant-entropy temperature profile.
type Adiabat struct {
	Pressures    []float64 // Pa
	Temperatures []float64 // K
	Densities    []float64 // kg/m³
	Phases       []string
	Entropy      float64
}

func pascalToMPa(p float64) float64 { return p * 1e-6 }

// MakeAdiabat follows constant entropy from (pStart, tStart) to pEnd over n
// log-spaced pressures (Pa). At each level the temperature is root-found
// within ±SearchHalfWidth of the previous one.
func MakeAdiabat(ctx context.Context, e EOS, pStart, tStart, pEnd, salinity float64, n int) (*Adiabat, error) {
	if n < 2 {
		return nil, errors.New("eos: need at least 2 levels")
	}
	if !(pStart > 0) || !(pEnd > 0) || !(tStart > 0) {
		return nil, errors.New("eos: pressures and temperature must be positive")
	}

	ps := make([]float64, n)
	floats.LogSpan(ps, pStart, pEnd)
	ps[0] = pStart

	s0, err := e.Entropy(pascalToMPa(pStart), tStart, salinity)
	if err != nil {
		return nil, fmt.Errorf("eos: entropy at start: %w", err)
	}
	ad := &Adiabat{
		Pressures:    ps,
		Temperatures: make([]float64, n),
		Densities:    make([]float64, n),
		Phases:       make([]string, n),
		Entropy:      s0,
	}
	ad.Temperatures[0] = tStart

	for i := 0; i < n; i++ {
		pMPa := pascalToMPa(ps[i])
		if i > 0 {
			prev := ad.Temperatures[i-1]
			f := func(_ context.Context, t float64) (float64, error) {
				s, err := e.Entropy(pMPa, t, salinity)
				return s - s0, err
			}
			opts := rootfind.DefaultOptions()
			opts.Quantity = "temperature"
			lo := math.Max(prev-SearchHalfWidth, math.SmallestNonzeroFloat64)
			res, err := rootfind.Brent(ctx, f, lo, prev+SearchHalfWidth, opts)
			if err != nil {
				return nil, fmt.Errorf("eos: level %d (%g Pa): %w", i, ps[i], err)
			}
			ad.Temperatures[i] = res.Root
		}
		t := ad.Temperatures[i]
		if ad.Densities[i], err = e.Density(pMPa, t, salinity); err != nil {
			return nil, fmt.Errorf("eos: density at level %d: %w", i, err)
		}
		if ad.Phases[i], err = e.Phase(pMPa, t, salinity); err != nil {
			return nil, fmt.Errorf("eos: phase at level %d: %w", i, err)
		}
	}
	return ad, nil
}
