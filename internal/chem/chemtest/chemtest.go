// Package chemtest provides deterministic in-memory engines for tests.
//
// Stub follows a closed-form carbonate model that is monotonic in pH and in
// alkalinity, so inversions over the production brackets have exactly one
// root. It is not chemistry; it only has the right shape.
package chemtest

import (
	"context"
	"math"
	"sync"

	"github.com/san-kum/kamino/internal/chem"
	"github.com/san-kum/kamino/internal/units"
)

const (
	// CarbonateOffset places P_CO2 near 10^-3.4 atm for C = 2 mmol/kg at pH 8.1.
	CarbonateOffset = 7.4
	// AlkalinityPH maps the alkalinity bracket [0, 55] onto pH 4..15.
	AlkalinityPH = 0.2
	// NeutralPH is used when a query constrains neither pH nor alkalinity.
	NeutralPH = 7.0
	// ReferenceTemperature is where the stub's temperature terms vanish (K).
	ReferenceTemperature = 298.15
)

// Stub is a deterministic chem.Engine. The zero value is ready to use.
type Stub struct {
	// FailOn, when set, is consulted before every invocation; a non-nil
	// error is returned unchanged.
	FailOn func(q chem.Query, tmpl chem.TemplateID) error

	mu      sync.Mutex
	calls   int
	queries []chem.Query
}

// Calls returns the number of invocations so far.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Queries returns copies of every query received.
func (s *Stub) Queries() []chem.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chem.Query, len(s.queries))
	for i, q := range s.queries {
		out[i] = q.Clone()
	}
	return out
}

// Reset clears the call log.
func (s *Stub) Reset() {
	s.mu.Lock()
	s.calls = 0
	s.queries = nil
	s.mu.Unlock()
}

func (s *Stub) Invoke(ctx context.Context, q chem.Query, tmpl chem.TemplateID) (*chem.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &chem.EngineInvocationError{Template: tmpl, WorkDir: "stub", Wrapped: err}
	}
	s.mu.Lock()
	s.calls++
	s.queries = append(s.queries, q.Clone())
	s.mu.Unlock()

	if s.FailOn != nil {
		if err := s.FailOn(q, tmpl); err != nil {
			return nil, err
		}
	}

	if tmpl == chem.PartialPressure {
		return partialPressures(q), nil
	}
	return seafloor(q, tmpl), nil
}

// EffectivePH returns the pH the stub assigns to q.
func EffectivePH(q chem.Query) float64 {
	switch {
	case q.PH != nil:
		return *q.PH
	case q.Alkalinity != nil:
		return 4 + AlkalinityPH*(*q.Alkalinity)
	default:
		return NeutralPH
	}
}

// SICO2 is the CO2(g) saturation index the stub reports for q.
func SICO2(q chem.Query) float64 {
	c := 1e-3
	if q.CarbonMolality != nil && *q.CarbonMolality > 0 {
		c = *q.CarbonMolality
	}
	return math.Log10(c) + CarbonateOffset - EffectivePH(q) + 0.01*(q.Temperature-ReferenceTemperature)
}

// SIH2O is the H2O(g) saturation index the stub reports for q.
func SIH2O(q chem.Query) float64 {
	return -1.5 + 0.03*(q.Temperature-ReferenceTemperature)
}

func partialPressures(q chem.Query) *chem.Result {
	res := &chem.Result{
		Composition: q.Composition.Clone(),
		PCO2:        chem.PartialPressureFromSI(SICO2(q)),
		PH2O:        chem.PartialPressureFromSI(SIH2O(q)),
	}
	if q.Alkalinity != nil {
		res.Alkalinity = *q.Alkalinity
	}
	if q.CarbonMolality != nil {
		res.CarbonMolality = *q.CarbonMolality
	}
	return res
}

func seafloor(q chem.Query, tmpl chem.TemplateID) *chem.Result {
	rate := 1.0
	si := 0.0
	if tmpl == chem.SeafloorKinetic {
		rate, si = 0.5, -0.1
	}
	dT := units.KelvinToCelsius(q.Temperature) / 100
	dP := units.PascalToAtm(q.Pressure) / 1000
	n := float64(len(q.Minerals))

	alk := 0.0
	if q.Alkalinity != nil {
		alk = *q.Alkalinity
	}
	c := 0.0
	if q.CarbonMolality != nil {
		c = *q.CarbonMolality
	}

	res := &chem.Result{
		Composition:       make(chem.Composition, len(q.Composition)),
		Alkalinity:        alk * (1 + rate*1e-2*n*(dT+dP)),
		CarbonMolality:    c * (1 - rate*1e-2*n*dT/(1+dT)),
		SaturationIndices: make(map[string]float64, len(q.Minerals)),
	}
	for k, v := range q.Composition {
		res.Composition[k] = v * (1 + rate*1e-3*n*dT)
	}
	for _, m := range q.Minerals {
		res.SaturationIndices[m] = si
	}
	return res
}
