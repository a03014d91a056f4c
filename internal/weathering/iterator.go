// Package weathering re-equilibrates seawater against seafloor minerals and
// measures how the resulting atmospheric CO2 responds to warming.
package weathering

import (
	"context"
	"fmt"

	"github.com/san-kum/kamino/internal/chem"
)

// State is the part of the ocean a weathering step changes.
type State struct {
	Composition    chem.Composition
	Alkalinity     float64
	CarbonMolality float64
}

// Clone returns a deep copy.
func (s State) Clone() State {
	s.Composition = s.Composition.Clone()
	return s
}

// Variant selects instantaneous or rate-limited equilibration.
type Variant int

const (
	Equilibrium Variant = iota
	Kinetic
)

// Template returns the engine template for the variant.
func (v Variant) Template() chem.TemplateID {
	if v == Kinetic {
		return chem.SeafloorKinetic
	}
	return chem.SeafloorEquilibrium
}

func (v Variant) String() string { return v.Template().String() }

// ParseVariant accepts "equilibrium" and "kinetic" and the template names.
func ParseVariant(s string) (Variant, error) {
	id, err := chem.ParseTemplateID(s)
	if err != nil || !id.IsSeafloor() {
		return 0, fmt.Errorf("weathering: unknown variant %q", s)
	}
	if id == chem.SeafloorKinetic {
		return Kinetic, nil
	}
	return Equilibrium, nil
}

// Iterator performs single seafloor equilibration steps. It holds no state
// between calls.
type Iterator struct {
	Engine  chem.Engine
	Variant Variant
}

// Step equilibrates s against minerals at the seafloor pressure (Pa) and
// temperature (K) with exactly one engine call. Errors are not retried.
func (it Iterator) Step(ctx context.Context, pressure, temperature float64, s State, minerals []string) (State, error) {
	q := chem.Query{
		Pressure:       pressure,
		Temperature:    temperature,
		Composition:    s.Composition.Clone(),
		Alkalinity:     chem.Float(s.Alkalinity),
		CarbonMolality: chem.Float(s.CarbonMolality),
		Minerals:       append([]string(nil), minerals...),
	}
	res, err := it.Engine.Invoke(ctx, q, it.Variant.Template())
	if err != nil {
		return State{}, fmt.Errorf("weathering step at %g Pa, %g K: %w", pressure, temperature, err)
	}
	return State{
		Composition:    res.Composition.Clone(),
		Alkalinity:     res.Alkalinity,
		CarbonMolality: res.CarbonMolality,
	}, nil
}
