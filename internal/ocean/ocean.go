// Package ocean tracks the dissolved composition and carbonate chemistry of
// a global ocean.
package ocean

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/kamino/internal/chem"
	"github.com/san-kum/kamino/internal/inversion"
	"github.com/san-kum/kamino/internal/units"
	"github.com/san-kum/kamino/internal/weathering"
)

// Params fixes the physical ocean.
type Params struct {
	Gravity            float64 // m/s²
	Area               float64 // m²
	Depth              float64 // m
	SurfacePressure    float64 // Pa
	SurfaceTemperature float64 // K
	// Salinity is the total dissolved salt in mol/kg.
	Salinity float64
}

// Chemistry is the carbonate state solved by Setup.
type Chemistry struct {
	// PH is the value solved at Setup. Weathering does not update it.
	PH             float64
	Alkalinity     float64
	CarbonMolality float64
}

// Inverter solves pH and alkalinity for a target CO2 partial pressure.
type Inverter interface {
	InvertBoth(ctx context.Context, target float64, fixed inversion.Fixed) (ph, alk float64, err error)
}

type Ocean struct {
	params      Params
	composition chem.Composition
	chemistry   *Chemistry
}

// New scales ratios by Salinity / Σ ratios.
func New(p Params, ratios chem.Composition) (*Ocean, error) {
	if !(p.Gravity > 0) || !(p.Area > 0) || !(p.Depth > 0) {
		return nil, fmt.Errorf("ocean: gravity, area and depth must be positive")
	}
	if !(p.SurfacePressure > 0) || !(p.SurfaceTemperature > 0) {
		return nil, fmt.Errorf("ocean: surface pressure and temperature must be positive")
	}
	if p.Salinity < 0 || math.IsNaN(p.Salinity) || math.IsInf(p.Salinity, 0) {
		return nil, fmt.Errorf("ocean: invalid salinity %g", p.Salinity)
	}
	if err := ratios.Validate(); err != nil {
		return nil, fmt.Errorf("ocean: %w", err)
	}
	total := ratios.Total()
	if !(total > 0) {
		return nil, fmt.Errorf("ocean: seawater ratios sum to %g", total)
	}
	return &Ocean{
		params:      p,
		composition: ratios.Scale(p.Salinity / total),
	}, nil
}

func (o *Ocean) Params() Params { return o.params }

// Composition returns a copy of the dissolved composition in mol/kg.
func (o *Ocean) Composition() chem.Composition { return o.composition.Clone() }

// WaterMass returns the ocean mass in kg.
func (o *Ocean) WaterMass() float64 {
	return o.params.Area * o.params.Depth * units.WaterDensity
}

// Chemistry returns the carbonate state, or ErrNotSetUp before a
// successful Setup.
func (o *Ocean) Chemistry() (Chemistry, error) {
	if o.chemistry == nil {
		return Chemistry{}, chem.ErrNotSetUp
	}
	return *o.chemistry, nil
}

// Setup solves pH and alkalinity in equilibrium with targetPCO2 (Pa) at the
// ocean surface for a fixed total carbon molality. Both inversions see the
// same inputs; the chemistry is only replaced when both succeed.
func (o *Ocean) Setup(ctx context.Context, inv Inverter, targetPCO2, carbonMolality float64) error {
	if !(carbonMolality >= 0) || math.IsInf(carbonMolality, 0) {
		return fmt.Errorf("ocean: invalid carbon molality %g", carbonMolality)
	}
	fixed := inversion.Fixed{
		Pressure:       o.params.SurfacePressure,
		Temperature:    o.params.SurfaceTemperature,
		Composition:    o.composition.Clone(),
		CarbonMolality: carbonMolality,
	}
	ph, alk, err := inv.InvertBoth(ctx, targetPCO2, fixed)
	if err != nil {
		return fmt.Errorf("ocean setup: %w", err)
	}
	o.chemistry = &Chemistry{PH: ph, Alkalinity: alk, CarbonMolality: carbonMolality}
	return nil
}

// AddSpecies dissolves moles of an existing species into the whole ocean.
func (o *Ocean) AddSpecies(moles float64, species string) error {
	cur, ok := o.composition[species]
	if !ok {
		return fmt.Errorf("ocean: %w: %q", chem.ErrUnknownSpecies, species)
	}
	next := cur + moles/o.WaterMass()
	if next < 0 || math.IsNaN(next) || math.IsInf(next, 0) {
		return &chem.InvariantViolation{What: "molality of " + species, Got: next}
	}
	o.composition[species] = next
	return nil
}

// PartialPressures evaluates P_CO2 and P_H2O (Pa) over the ocean surface
// from the committed chemistry.
func (o *Ocean) PartialPressures(ctx context.Context, engine chem.Engine) (pco2, ph2o float64, err error) {
	c, err := o.Chemistry()
	if err != nil {
		return 0, 0, err
	}
	q := chem.Query{
		Pressure:       o.params.SurfacePressure,
		Temperature:    o.params.SurfaceTemperature,
		Composition:    o.composition.Clone(),
		Alkalinity:     chem.Float(c.Alkalinity),
		CarbonMolality: chem.Float(c.CarbonMolality),
	}
	res, err := engine.Invoke(ctx, q, chem.PartialPressure)
	if err != nil {
		return 0, 0, fmt.Errorf("ocean partial pressures: %w", err)
	}
	return res.PCO2, res.PH2O, nil
}

// WeatheringState returns the inputs of a seafloor weathering step.
func (o *Ocean) WeatheringState() (weathering.State, error) {
	c, err := o.Chemistry()
	if err != nil {
		return weathering.State{}, err
	}
	return weathering.State{
		Composition:    o.composition.Clone(),
		Alkalinity:     c.Alkalinity,
		CarbonMolality: c.CarbonMolality,
	}, nil
}

// ApplyWeathering commits the output of a weathering step. The species set
// must not change.
func (o *Ocean) ApplyWeathering(s weathering.State) error {
	if o.chemistry == nil {
		return chem.ErrNotSetUp
	}
	if len(s.Composition) != len(o.composition) {
		return fmt.Errorf("ocean: weathering changed the species set")
	}
	for k := range o.composition {
		if _, ok := s.Composition[k]; !ok {
			return fmt.Errorf("ocean: weathering result lacks %q", k)
		}
	}
	if err := s.Composition.Validate(); err != nil {
		return err
	}
	for name, v := range map[string]float64{"alkalinity": s.Alkalinity, "carbon molality": s.CarbonMolality} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &chem.InvariantViolation{What: name + " is not finite", Got: v}
		}
	}
	o.composition = s.Composition.Clone()
	c := *o.chemistry
	c.Alkalinity = s.Alkalinity
	c.CarbonMolality = s.CarbonMolality
	o.chemistry = &c
	return nil
}
