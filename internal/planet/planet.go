// Package planet couples an atmosphere and an ocean on a spherical planet.
package planet

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/kamino/internal/atmosphere"
	"github.com/san-kum/kamino/internal/chem"
	"github.com/san-kum/kamino/internal/ocean"
	"github.com/san-kum/kamino/internal/units"
	"github.com/san-kum/kamino/internal/weathering"
)

const DefaultOceanLevels = 100

// Params describes the solid planet and its initial surface pressure.
type Params struct {
	Radius          float64 // m
	Mass            float64 // kg
	OceanDepth      float64 // m
	SurfacePressure float64 // Pa
	OceanLevels     int
}

// Planet owns one atmosphere and one ocean. It is not safe for concurrent
// use.
type Planet struct {
	params  Params
	gravity float64
	area    float64

	atm   *atmosphere.Atmosphere
	ocean *ocean.Ocean

	pco2, ph2o float64
}

func New(p Params) (*Planet, error) {
	if !(p.Radius > 0) || !(p.Mass > 0) {
		return nil, errors.New("planet: radius and mass must be positive")
	}
	if !(p.OceanDepth > 0) || !(p.SurfacePressure > 0) {
		return nil, errors.New("planet: ocean depth and surface pressure must be positive")
	}
	if p.OceanLevels == 0 {
		p.OceanLevels = DefaultOceanLevels
	}
	if p.OceanLevels < 2 {
		return nil, fmt.Errorf("planet: need at least 2 ocean levels, got %d", p.OceanLevels)
	}
	return &Planet{
		params:  p,
		gravity: units.G * p.Mass / (p.Radius * p.Radius),
		area:    4 * math.Pi * p.Radius * p.Radius,
	}, nil
}

// Gravity returns the surface gravity G·M/R² in m/s².
func (p *Planet) Gravity() float64 { return p.gravity }

// Area returns the surface area 4πR² in m².
func (p *Planet) Area() float64 { return p.area }

// OceanMass returns area·depth·ρ_water in kg.
func (p *Planet) OceanMass() float64 { return p.area * p.params.OceanDepth * units.WaterDensity }

// SurfacePressure is the atmosphere's surface pressure once attached.
func (p *Planet) SurfacePressure() float64 {
	if p.atm != nil {
		return p.atm.SurfacePressure()
	}
	return p.params.SurfacePressure
}

// OceanDepths returns the depth below the surface of every ocean level.
func (p *Planet) OceanDepths() []float64 {
	z := make([]float64, p.params.OceanLevels)
	floats.Span(z, 0, p.params.OceanDepth)
	return z
}

// OceanPressures returns the hydrostatic pressure (Pa) at every level,
// increasing with depth.
func (p *Planet) OceanPressures() []float64 {
	z := p.OceanDepths()
	ps := make([]float64, len(z))
	surface := p.SurfacePressure()
	for i, d := range z {
		ps[i] = surface + units.WaterDensity*p.gravity*d
	}
	return ps
}

// SeafloorPressure is the pressure at the deepest level.
func (p *Planet) SeafloorPressure() float64 {
	return p.SurfacePressure() + units.WaterDensity*p.gravity*p.params.OceanDepth
}

// AttachAtmosphere creates the atmosphere from mixing ratios.
func (p *Planet) AttachAtmosphere(mixing chem.Composition) error {
	atm, err := atmosphere.New(atmosphere.Params{
		Gravity:         p.gravity,
		Area:            p.area,
		SurfacePressure: p.params.SurfacePressure,
		Mixing:          mixing,
	})
	if err != nil {
		return err
	}
	p.atm = atm
	return nil
}

// AttachOcean creates the ocean at the current surface pressure.
func (p *Planet) AttachOcean(surfaceTemperature, salinity float64, ratios chem.Composition) error {
	oc, err := ocean.New(ocean.Params{
		Gravity:            p.gravity,
		Area:               p.area,
		Depth:              p.params.OceanDepth,
		SurfacePressure:    p.SurfacePressure(),
		SurfaceTemperature: surfaceTemperature,
		Salinity:           salinity,
	}, ratios)
	if err != nil {
		return err
	}
	p.ocean = oc
	return nil
}

func (p *Planet) Atmosphere() *atmosphere.Atmosphere { return p.atm }
func (p *Planet) Ocean() *ocean.Ocean                { return p.ocean }

// GasPressures returns the last P_CO2 and P_H2O (Pa) computed by
// UpdateAtmosphere.
func (p *Planet) GasPressures() (pco2, ph2o float64) { return p.pco2, p.ph2o }

// UpdateAtmosphere evaluates the ocean's CO2 and H2O partial pressures and
// sets them on the atmosphere for the species it carries. Both updates are
// applied together or not at all.
func (p *Planet) UpdateAtmosphere(ctx context.Context, engine chem.Engine) error {
	if p.atm == nil || p.ocean == nil {
		return errors.New("planet: atmosphere and ocean must be attached")
	}
	pco2, ph2o, err := p.ocean.PartialPressures(ctx, engine)
	if err != nil {
		return err
	}
	next := p.atm.Clone()
	for _, gas := range []struct {
		species string
		value   float64
	}{{"CO2", pco2}, {"H2O", ph2o}} {
		if !next.Has(gas.species) {
			continue
		}
		if err := next.SetPartialPressure(gas.value, gas.species); err != nil {
			return fmt.Errorf("planet: set %s: %w", gas.species, err)
		}
	}
	p.atm = next
	p.pco2, p.ph2o = pco2, ph2o
	return nil
}

// WeatheringStep equilibrates the ocean against minerals at the seafloor
// and commits the result.
func (p *Planet) WeatheringStep(ctx context.Context, it weathering.Iterator, seafloorTemperature float64, minerals []string) (weathering.State, error) {
	if p.ocean == nil {
		return weathering.State{}, errors.New("planet: ocean must be attached")
	}
	s, err := p.ocean.WeatheringState()
	if err != nil {
		return weathering.State{}, err
	}
	next, err := it.Step(ctx, p.SeafloorPressure(), seafloorTemperature, s, minerals)
	if err != nil {
		return weathering.State{}, err
	}
	if err := p.ocean.ApplyWeathering(next); err != nil {
		return weathering.State{}, err
	}
	return next, nil
}
