// Package atmosphere keeps the mass balance of a well-mixed atmosphere.
package atmosphere

import (
	"fmt"
	"math"

	"github.com/san-kum/kamino/internal/chem"
	"github.com/san-kum/kamino/internal/units"
)

// MixingTolerance bounds |Σx − 1| after every mutation.
const MixingTolerance = 1e-9

// Params describes an atmosphere at construction.
type Params struct {
	Gravity         float64 // m/s²
	Area            float64 // m²
	SurfacePressure float64 // Pa
	Mixing          chem.Composition
}

// state holds the primary fields and everything derived from them. It is
// replaced whole, never edited in place.
type state struct {
	pSurface float64
	moles    float64
	mmw      float64
	mass     float64
	x        chem.Composition
	p        chem.Composition
	n        chem.Composition
}

// Atmosphere is not safe for concurrent mutation.
type Atmosphere struct {
	gravity float64
	area    float64
	mmw     map[string]float64
	s       state
}

// New builds an atmosphere from its mixing ratios. Every species must have
// a known molar mass and the ratios must sum to one.
func New(p Params) (*Atmosphere, error) {
	if !(p.Gravity > 0) || !(p.Area > 0) {
		return nil, fmt.Errorf("atmosphere: gravity and area must be positive")
	}
	if len(p.Mixing) == 0 {
		return nil, fmt.Errorf("atmosphere: no species")
	}
	mmw := make(map[string]float64, len(p.Mixing))
	for _, k := range p.Mixing.Keys() {
		m, err := units.MMW(k)
		if err != nil {
			return nil, fmt.Errorf("atmosphere: %w", err)
		}
		mmw[k] = m
	}

	a := &Atmosphere{gravity: p.Gravity, area: p.Area, mmw: mmw}
	x := p.Mixing.Clone()
	s, err := a.derive(p.SurfacePressure, x, 0)
	if err != nil {
		return nil, err
	}
	s.moles = s.mass / s.mmw
	s.n = x.Scale(s.moles)
	if err := a.check(s); err != nil {
		return nil, err
	}
	a.s = s
	return a, nil
}

// derive fills mmw, mass and partial pressures from pSurface and x.
func (a *Atmosphere) derive(pSurface float64, x chem.Composition, moles float64) (state, error) {
	mmw, err := x.Dot(a.mmw)
	if err != nil {
		return state{}, fmt.Errorf("atmosphere: %w", err)
	}
	return state{
		pSurface: pSurface,
		moles:    moles,
		mmw:      mmw,
		mass:     pSurface * a.area / a.gravity,
		x:        x,
		p:        x.Scale(pSurface),
	}, nil
}

func (a *Atmosphere) check(s state) error {
	for name, v := range map[string]float64{
		"surface pressure":      s.pSurface,
		"total moles":           s.moles,
		"mean molecular weight": s.mmw,
	} {
		if !(v > 0) || math.IsInf(v, 0) {
			return &chem.InvariantViolation{What: name + " must be positive and finite", Got: v}
		}
	}
	for _, c := range []chem.Composition{s.x, s.p, s.n} {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	if sum := s.x.Total(); math.Abs(sum-1) > MixingTolerance {
		return &chem.InvariantViolation{What: "sum of mixing ratios", Got: sum, Want: 1, Tol: MixingTolerance}
	}
	return nil
}

func (a *Atmosphere) species(name string) (float64, error) {
	m, ok := a.mmw[name]
	if !ok {
		return 0, fmt.Errorf("atmosphere: %w: %q", chem.ErrUnknownSpecies, name)
	}
	return m, nil
}

// AddSpecies adds amount moles of an existing species. Surface pressure
// rises by the weight of the added gas. On error the atmosphere is
// unchanged.
func (a *Atmosphere) AddSpecies(amount float64, name string) error {
	m, err := a.species(name)
	if err != nil {
		return err
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return &chem.InvariantViolation{What: "added amount is not finite", Got: amount}
	}

	n := a.s.n.Clone()
	n[name] += amount
	moles := a.s.moles + amount
	pSurface := a.s.pSurface + amount*m*a.gravity/a.area
	x := n.Scale(1 / moles)

	next, err := a.derive(pSurface, x, moles)
	if err != nil {
		return err
	}
	next.n = n
	if err := a.check(next); err != nil {
		return err
	}
	a.s = next
	return nil
}

// SetPartialPressure sets the partial pressure (Pa) of an existing species,
// changing the surface pressure and mole inventory by the difference. On
// error the atmosphere is unchanged.
func (a *Atmosphere) SetPartialPressure(value float64, name string) error {
	m, err := a.species(name)
	if err != nil {
		return err
	}
	if !(value >= 0) || math.IsInf(value, 0) {
		return &chem.InvariantViolation{What: "partial pressure must be non-negative and finite", Got: value}
	}

	dP := value - a.s.p[name]
	pSurface := a.s.pSurface + dP
	p := a.s.p.Clone()
	p[name] = value
	x := p.Scale(1 / pSurface)
	moles := a.s.moles + dP*a.area/(m*a.gravity)

	next, err := a.derive(pSurface, x, moles)
	if err != nil {
		return err
	}
	next.p = p
	next.n = x.Scale(moles)
	if err := a.check(next); err != nil {
		return err
	}
	a.s = next
	return nil
}

// Clone returns an independent copy. Mutating the copy never affects a.
func (a *Atmosphere) Clone() *Atmosphere {
	c := *a
	return &c
}

func (a *Atmosphere) Gravity() float64 { return a.gravity }
func (a *Atmosphere) Area() float64    { return a.area }

// SurfacePressure returns the total surface pressure in Pa.
func (a *Atmosphere) SurfacePressure() float64 { return a.s.pSurface }

// MeanMolecularWeight returns Σ x·MMW in kg/mol.
func (a *Atmosphere) MeanMolecularWeight() float64 { return a.s.mmw }

// Mass returns the column mass in kg.
func (a *Atmosphere) Mass() float64 { return a.s.mass }

// Moles returns the total gas inventory in mol.
func (a *Atmosphere) Moles() float64 { return a.s.moles }

// Has reports whether the species is part of the atmosphere.
func (a *Atmosphere) Has(name string) bool {
	_, ok := a.mmw[name]
	return ok
}

// Species returns the species in sorted order.
func (a *Atmosphere) Species() []string { return a.s.x.Keys() }

func (a *Atmosphere) MixingRatios() chem.Composition     { return a.s.x.Clone() }
func (a *Atmosphere) PartialPressures() chem.Composition { return a.s.p.Clone() }
func (a *Atmosphere) Amounts() chem.Composition          { return a.s.n.Clone() }

// PartialPressure returns the partial pressure of one species in Pa.
func (a *Atmosphere) PartialPressure(name string) (float64, error) {
	if _, err := a.species(name); err != nil {
		return 0, err
	}
	return a.s.p[name], nil
}
