// Package inversion solves for the seawater pH or alkalinity that yields a
// target CO2 partial pressure, by root finding over forward engine calls.
package inversion

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/kamino/internal/chem"
	"github.com/san-kum/kamino/internal/rootfind"
)

// Unknown is the quantity an inversion solves for.
type Unknown int

const (
	PH Unknown = iota
	Alkalinity
)

func (u Unknown) String() string {
	switch u {
	case PH:
		return "pH"
	case Alkalinity:
		return "alkalinity"
	default:
		return fmt.Sprintf("unknown(%d)", int(u))
	}
}

// ParseUnknown accepts the names produced by Unknown.String.
func ParseUnknown(s string) (Unknown, error) {
	switch s {
	case "pH", "ph":
		return PH, nil
	case "alkalinity", "alk":
		return Alkalinity, nil
	}
	return 0, fmt.Errorf("inversion: unknown quantity %q", s)
}

// Bracket is the search interval for an unknown. XTol is half the smallest
// step the engine can see in the unknown, given the digits it is written
// with; searching below it only chases rounding.
type Bracket struct {
	Lo, Hi float64
	XTol   float64
}

type bracketKey struct {
	unknown Unknown
	tmpl    chem.TemplateID
}

var brackets = map[bracketKey]Bracket{
	{PH, chem.PartialPressure}:         {Lo: 0, Hi: 14, XTol: 0.5e-2},
	{Alkalinity, chem.PartialPressure}: {Lo: 0, Hi: 55, XTol: 0.5e-8},
}

// BracketFor returns the declared search interval.
func BracketFor(u Unknown, tmpl chem.TemplateID) (Bracket, bool) {
	b, ok := brackets[bracketKey{u, tmpl}]
	return b, ok
}

// Fixed holds the inputs that do not vary during an inversion.
type Fixed struct {
	Pressure       float64 // Pa
	Temperature    float64 // K
	Composition    chem.Composition
	CarbonMolality float64 // mol/kg
}

// Query returns the forward query with the unknown set to x.
func (f Fixed) Query(u Unknown, x float64) chem.Query {
	q := chem.Query{
		Pressure:       f.Pressure,
		Temperature:    f.Temperature,
		Composition:    f.Composition.Clone(),
		CarbonMolality: chem.Float(f.CarbonMolality),
	}
	switch u {
	case PH:
		q.PH = chem.Float(x)
	case Alkalinity:
		q.Alkalinity = chem.Float(x)
	}
	return q
}

// Observer is told the outcome of every inversion.
type Observer interface {
	ObserveInversion(u Unknown, evaluations int, elapsed time.Duration, err error)
}

// Solution is a converged inversion.
type Solution struct {
	Value       float64
	Evaluations int
	Iterations  int
}

// Inverter is stateless apart from its configuration and safe for
// concurrent use when its engine is.
type Inverter struct {
	engine   chem.Engine
	opts     rootfind.Options
	log      logrus.FieldLogger
	observer Observer
}

// Option configures an Inverter.
type Option func(*Inverter)

// WithOptions replaces the root finder tolerances. An XTol finer than the
// bracket's is raised to it.
func WithOptions(o rootfind.Options) Option {
	return func(inv *Inverter) { inv.opts = o }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(inv *Inverter) { inv.log = l }
}

// WithObserver reports every inversion to o.
func WithObserver(o Observer) Option {
	return func(inv *Inverter) { inv.observer = o }
}

func New(engine chem.Engine, opts ...Option) *Inverter {
	inv := &Inverter{
		engine: engine,
		opts:   rootfind.DefaultOptions(),
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Engine returns the engine the inverter drives.
func (inv *Inverter) Engine() chem.Engine { return inv.engine }

// Invert returns the value of u for which the forward P_CO2 equals target
// (Pa).
func (inv *Inverter) Invert(ctx context.Context, target float64, fixed Fixed, u Unknown) (float64, error) {
	sol, err := inv.Solve(ctx, target, fixed, u)
	if err != nil {
		return 0, err
	}
	return sol.Value, nil
}

// Solve is Invert with iteration counts.
func (inv *Inverter) Solve(ctx context.Context, target float64, fixed Fixed, u Unknown) (Solution, error) {
	b, ok := BracketFor(u, chem.PartialPressure)
	if !ok {
		return Solution{}, fmt.Errorf("inversion: no bracket for %s", u)
	}
	residual := func(ctx context.Context, x float64) (float64, error) {
		res, err := inv.engine.Invoke(ctx, fixed.Query(u, x), chem.PartialPressure)
		if err != nil {
			return 0, err
		}
		return res.PCO2 - target, nil
	}

	opts := inv.opts
	opts.XTol = math.Max(opts.XTol, b.XTol)
	opts.Quantity = u.String()
	start := time.Now()
	r, err := rootfind.Brent(ctx, residual, b.Lo, b.Hi, opts)
	elapsed := time.Since(start)
	if inv.observer != nil {
		inv.observer.ObserveInversion(u, r.Evaluations, elapsed, err)
	}

	log := inv.log.WithFields(logrus.Fields{
		"unknown":     u.String(),
		"target":      target,
		"iterations":  r.Iterations,
		"evaluations": r.Evaluations,
		"duration":    elapsed,
	})
	if err != nil {
		log.WithError(err).Debug("inversion failed")
		return Solution{}, fmt.Errorf("inversion: %s: %w", u, err)
	}
	log.WithField("value", r.Root).Debug("inversion converged")
	return Solution{Value: r.Root, Evaluations: r.Evaluations, Iterations: r.Iterations}, nil
}

// InvertBoth solves for pH and then alkalinity with the same fixed inputs.
// Either both values are returned or neither is.
func (inv *Inverter) InvertBoth(ctx context.Context, target float64, fixed Fixed) (ph, alk float64, err error) {
	ph, err = inv.Invert(ctx, target, fixed, PH)
	if err != nil {
		return 0, 0, err
	}
	alk, err = inv.Invert(ctx, target, fixed, Alkalinity)
	if err != nil {
		return 0, 0, err
	}
	return ph, alk, nil
}
