package weathering

import (
	"context"
	"fmt"

	"github.com/san-kum/kamino/internal/chem"
)

// Surface is where the ocean exchanges CO2 with the atmosphere.
type Surface struct {
	Pressure    float64 // Pa
	Temperature float64 // K
}

// Perturbation describes one feedback experiment.
type Perturbation struct {
	Minerals []string
	// DeltaT is the seafloor warming in K.
	DeltaT float64
	// Spinup is the number of extra baseline steps run before the
	// baseline is recorded.
	Spinup int
}

// Outcome is the carbon-cycle response at one seafloor point.
type Outcome struct {
	Baseline      State
	Perturbed     State
	BaselinePCO2  float64 // Pa
	PerturbedPCO2 float64 // Pa
}

// DeltaPCO2 is the feedback signal: positive means warming the seafloor
// released CO2 to the atmosphere.
func (o Outcome) DeltaPCO2() float64 { return o.PerturbedPCO2 - o.BaselinePCO2 }

// Feedback runs perturbation sequences. Calls within one sequence are
// strictly ordered.
type Feedback struct {
	Iterator Iterator
	Surface  Surface
}

// Evaluate equilibrates start at the seafloor (pressure, temperature),
// records P_CO2 at the surface, re-equilibrates the result at
// temperature+DeltaT and records P_CO2 again.
func (f Feedback) Evaluate(ctx context.Context, pressure, temperature float64, start State, p Perturbation) (Outcome, error) {
	s, err := f.Iterator.Step(ctx, pressure, temperature, start, p.Minerals)
	if err != nil {
		return Outcome{}, err
	}
	for i := 0; i < p.Spinup; i++ {
		if s, err = f.Iterator.Step(ctx, pressure, temperature, s, p.Minerals); err != nil {
			return Outcome{}, fmt.Errorf("spin-up %d: %w", i+1, err)
		}
	}
	base, err := f.surfacePCO2(ctx, s)
	if err != nil {
		return Outcome{}, err
	}

	warm, err := f.Iterator.Step(ctx, pressure, temperature+p.DeltaT, s, p.Minerals)
	if err != nil {
		return Outcome{}, err
	}
	perturbed, err := f.surfacePCO2(ctx, warm)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Baseline:      s,
		Perturbed:     warm,
		BaselinePCO2:  base,
		PerturbedPCO2: perturbed,
	}, nil
}

func (f Feedback) surfacePCO2(ctx context.Context, s State) (float64, error) {
	q := chem.Query{
		Pressure:       f.Surface.Pressure,
		Temperature:    f.Surface.Temperature,
		Composition:    s.Composition.Clone(),
		Alkalinity:     chem.Float(s.Alkalinity),
		CarbonMolality: chem.Float(s.CarbonMolality),
	}
	res, err := f.Iterator.Engine.Invoke(ctx, q, chem.PartialPressure)
	if err != nil {
		return 0, fmt.Errorf("surface partial pressure: %w", err)
	}
	return res.PCO2, nil
}
