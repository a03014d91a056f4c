package chem

import (
	"fmt"
	"math"

	"github.com/san-kum/kamino/internal/units"
)

// TemplateID selects the request template the engine is driven with.
type TemplateID int

const (
	// PartialPressure evaluates gas saturation indices at the given P/T.
	PartialPressure TemplateID = iota
	// SeafloorEquilibrium equilibrates against a mineral assemblage.
	SeafloorEquilibrium
	// SeafloorKinetic is the rate-limited variant of SeafloorEquilibrium.
	// It uses a separate reaction-rate database and is slower per call.
	SeafloorKinetic
)

func (t TemplateID) String() string {
	switch t {
	case PartialPressure:
		return "partial_pressure"
	case SeafloorEquilibrium:
		return "seafloor_equilibrium"
	case SeafloorKinetic:
		return "seafloor_kinetic"
	default:
		return fmt.Sprintf("template(%d)", int(t))
	}
}

// ParseTemplateID is the inverse of TemplateID.String. It also accepts the
// short aliases used on the command line.
func ParseTemplateID(s string) (TemplateID, error) {
	switch s {
	case "partial_pressure", "pp":
		return PartialPressure, nil
	case "seafloor_equilibrium", "equilibrium", "instant":
		return SeafloorEquilibrium, nil
	case "seafloor_kinetic", "kinetic":
		return SeafloorKinetic, nil
	}
	return 0, fmt.Errorf("chem: unknown template %q", s)
}

// IsSeafloor reports whether the template equilibrates against minerals.
func (t TemplateID) IsSeafloor() bool {
	return t == SeafloorEquilibrium || t == SeafloorKinetic
}

// Query is the input to one engine invocation.
type Query struct {
	Pressure    float64 // Pa
	Temperature float64 // K
	Composition Composition

	PH             *float64
	Alkalinity     *float64 // eq/kg as HCO3-
	CarbonMolality *float64 // mol/kg

	// Minerals are declared as equilibrium phases and saturation-index
	// targets, in this order.
	Minerals []string
}

// Float returns a pointer to v, for the optional Query fields.
func Float(v float64) *float64 { return &v }

// Clone returns a deep copy of q.
func (q Query) Clone() Query {
	out := q
	out.Composition = q.Composition.Clone()
	if q.PH != nil {
		out.PH = Float(*q.PH)
	}
	if q.Alkalinity != nil {
		out.Alkalinity = Float(*q.Alkalinity)
	}
	if q.CarbonMolality != nil {
		out.CarbonMolality = Float(*q.CarbonMolality)
	}
	if q.Minerals != nil {
		out.Minerals = append([]string(nil), q.Minerals...)
	}
	return out
}

// Validate rejects queries the engine could never accept.
func (q Query) Validate() error {
	if !(q.Pressure > 0) || math.IsInf(q.Pressure, 0) {
		return fmt.Errorf("chem: pressure must be positive and finite, got %g", q.Pressure)
	}
	if !(q.Temperature > 0) || math.IsInf(q.Temperature, 0) {
		return fmt.Errorf("chem: temperature must be positive and finite, got %g", q.Temperature)
	}
	if err := q.Composition.Validate(); err != nil {
		return err
	}
	for name, p := range map[string]*float64{"pH": q.PH, "alkalinity": q.Alkalinity, "carbon molality": q.CarbonMolality} {
		if p != nil && (math.IsNaN(*p) || math.IsInf(*p, 0)) {
			return fmt.Errorf("chem: %s is not finite", name)
		}
	}
	seen := make(map[string]bool, len(q.Minerals))
	for _, m := range q.Minerals {
		if m == "" {
			return fmt.Errorf("chem: empty mineral name")
		}
		if seen[m] {
			return fmt.Errorf("chem: mineral %q listed twice", m)
		}
		seen[m] = true
	}
	return nil
}

// Result is the parsed output of one engine invocation.
type Result struct {
	Composition    Composition
	Alkalinity     float64
	CarbonMolality float64

	// SaturationIndices holds the reported index of every requested mineral.
	SaturationIndices map[string]float64

	// PCO2 and PH2O are only set by the PartialPressure template.
	PCO2 float64 // Pa
	PH2O float64 // Pa
}

// Clone returns a deep copy of r.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := *r
	out.Composition = r.Composition.Clone()
	if r.SaturationIndices != nil {
		out.SaturationIndices = make(map[string]float64, len(r.SaturationIndices))
		for k, v := range r.SaturationIndices {
			out.SaturationIndices[k] = v
		}
	}
	return &out
}

// PartialPressureFromSI converts a gas saturation index into a partial
// pressure in Pa: P = 10^SI · P_reference.
func PartialPressureFromSI(si float64) float64 {
	return math.Pow(10, si) * units.EarthAtm
}
