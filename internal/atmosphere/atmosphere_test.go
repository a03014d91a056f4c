package atmosphere

import (
	"errors"
	"math"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/kamino/internal/chem"
	"github.com/san-kum/kamino/internal/units"
)

func earthLike(t *testing.T) *Atmosphere {
	t.Helper()
	a, err := New(Params{
		Gravity:         9.8,
		Area:            1,
		SurfacePressure: 1e5,
		Mixing:          chem.Composition{"N2": 0.8, "O2": 0.2},
	})
	if err != nil {
		t.Fatalf("new atmosphere: %v", err)
	}
	return a
}

// mmwFromMixing recomputes Σ x·MMW the same way the atmosphere does.
func mmwFromMixing(t *testing.T, x chem.Composition) float64 {
	t.Helper()
	m := make(map[string]float64)
	for _, k := range x.Keys() {
		v, err := units.MMW(k)
		if err != nil {
			t.Fatal(err)
		}
		m[k] = v
	}
	mmw, err := x.Dot(m)
	if err != nil {
		t.Fatal(err)
	}
	return mmw
}

func assertInvariants(t *testing.T, a *Atmosphere) {
	t.Helper()
	x := a.MixingRatios()
	if sum := x.Total(); math.Abs(sum-1) > 1e-9 {
		t.Errorf("Σx = %.15f", sum)
	}
	if got, want := a.MeanMolecularWeight(), mmwFromMixing(t, x); got != want {
		t.Errorf("mmw %v, recomputed %v", got, want)
	}
	for _, k := range a.Species() {
		p, _ := a.PartialPressure(k)
		if math.Abs(p-x[k]*a.SurfacePressure()) > 1e-9*a.SurfacePressure() {
			t.Errorf("P_%s = %v, want %v", k, p, x[k]*a.SurfacePressure())
		}
	}
	if math.Abs(a.Mass()-a.SurfacePressure()*a.Area()/a.Gravity()) > 1e-9*a.Mass() {
		t.Errorf("mass %v inconsistent with surface pressure", a.Mass())
	}
}

func TestNewScenarioA(t *testing.T) {
	a := earthLike(t)

	want := 0.8*0.028 + 0.2*0.032
	if math.Abs(a.MeanMolecularWeight()-want) > 1e-15 {
		t.Errorf("expected mmw %v, got %v", want, a.MeanMolecularWeight())
	}
	if math.Abs(a.Moles()-a.Mass()/want) > 1e-9 {
		t.Errorf("moles %v != mass/mmw %v", a.Moles(), a.Mass()/want)
	}
	assertInvariants(t, a)
}

func TestAddSpeciesScenarioA(t *testing.T) {
	g := NewWithT(t)
	a := earthLike(t)
	p0 := a.SurfacePressure()
	x0 := a.MixingRatios()

	g.Expect(a.AddSpecies(1, "O2")).To(Succeed())

	g.Expect(a.SurfacePressure()).To(BeNumerically("~", p0+0.032*9.8/1, 1e-9))
	g.Expect(a.MixingRatios()["O2"]).To(BeNumerically(">", x0["O2"]))
	g.Expect(a.MixingRatios()["N2"]).To(BeNumerically("<", x0["N2"]))
	assertInvariants(t, a)
}

func TestSetPartialPressure(t *testing.T) {
	g := NewWithT(t)
	a := earthLike(t)
	n0 := a.Moles()

	g.Expect(a.SetPartialPressure(3e4, "O2")).To(Succeed())

	g.Expect(a.PartialPressure("O2")).To(BeNumerically("~", 3e4, 1e-9))
	g.Expect(a.PartialPressure("N2")).To(BeNumerically("~", 8e4, 1e-9))
	g.Expect(a.SurfacePressure()).To(BeNumerically("~", 1.1e5, 1e-9))
	// ΔP = 1e4 Pa of O2 over 1 m² at 9.8 m/s².
	g.Expect(a.Moles()).To(BeNumerically("~", n0+1e4/(0.032*9.8), 1e-6))
	assertInvariants(t, a)
}

func TestMixedMutationsKeepInvariants(t *testing.T) {
	a, err := New(Params{
		Gravity:         9.8,
		Area:            5.1e14,
		SurfacePressure: units.EarthAtm,
		Mixing:          chem.Composition{"N2": 0.78, "O2": 0.21, "Ar": 0.0096, "CO2": 0.0004},
	})
	if err != nil {
		t.Fatal(err)
	}

	steps := []func() error{
		func() error { return a.AddSpecies(1e15, "CO2") },
		func() error { return a.SetPartialPressure(60, "CO2") },
		func() error { return a.AddSpecies(-1e14, "O2") },
		func() error { return a.SetPartialPressure(2.5e4, "O2") },
		func() error { return a.AddSpecies(3e17, "N2") },
		func() error { return a.SetPartialPressure(0, "Ar") },
		func() error { return a.AddSpecies(1e16, "Ar") },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		assertInvariants(t, a)
	}
}

func TestMutationsAreAtomic(t *testing.T) {
	a := earthLike(t)
	before := struct {
		p, n, mmw float64
		x         chem.Composition
	}{a.SurfacePressure(), a.Moles(), a.MeanMolecularWeight(), a.MixingRatios()}

	var inv *chem.InvariantViolation
	if err := a.AddSpecies(-1e9, "O2"); !errors.As(err, &inv) {
		t.Errorf("expected InvariantViolation, got %v", err)
	}
	if err := a.SetPartialPressure(-1, "O2"); !errors.As(err, &inv) {
		t.Errorf("expected InvariantViolation, got %v", err)
	}
	if err := a.AddSpecies(math.NaN(), "N2"); !errors.As(err, &inv) {
		t.Errorf("expected InvariantViolation, got %v", err)
	}

	if a.SurfacePressure() != before.p || a.Moles() != before.n || a.MeanMolecularWeight() != before.mmw {
		t.Error("failed mutation changed the atmosphere")
	}
	if !a.MixingRatios().Equal(before.x, 0) {
		t.Error("failed mutation changed the mixing ratios")
	}
}

func TestUnknownSpecies(t *testing.T) {
	a := earthLike(t)
	if err := a.AddSpecies(1, "CO2"); !errors.Is(err, chem.ErrUnknownSpecies) {
		t.Errorf("expected ErrUnknownSpecies, got %v", err)
	}
	if err := a.SetPartialPressure(1, "Xe"); !errors.Is(err, chem.ErrUnknownSpecies) {
		t.Errorf("expected ErrUnknownSpecies, got %v", err)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		p    Params
	}{
		{"sum", Params{Gravity: 9.8, Area: 1, SurfacePressure: 1e5, Mixing: chem.Composition{"N2": 0.5}}},
		{"species", Params{Gravity: 9.8, Area: 1, SurfacePressure: 1e5, Mixing: chem.Composition{"Xe": 1}}},
		{"gravity", Params{Gravity: 0, Area: 1, SurfacePressure: 1e5, Mixing: chem.Composition{"N2": 1}}},
		{"pressure", Params{Gravity: 9.8, Area: 1, SurfacePressure: -1, Mixing: chem.Composition{"N2": 1}}},
		{"empty", Params{Gravity: 9.8, Area: 1, SurfacePressure: 1e5}},
	}
	for _, tt := range tests {
		if _, err := New(tt.p); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	a := earthLike(t)
	a.MixingRatios()["N2"] = 0
	a.PartialPressures()["N2"] = 0
	a.Amounts()["N2"] = 0
	if a.MixingRatios()["N2"] != 0.8 {
		t.Error("mixing ratios leaked internal state")
	}
	if p, _ := a.PartialPressure("N2"); p == 0 {
		t.Error("partial pressures leaked internal state")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a := earthLike(t)
	c := a.Clone()
	if err := c.AddSpecies(10, "O2"); err != nil {
		t.Fatal(err)
	}
	if a.SurfacePressure() != 1e5 {
		t.Error("mutating the clone changed the original")
	}
	if c.SurfacePressure() == a.SurfacePressure() {
		t.Error("clone did not change")
	}
}
