package planet

import (
	"context"
	"math"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/kamino/internal/chem"
	"github.com/san-kum/kamino/internal/chem/chemtest"
	"github.com/san-kum/kamino/internal/inversion"
	"github.com/san-kum/kamino/internal/ocean"
	"github.com/san-kum/kamino/internal/units"
	"github.com/san-kum/kamino/internal/weathering"
)

const (
	earthRadius = 6.371e6
	earthMass   = 5.972e24
)

func earth(t *testing.T) *Planet {
	t.Helper()
	p, err := New(Params{Radius: earthRadius, Mass: earthMass, OceanDepth: 4000, SurfacePressure: units.EarthAtm})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestGeometry(t *testing.T) {
	g := NewWithT(t)
	p := earth(t)

	g.Expect(p.Gravity()).To(BeNumerically("~", 9.82, 0.01))
	g.Expect(p.Area()).To(BeNumerically("~", 4*math.Pi*earthRadius*earthRadius, 1))
	g.Expect(p.OceanMass()).To(BeNumerically("~", p.Area()*4000*1000, 1))
}

func TestOceanPressureIncreasesWithDepth(t *testing.T) {
	g := NewWithT(t)
	p := earth(t)

	ps := p.OceanPressures()
	g.Expect(ps).To(HaveLen(DefaultOceanLevels))
	g.Expect(ps[0]).To(Equal(units.EarthAtm))
	for i := 1; i < len(ps); i++ {
		g.Expect(ps[i]).To(BeNumerically(">", ps[i-1]))
	}
	g.Expect(ps[len(ps)-1]).To(BeNumerically("~", p.SeafloorPressure(), 1e-6))
	g.Expect(p.SeafloorPressure()).To(BeNumerically("~", units.EarthAtm+1000*p.Gravity()*4000, 1e-6))
}

func TestNewRejectsBadParams(t *testing.T) {
	bad := []Params{
		{Radius: 0, Mass: 1, OceanDepth: 1, SurfacePressure: 1},
		{Radius: 1, Mass: 1, OceanDepth: 0, SurfacePressure: 1},
		{Radius: 1, Mass: 1, OceanDepth: 1, SurfacePressure: 1, OceanLevels: 1},
	}
	for i, p := range bad {
		if _, err := New(p); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func coupled(t *testing.T, stub *chemtest.Stub) *Planet {
	t.Helper()
	p := earth(t)
	if err := p.AttachAtmosphere(chem.Composition{"N2": 0.78, "O2": 0.2196, "CO2": 0.0004}); err != nil {
		t.Fatal(err)
	}
	if err := p.AttachOcean(288, 1.12, ocean.DefaultSeawaterRatios()); err != nil {
		t.Fatal(err)
	}
	if err := p.Ocean().Setup(context.Background(), inversion.New(stub), 40, 0.002); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestUpdateAtmosphere(t *testing.T) {
	g := NewWithT(t)
	stub := &chemtest.Stub{}
	p := coupled(t, stub)

	g.Expect(p.UpdateAtmosphere(context.Background(), stub)).To(Succeed())

	pco2, ph2o := p.GasPressures()
	g.Expect(pco2).To(BeNumerically("~", 40, 40e-6))
	g.Expect(ph2o).To(BeNumerically(">", 0))
	got, err := p.Atmosphere().PartialPressure("CO2")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got).To(Equal(pco2))
	// H2O is not part of this atmosphere.
	g.Expect(p.Atmosphere().Has("H2O")).To(BeFalse())
}

func TestUpdateAtmosphereFailureKeepsState(t *testing.T) {
	stub := &chemtest.Stub{}
	p := coupled(t, stub)
	before := p.Atmosphere().SurfacePressure()

	failing := &chemtest.Stub{FailOn: func(chem.Query, chem.TemplateID) error {
		return &chem.EngineInvocationError{Wrapped: chem.ErrEngineExit}
	}}
	if err := p.UpdateAtmosphere(context.Background(), failing); err == nil {
		t.Fatal("expected error")
	}
	if p.Atmosphere().SurfacePressure() != before {
		t.Error("failed update changed the atmosphere")
	}
}

func TestWeatheringStepAppliesToOcean(t *testing.T) {
	g := NewWithT(t)
	stub := &chemtest.Stub{}
	p := coupled(t, stub)
	stub.Reset()

	next, err := p.WeatheringStep(context.Background(), weathering.Iterator{Engine: stub}, 275, []string{"Calcite"})
	g.Expect(err).NotTo(HaveOccurred())

	qs := stub.Queries()
	g.Expect(qs).To(HaveLen(1))
	g.Expect(qs[0].Pressure).To(Equal(p.SeafloorPressure()))
	g.Expect(qs[0].Temperature).To(Equal(275.0))

	c, err := p.Ocean().Chemistry()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(c.Alkalinity).To(Equal(next.Alkalinity))
	g.Expect(p.Ocean().Composition()).To(Equal(next.Composition))
}
