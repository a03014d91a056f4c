package inversion

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/san-kum/kamino/internal/chem"
	"github.com/san-kum/kamino/internal/chem/chemtest"
	"github.com/san-kum/kamino/internal/phreeqc"
	"github.com/san-kum/kamino/internal/rootfind"
	"github.com/san-kum/kamino/internal/units"
)

func testFixed() Fixed {
	return Fixed{
		Pressure:       units.EarthAtm,
		Temperature:    288.15,
		Composition:    chem.Composition{"Na": 0.469, "Cl": 0.546},
		CarbonMolality: 0.002,
	}
}

func forwardPCO2(t *testing.T, eng chem.Engine, fixed Fixed, u Unknown, x float64) float64 {
	t.Helper()
	res, err := eng.Invoke(context.Background(), fixed.Query(u, x), chem.PartialPressure)
	if err != nil {
		t.Fatal(err)
	}
	return res.PCO2
}

func TestInvertRoundTrip(t *testing.T) {
	stub := &chemtest.Stub{}
	inv := New(stub)
	fixed := testFixed()

	tests := []struct {
		u   Unknown
		x   float64
		tol float64
	}{
		{PH, 8.1, 0.005},
		{PH, 6.5, 0.005},
		{PH, 12.3, 0.005},
		{Alkalinity, 20, 2e-5},
		{Alkalinity, 2.3, 2.3e-6},
	}
	for _, tt := range tests {
		target := forwardPCO2(t, stub, fixed, tt.u, tt.x)
		got, err := inv.Invert(context.Background(), target, fixed, tt.u)
		if err != nil {
			t.Errorf("%s=%v: %v", tt.u, tt.x, err)
			continue
		}
		if math.Abs(got-tt.x) > tt.tol {
			t.Errorf("%s: expected %v, got %v", tt.u, tt.x, got)
		}
	}
}

func TestInvertOutOfRange(t *testing.T) {
	inv := New(&chemtest.Stub{})
	// SI +10 is unreachable for any pH in [0, 14].
	_, err := inv.Invert(context.Background(), chem.PartialPressureFromSI(10), testFixed(), PH)

	var cerr *chem.ConvergenceError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConvergenceError, got %v", err)
	}
	if !errors.Is(err, chem.ErrNoSignChange) {
		t.Errorf("expected ErrNoSignChange, got %v", err)
	}
	if cerr.Lo != 0 || cerr.Hi != 14 {
		t.Errorf("expected bracket [0, 14], got [%v, %v]", cerr.Lo, cerr.Hi)
	}
}

func TestInvertPropagatesEngineError(t *testing.T) {
	stub := &chemtest.Stub{FailOn: func(q chem.Query, _ chem.TemplateID) error {
		return &chem.EngineInvocationError{Template: chem.PartialPressure, Wrapped: chem.ErrEngineTimeout}
	}}
	_, err := New(stub).Invert(context.Background(), 30, testFixed(), Alkalinity)

	var ierr *chem.EngineInvocationError
	if !errors.As(err, &ierr) || !errors.Is(err, chem.ErrEngineTimeout) {
		t.Errorf("expected engine timeout, got %v", err)
	}
}

func TestInvertQueriesOnlyUnknown(t *testing.T) {
	g := NewWithT(t)
	stub := &chemtest.Stub{}
	inv := New(stub)
	target := forwardPCO2(t, stub, testFixed(), PH, 8)
	stub.Reset()

	_, err := inv.Invert(context.Background(), target, testFixed(), PH)
	g.Expect(err).NotTo(HaveOccurred())

	for _, q := range stub.Queries() {
		g.Expect(q.PH).NotTo(BeNil())
		g.Expect(q.Alkalinity).To(BeNil())
		g.Expect(*q.CarbonMolality).To(Equal(0.002))
		g.Expect(*q.PH).To(BeNumerically(">=", 0))
		g.Expect(*q.PH).To(BeNumerically("<=", 14))
	}
}

type recorder struct {
	unknowns []Unknown
	evals    []int
	errs     []error
}

func (r *recorder) ObserveInversion(u Unknown, evaluations int, _ time.Duration, err error) {
	r.unknowns = append(r.unknowns, u)
	r.evals = append(r.evals, evaluations)
	r.errs = append(r.errs, err)
}

func TestInvertBoth(t *testing.T) {
	g := NewWithT(t)
	stub := &chemtest.Stub{}
	rec := &recorder{}
	inv := New(stub, WithObserver(rec))
	fixed := testFixed()
	target := forwardPCO2(t, stub, fixed, PH, 8.1)

	ph, alk, err := inv.InvertBoth(context.Background(), target, fixed)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(ph).To(BeNumerically("~", 8.1, 0.005))
	// The stub maps alkalinity a to pH 4 + 0.2a.
	g.Expect(alk).To(BeNumerically("~", (8.1-4)/chemtest.AlkalinityPH, 1e-6))

	g.Expect(rec.unknowns).To(Equal([]Unknown{PH, Alkalinity}))
	g.Expect(rec.evals[0]).To(BeNumerically(">", 2))
	g.Expect(rec.errs).To(Equal([]error{nil, nil}))
}

func TestBracketTable(t *testing.T) {
	if b, ok := BracketFor(PH, chem.PartialPressure); !ok || b.Lo != 0 || b.Hi != 14 {
		t.Errorf("unexpected pH bracket %v", b)
	}
	if b, ok := BracketFor(Alkalinity, chem.PartialPressure); !ok || b.Lo != 0 || b.Hi != 55 {
		t.Errorf("unexpected alkalinity bracket %v", b)
	}
	if _, ok := BracketFor(PH, chem.SeafloorEquilibrium); ok {
		t.Error("no seafloor bracket is declared")
	}
}

func TestBracketToleranceMatchesWrittenDigits(t *testing.T) {
	fields := map[Unknown]phreeqc.Field{PH: phreeqc.FieldPH, Alkalinity: phreeqc.FieldAlkalinity}
	for u, field := range fields {
		b, ok := BracketFor(u, chem.PartialPressure)
		if !ok {
			t.Fatalf("no bracket for %s", u)
		}
		want := 0.5 * math.Pow(10, -float64(phreeqc.Precision(field, chem.PartialPressure)))
		if math.Abs(b.XTol-want) > 1e-3*want {
			t.Errorf("%s: XTol %g, want %g", u, b.XTol, want)
		}
	}
}

// roundedPH sees pH only to two decimals, the way requests are written.
type roundedPH struct {
	*chemtest.Stub
}

func (r roundedPH) Invoke(ctx context.Context, q chem.Query, tmpl chem.TemplateID) (*chem.Result, error) {
	if q.PH != nil {
		q.PH = chem.Float(math.Round(*q.PH*100) / 100)
	}
	return r.Stub.Invoke(ctx, q, tmpl)
}

func TestInvertPHStopsAtWrittenPrecision(t *testing.T) {
	g := NewWithT(t)
	fixed := testFixed()
	exact := &chemtest.Stub{}

	for _, ph := range []float64{8.1037, 6.5049, 12.3012} {
		stub := &chemtest.Stub{}
		inv := New(roundedPH{stub})
		// The target lies between two representable pH values, so the
		// residual never reaches zero.
		target := forwardPCO2(t, exact, fixed, PH, ph)

		got, err := inv.Invert(context.Background(), target, fixed, PH)
		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(got).To(BeNumerically("~", ph, 0.005))
		g.Expect(stub.Calls()).To(BeNumerically("<=", 20), "pH %v", ph)
	}
}

func TestWithOptionsCannotTightenBelowBracket(t *testing.T) {
	g := NewWithT(t)
	fixed := testFixed()
	target := forwardPCO2(t, &chemtest.Stub{}, fixed, PH, 8.1037)

	stub := &chemtest.Stub{}
	opts := rootfind.DefaultOptions()
	opts.XTol = 1e-15
	inv := New(roundedPH{stub}, WithOptions(opts))

	_, err := inv.Invert(context.Background(), target, fixed, PH)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(stub.Calls()).To(BeNumerically("<=", 20))
}
