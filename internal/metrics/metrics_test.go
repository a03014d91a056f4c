package metrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/san-kum/kamino/internal/chem"
	"github.com/san-kum/kamino/internal/chem/chemtest"
	"github.com/san-kum/kamino/internal/inversion"
)

func TestResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{context.Canceled, "canceled"},
		{&chem.EngineInvocationError{Wrapped: chem.ErrEngineTimeout}, "timeout"},
		{fmt.Errorf("x: %w", chem.ErrEngineExit), "engine"},
		{chem.ErrNoResponse, "engine"},
		{&chem.ResponseParseError{Wrapped: chem.ErrMissingColumn}, "parse"},
		{&chem.ConvergenceError{Wrapped: chem.ErrNoSignChange}, "convergence"},
		{errors.New("boom"), "other"},
	}
	for _, tt := range tests {
		if got := Result(tt.err); got != tt.want {
			t.Errorf("Result(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestCollectorObservesEngine(t *testing.T) {
	g := NewWithT(t)
	c := New()
	stub := &chemtest.Stub{}
	engine := chem.ObservedEngine{Engine: stub, Observer: c}

	q := chem.Query{
		Pressure:       101325,
		Temperature:    298.15,
		Composition:    chem.Composition{"Na": 0.4},
		PH:             chem.Float(8.1),
		CarbonMolality: chem.Float(0.002),
	}
	for i := 0; i < 3; i++ {
		_, err := engine.Invoke(context.Background(), q, chem.PartialPressure)
		g.Expect(err).NotTo(HaveOccurred())
	}
	stub.FailOn = func(chem.Query, chem.TemplateID) error { return chem.ErrEngineExit }
	_, err := engine.Invoke(context.Background(), q, chem.PartialPressure)
	g.Expect(err).To(HaveOccurred())

	total, failed := c.Invocations()
	g.Expect(total).To(Equal(int64(4)))
	g.Expect(failed).To(Equal(int64(1)))
}

func TestWriteToTextfile(t *testing.T) {
	g := NewWithT(t)
	c := New()
	c.ObserveInvocation(chem.SeafloorEquilibrium, 20*time.Millisecond, nil)
	c.ObserveInversion(inversion.PH, 12, time.Second, nil)
	c.ObserveInversion(inversion.Alkalinity, 100, time.Second, &chem.ConvergenceError{Wrapped: chem.ErrMaxIterations})
	c.ObservePoint(time.Second, nil)
	c.ObservePoint(time.Second, chem.ErrEngineTimeout)

	path := filepath.Join(t.TempDir(), "kamino.prom")
	g.Expect(c.WriteToTextfile(path)).To(Succeed())

	data, err := os.ReadFile(path)
	g.Expect(err).NotTo(HaveOccurred())
	text := string(data)
	g.Expect(text).To(ContainSubstring(`kamino_engine_invocations_total{result="ok",template="seafloor_equilibrium"} 1`))
	g.Expect(text).To(ContainSubstring(`kamino_inversions_total{result="convergence",unknown="alkalinity"} 1`))
	g.Expect(text).To(ContainSubstring(`kamino_sweep_points_total{result="timeout"} 1`))
	g.Expect(text).To(ContainSubstring(`kamino_inversion_evaluations_count{unknown="pH"} 1`))
}

func TestCollectorsAreIndependent(t *testing.T) {
	g := NewWithT(t)
	a, b := New(), New()
	a.ObserveInvocation(chem.PartialPressure, time.Millisecond, nil)

	total, _ := b.Invocations()
	g.Expect(total).To(BeZero())
	families, err := b.Registry().Gather()
	g.Expect(err).NotTo(HaveOccurred())
	for _, mf := range families {
		g.Expect(mf.GetName()).NotTo(Equal("kamino_engine_invocations_total"))
	}
}
