package weathering

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/kamino/internal/chem"
	"github.com/san-kum/kamino/internal/chem/chemtest"
	"github.com/san-kum/kamino/internal/units"
)

type countingObserver struct {
	mu     sync.Mutex
	points int
	failed int
}

func (o *countingObserver) ObservePoint(_ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.points++
	if err != nil {
		o.failed++
	}
}

var _ = Describe("Sweep", func() {
	var (
		grid    Grid
		stubs   []*chemtest.Stub
		mu      sync.Mutex
		factory EngineFactory
		pert    Perturbation
		surface Surface
	)

	BeforeEach(func() {
		grid = Grid{
			Pressures:    PressureGrid(100, 2000, 4),
			Temperatures: TemperatureGrid(6),
		}
		stubs = nil
		factory = func(worker int) (chem.Engine, error) {
			mu.Lock()
			defer mu.Unlock()
			s := &chemtest.Stub{}
			stubs = append(stubs, s)
			return s, nil
		}
		pert = Perturbation{Minerals: []string{"Calcite"}, DeltaT: 1}
		surface = Surface{Pressure: units.EarthAtm, Temperature: 293}
	})

	It("fills every grid point with the serial feedback value", func() {
		s := &Sweep{Engines: factory, Workers: 3, Surface: surface}
		res, err := s.Run(context.Background(), grid, seawater(), pert)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Failures).To(BeEmpty())
		Expect(stubs).To(HaveLen(3))

		fb := Feedback{Iterator: Iterator{Engine: &chemtest.Stub{}}, Surface: surface}
		for ti, t := range grid.Temperatures {
			for pi, p := range grid.Pressures {
				want, err := fb.Evaluate(context.Background(), p, t, seawater(), pert)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.DeltaPCO2[ti][pi]).To(Equal(want.DeltaPCO2()))
				Expect(res.BaselinePCO2[ti][pi]).To(Equal(want.BaselinePCO2))
			}
		}
	})

	It("records failed points as missing without aborting", func() {
		badT := grid.Temperatures[2]
		factory = func(worker int) (chem.Engine, error) {
			return &chemtest.Stub{FailOn: func(q chem.Query, tmpl chem.TemplateID) error {
				if tmpl.IsSeafloor() && q.Temperature == badT {
					return &chem.EngineInvocationError{Template: tmpl, Wrapped: chem.ErrEngineExit}
				}
				return nil
			}}, nil
		}
		obs := &countingObserver{}
		s := &Sweep{Engines: factory, Workers: 2, Surface: surface, Observer: obs}
		res, err := s.Run(context.Background(), grid, seawater(), pert)
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Failures).To(HaveLen(len(grid.Pressures)))
		for _, f := range res.Failures {
			Expect(f.Point.Temperature).To(Equal(badT))
			Expect(errors.Is(f, chem.ErrEngineExit)).To(BeTrue())
		}
		for pi := range grid.Pressures {
			Expect(res.Missing(2, pi)).To(BeTrue())
			Expect(res.Missing(0, pi)).To(BeFalse())
		}
		Expect(obs.points).To(Equal(grid.Size()))
		Expect(obs.failed).To(Equal(len(grid.Pressures)))
	})

	It("retries transient failures", func() {
		var calls sync.Map
		factory = func(worker int) (chem.Engine, error) {
			return &chemtest.Stub{FailOn: func(q chem.Query, tmpl chem.TemplateID) error {
				if !tmpl.IsSeafloor() {
					return nil
				}
				key := fmt.Sprintf("%g/%g", q.Pressure, q.Temperature)
				n, _ := calls.LoadOrStore(key, new(int))
				*n.(*int)++
				if *n.(*int) == 1 {
					return &chem.EngineInvocationError{Template: tmpl, Wrapped: chem.ErrEngineTimeout}
				}
				return nil
			}}, nil
		}
		s := &Sweep{Engines: factory, Workers: 1, Surface: surface, Retries: 2, InitialBackoff: time.Millisecond}
		res, err := s.Run(context.Background(), Grid{
			Pressures:    grid.Pressures[:1],
			Temperatures: grid.Temperatures[:2],
		}, seawater(), pert)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Failures).To(BeEmpty())
		Expect(math.IsNaN(res.DeltaPCO2[1][0])).To(BeFalse())
	})

	It("reports progress for every point", func() {
		progress := make(chan Progress, grid.Size())
		s := &Sweep{Engines: factory, Workers: 2, Surface: surface, Progress: progress}
		_, err := s.Run(context.Background(), grid, seawater(), pert)
		Expect(err).NotTo(HaveOccurred())
		close(progress)

		var last Progress
		n := 0
		for p := range progress {
			n++
			last = p
		}
		Expect(n).To(Equal(grid.Size()))
		Expect(last.Done).To(Equal(grid.Size()))
		Expect(last.Total).To(Equal(grid.Size()))
	})

	It("fails when an engine cannot be created", func() {
		factory = func(worker int) (chem.Engine, error) { return nil, errors.New("no work dir") }
		s := &Sweep{Engines: factory, Workers: 2, Surface: surface}
		_, err := s.Run(context.Background(), grid, seawater(), pert)
		Expect(err).To(MatchError(ContainSubstring("no work dir")))
	})

	It("rejects an empty grid", func() {
		s := &Sweep{Engines: factory, Surface: surface}
		_, err := s.Run(context.Background(), Grid{}, seawater(), pert)
		Expect(err).To(HaveOccurred())
	})
})
