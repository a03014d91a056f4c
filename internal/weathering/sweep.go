package weathering

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/kamino/internal/chem"
)

// EngineFactory returns an engine for one worker. Each worker calls it
// once; engines must not share a working directory.
type EngineFactory func(worker int) (chem.Engine, error)

// Point indexes a grid cell.
type Point struct {
	PIndex, TIndex int
	Pressure       float64 // Pa
	Temperature    float64 // K
}

// PointError records a grid point that could not be evaluated.
type PointError struct {
	Point Point
	Err   error
}

func (e PointError) Error() string {
	return fmt.Sprintf("point (%g Pa, %g K): %v", e.Point.Pressure, e.Point.Temperature, e.Err)
}

func (e PointError) Unwrap() error { return e.Err }

// Progress is sent after each grid point.
type Progress struct {
	Done, Total int
	Point       Point
	Err         error
}

// PointObserver is told about every evaluated grid point.
type PointObserver interface {
	ObservePoint(elapsed time.Duration, err error)
}

// GridResult holds ΔP_CO2 per point, indexed [TIndex][PIndex]. Failed points
// are NaN and listed in Failures.
type GridResult struct {
	Pressures    []float64
	Temperatures []float64
	DeltaPCO2    [][]float64
	BaselinePCO2 [][]float64
	Failures     []PointError
}

// Missing reports whether the point at (ti, pi) failed.
func (g *GridResult) Missing(ti, pi int) bool { return math.IsNaN(g.DeltaPCO2[ti][pi]) }

// Sweep evaluates the feedback over a pressure/temperature grid with a pool
// of workers, each owning its own engine.
type Sweep struct {
	Engines EngineFactory
	Workers int
	Variant Variant
	Surface Surface

	// Retries is the number of extra attempts per point, with exponential
	// backoff between them.
	Retries int
	// InitialBackoff and MaxBackoff override the first retry interval and
	// the total retry time per point. Zero keeps the backoff defaults.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Progress, when set, must be drained until Run returns.
	Progress chan<- Progress
	Observer PointObserver
	Log      logrus.FieldLogger
}

// Run evaluates every grid point. Per-point failures are recorded, not
// returned; the error is non-nil only if the sweep itself could not run
// (an engine could not be created or ctx was canceled).
func (s *Sweep) Run(ctx context.Context, grid Grid, start State, p Perturbation) (*GridResult, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	workers := s.Workers
	if workers < 1 {
		workers = 1
	}
	log := s.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	res := &GridResult{
		Pressures:    append([]float64(nil), grid.Pressures...),
		Temperatures: append([]float64(nil), grid.Temperatures...),
		DeltaPCO2:    nanMatrix(len(grid.Temperatures), len(grid.Pressures)),
		BaselinePCO2: nanMatrix(len(grid.Temperatures), len(grid.Pressures)),
	}
	total := grid.Size()

	jobs := make(chan Point)
	var (
		mu   sync.Mutex
		done int
	)
	record := func(pt Point, out Outcome, err error) {
		mu.Lock()
		defer mu.Unlock()
		done++
		if err != nil {
			res.Failures = append(res.Failures, PointError{Point: pt, Err: err})
		} else {
			res.DeltaPCO2[pt.TIndex][pt.PIndex] = out.DeltaPCO2()
			res.BaselinePCO2[pt.TIndex][pt.PIndex] = out.BaselinePCO2
		}
		if s.Progress != nil {
			select {
			case s.Progress <- Progress{Done: done, Total: total, Point: pt, Err: err}:
			case <-ctx.Done():
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers + 1)

	g.Go(func() error {
		defer close(jobs)
		for ti, t := range grid.Temperatures {
			for pi, pr := range grid.Pressures {
				select {
				case jobs <- Point{PIndex: pi, TIndex: ti, Pressure: pr, Temperature: t}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			engine, err := s.Engines(w)
			if err != nil {
				return fmt.Errorf("weathering: engine for worker %d: %w", w, err)
			}
			fb := Feedback{Iterator: Iterator{Engine: engine, Variant: s.Variant}, Surface: s.Surface}
			wlog := log.WithField("worker", w)
			for pt := range jobs {
				begin := time.Now()
				out, err := s.evaluate(gctx, fb, pt, start, p, wlog)
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if s.Observer != nil {
					s.Observer.ObservePoint(time.Since(begin), err)
				}
				if err != nil {
					wlog.WithError(err).WithFields(logrus.Fields{
						"pressure":    pt.Pressure,
						"temperature": pt.Temperature,
					}).Warn("grid point failed")
				}
				record(pt, out, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}
	log.WithFields(logrus.Fields{"points": total, "failed": len(res.Failures)}).Info("sweep finished")
	return res, nil
}

func (s *Sweep) evaluate(ctx context.Context, fb Feedback, pt Point, start State, p Perturbation, log logrus.FieldLogger) (Outcome, error) {
	if s.Retries <= 0 {
		return fb.Evaluate(ctx, pt.Pressure, pt.Temperature, start, p)
	}

	var out Outcome
	op := func() error {
		var err error
		out, err = fb.Evaluate(ctx, pt.Pressure, pt.Temperature, start, p)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	eb := backoff.NewExponentialBackOff()
	if s.InitialBackoff > 0 {
		eb.InitialInterval = s.InitialBackoff
	}
	if s.MaxBackoff > 0 {
		eb.MaxElapsedTime = s.MaxBackoff
	}
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(s.Retries)), ctx)
	err := backoff.RetryNotify(op, b, func(err error, d time.Duration) {
		log.WithError(err).WithField("retry_in", d).Debug("retrying grid point")
	})
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	return out, err
}

func nanMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
		for j := range m[i] {
			m[i][j] = math.NaN()
		}
	}
	return m
}
