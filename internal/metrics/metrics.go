// Package metrics counts engine invocations, inversions and grid points on a
// private Prometheus registry. A run's metrics are written once at exit in
// the node_exporter textfile format.
package metrics

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/san-kum/kamino/internal/chem"
	"github.com/san-kum/kamino/internal/inversion"
)

const namespace = "kamino"

var (
	durationBuckets   = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 60}
	evaluationBuckets = []float64{5, 10, 20, 40, 60, 100}
)

// Collector implements chem.Observer, inversion.Observer and
// weathering.PointObserver.
type Collector struct {
	registry *prometheus.Registry

	invocations      *prometheus.CounterVec
	invocationTime   *prometheus.HistogramVec
	inversions       *prometheus.CounterVec
	inversionEvals   *prometheus.HistogramVec
	points           *prometheus.CounterVec
	pointTime        prometheus.Histogram
	invocationsTotal atomic.Int64
	failuresTotal    atomic.Int64
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Collector{
		registry: reg,
		invocations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_invocations_total",
			Help:      "Engine invocations by template and result",
		}, []string{"template", "result"}),
		invocationTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_invocation_duration_seconds",
			Help:      "Wall time of one engine invocation",
			Buckets:   durationBuckets,
		}, []string{"template"}),
		inversions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inversions_total",
			Help:      "Inversions by unknown and result",
		}, []string{"unknown", "result"}),
		inversionEvals: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inversion_evaluations",
			Help:      "Engine evaluations per inversion",
			Buckets:   evaluationBuckets,
		}, []string{"unknown"}),
		points: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_points_total",
			Help:      "Grid points evaluated by result",
		}, []string{"result"}),
		pointTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_point_duration_seconds",
			Help:      "Wall time of one grid point including retries",
			Buckets:   durationBuckets,
		}),
	}
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) ObserveInvocation(tmpl chem.TemplateID, elapsed time.Duration, err error) {
	c.invocationsTotal.Add(1)
	if err != nil {
		c.failuresTotal.Add(1)
	}
	c.invocations.WithLabelValues(tmpl.String(), Result(err)).Inc()
	c.invocationTime.WithLabelValues(tmpl.String()).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveInversion(u inversion.Unknown, evaluations int, elapsed time.Duration, err error) {
	c.inversions.WithLabelValues(u.String(), Result(err)).Inc()
	c.inversionEvals.WithLabelValues(u.String()).Observe(float64(evaluations))
}

func (c *Collector) ObservePoint(elapsed time.Duration, err error) {
	c.points.WithLabelValues(Result(err)).Inc()
	c.pointTime.Observe(elapsed.Seconds())
}

// Invocations returns the number of engine calls seen and how many failed.
func (c *Collector) Invocations() (total, failed int64) {
	return c.invocationsTotal.Load(), c.failuresTotal.Load()
}

// WriteToTextfile writes the registry to path atomically.
func (c *Collector) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// Result maps an error onto a low-cardinality label value.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, chem.ErrEngineTimeout):
		return "timeout"
	case errors.Is(err, chem.ErrEngineExit), errors.Is(err, chem.ErrNoResponse):
		return "engine"
	case errors.Is(err, chem.ErrMissingColumn), errors.Is(err, chem.ErrMissingRow), errors.Is(err, chem.ErrBadValue):
		return "parse"
	case errors.Is(err, chem.ErrNoSignChange), errors.Is(err, chem.ErrMaxIterations):
		return "convergence"
	default:
		return "other"
	}
}
