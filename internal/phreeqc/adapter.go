package phreeqc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/kamino/internal/chem"
)

const (
	DefaultRequestName  = "input"
	DefaultResponseName = "output.txt"
	DefaultTimeout      = 2 * time.Minute

	// TotalsUnitSuffix is appended to element names in -totals headings.
	TotalsUnitSuffix = "(mol/kgw)"
)

// Config locates the engine and its working directory.
type Config struct {
	Binary          string
	Database        string
	KineticDatabase string
	// TemplateDir overrides the built-in templates when non-empty.
	TemplateDir string
	WorkDir     string
	Timeout     time.Duration

	RequestName  string
	ResponseName string
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RequestName == "" {
		c.RequestName = DefaultRequestName
	}
	if c.ResponseName == "" {
		c.ResponseName = DefaultResponseName
	}
}

// Adapter drives the engine through request and response files in one
// working directory. Invocations sharing a working directory are serialized,
// whichever Adapter issues them.
type Adapter struct {
	cfg       Config
	templates map[chem.TemplateID]*Template
	runner    Runner
	log       logrus.FieldLogger

	mu *sync.Mutex
}

var dirLocks = struct {
	sync.Mutex
	m map[string]*sync.Mutex
}{m: make(map[string]*sync.Mutex)}

// dirLock returns the process-wide lock for the absolute path of dir.
func dirLock(dir string) (*sync.Mutex, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("phreeqc: work dir path: %w", err)
	}
	abs = filepath.Clean(abs)
	dirLocks.Lock()
	defer dirLocks.Unlock()
	mu, ok := dirLocks.m[abs]
	if !ok {
		mu = &sync.Mutex{}
		dirLocks.m[abs] = mu
	}
	return mu, nil
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithRunner replaces the process runner.
func WithRunner(r Runner) Option {
	return func(a *Adapter) { a.runner = r }
}

// WithLogger sets the logger. The default discards everything below warn.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Adapter) { a.log = l }
}

// New validates cfg, loads templates and prepares the working directory.
func New(cfg Config, opts ...Option) (*Adapter, error) {
	cfg.defaults()
	if cfg.Binary == "" {
		return nil, errors.New("phreeqc: engine binary not configured")
	}
	if cfg.Database == "" {
		return nil, errors.New("phreeqc: database not configured")
	}
	if cfg.WorkDir == "" {
		return nil, errors.New("phreeqc: working directory not configured")
	}
	var err error
	if cfg.Binary, err = absIfPath(cfg.Binary); err != nil {
		return nil, err
	}
	if cfg.Database, err = filepath.Abs(cfg.Database); err != nil {
		return nil, fmt.Errorf("phreeqc: database path: %w", err)
	}
	if cfg.KineticDatabase != "" {
		if cfg.KineticDatabase, err = filepath.Abs(cfg.KineticDatabase); err != nil {
			return nil, fmt.Errorf("phreeqc: kinetic database path: %w", err)
		}
	}

	templates, err := LoadTemplates(cfg.TemplateDir)
	if err != nil {
		return nil, err
	}
	mu, err := dirLock(cfg.WorkDir)
	if err != nil {
		return nil, err
	}

	a := &Adapter{
		cfg:       cfg,
		templates: templates,
		runner:    ExecRunner{},
		log:       logrus.StandardLogger(),
		mu:        mu,
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := os.MkdirAll(cfg.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("phreeqc: create work dir: %w", err)
	}
	return a, nil
}

// absIfPath leaves bare command names for PATH lookup.
func absIfPath(bin string) (string, error) {
	if filepath.Base(bin) == bin {
		return bin, nil
	}
	abs, err := filepath.Abs(bin)
	if err != nil {
		return "", fmt.Errorf("phreeqc: binary path: %w", err)
	}
	return abs, nil
}

// Fork returns an adapter with the same engine and templates that works in
// dir. Forked adapters run in parallel with the original unless dir is the
// same directory, in which case they share its lock.
func (a *Adapter) Fork(dir string) (*Adapter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("phreeqc: create work dir: %w", err)
	}
	mu, err := dirLock(dir)
	if err != nil {
		return nil, err
	}
	cfg := a.cfg
	cfg.WorkDir = dir
	return &Adapter{
		cfg:       cfg,
		templates: a.templates,
		runner:    a.runner,
		log:       a.log,
		mu:        mu,
	}, nil
}

// ForkWorker forks into a fresh directory under the adapter's working
// directory, unique per call so that concurrent runs never share files.
func (a *Adapter) ForkWorker(worker int) (*Adapter, error) {
	return a.Fork(filepath.Join(a.cfg.WorkDir, fmt.Sprintf("worker-%d-%s", worker, uuid.NewString())))
}

// WorkDir returns the adapter's working directory.
func (a *Adapter) WorkDir() string { return a.cfg.WorkDir }

// Invoke renders q into tmpl, runs the engine and parses the response.
func (a *Adapter) Invoke(ctx context.Context, q chem.Query, tmpl chem.TemplateID) (*chem.Result, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("phreeqc: %w", err)
	}
	t, ok := a.templates[tmpl]
	if !ok {
		return nil, fmt.Errorf("phreeqc: no template for %s", tmpl)
	}
	database := a.cfg.Database
	if t.Layout.Kinetic {
		if a.cfg.KineticDatabase == "" {
			return nil, fmt.Errorf("phreeqc: %s requires a kinetic database", tmpl)
		}
		database = a.cfg.KineticDatabase
	}
	doc, err := t.Render(q, database)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	log := a.log.WithFields(logrus.Fields{"template": tmpl.String(), "workdir": a.cfg.WorkDir})

	table, err := a.exchange(ctx, tmpl, doc)
	if err != nil {
		log.WithError(err).WithField("duration", time.Since(start)).Debug("engine invocation failed")
		return nil, err
	}
	res, err := extract(table, q, t)
	if err != nil {
		log.WithError(err).Debug("engine response rejected")
		return nil, err
	}
	log.WithField("duration", time.Since(start)).Debug("engine invocation")
	return res, nil
}

// exchange writes the request, runs the engine and reads the response. The
// caller holds the working directory lock.
func (a *Adapter) exchange(ctx context.Context, tmpl chem.TemplateID, doc string) (*Table, error) {
	dir := a.cfg.WorkDir
	fail := func(err error) error {
		return &chem.EngineInvocationError{Template: tmpl, WorkDir: dir, Wrapped: err}
	}

	reqPath := filepath.Join(dir, a.cfg.RequestName)
	respPath := filepath.Join(dir, a.cfg.ResponseName)
	if err := os.Remove(respPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fail(fmt.Errorf("remove stale response: %w", err))
	}
	if err := os.WriteFile(reqPath, []byte(doc), 0644); err != nil {
		return nil, fail(fmt.Errorf("write request: %w", err))
	}

	runCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	if err := a.runner.Run(runCtx, dir, a.cfg.Binary, a.cfg.RequestName); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fail(fmt.Errorf("%w after %s", chem.ErrEngineTimeout, a.cfg.Timeout))
		}
		if ctx.Err() != nil {
			return nil, fail(ctx.Err())
		}
		return nil, fail(fmt.Errorf("%w: %w", chem.ErrEngineExit, err))
	}

	f, err := os.Open(respPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fail(chem.ErrNoResponse)
		}
		return nil, fail(err)
	}
	defer f.Close()
	return ParseTable(f, respPath)
}

func extract(table *Table, q chem.Query, t *Template) (*chem.Result, error) {
	row := t.Layout.Row
	res := &chem.Result{SaturationIndices: make(map[string]float64, len(q.Minerals))}

	if t.ID == chem.PartialPressure {
		siCO2, err := table.Float(row, "si_CO2(g)")
		if err != nil {
			return nil, err
		}
		siH2O, err := table.Float(row, "si_H2O(g)")
		if err != nil {
			return nil, err
		}
		res.PCO2 = chem.PartialPressureFromSI(siCO2)
		res.PH2O = chem.PartialPressureFromSI(siH2O)
		res.Composition = q.Composition.Clone()
		if q.Alkalinity != nil {
			res.Alkalinity = *q.Alkalinity
		}
		if q.CarbonMolality != nil {
			res.CarbonMolality = *q.CarbonMolality
		}
	} else {
		res.Composition = make(chem.Composition, len(q.Composition))
		for _, k := range q.Composition.Keys() {
			v, err := table.Float(row, totalColumn(table, k))
			if err != nil {
				return nil, err
			}
			res.Composition[k] = v
		}
		var err error
		if res.Alkalinity, err = table.Float(row, "Alkalinity"); err != nil {
			return nil, err
		}
		if res.CarbonMolality, err = table.Float(row, totalColumn(table, "C")); err != nil {
			return nil, err
		}
	}

	for _, m := range q.Minerals {
		si, err := table.Float(row, "si_"+m)
		if err != nil {
			return nil, err
		}
		res.SaturationIndices[m] = si
	}
	return res, nil
}

// totalColumn names the -totals column for element. The engine suffixes
// totals with their unit; a bare heading is accepted when a USER_PUNCH
// block emits one instead.
func totalColumn(table *Table, element string) string {
	name := element + TotalsUnitSuffix
	if !table.HasColumn(name) && table.HasColumn(element) {
		return element
	}
	return name
}
