// Package rootfind implements Brent's bracketed root finder for expensive,
// fallible scalar functions.
package rootfind

import (
	"context"
	"math"

	"github.com/san-kum/kamino/internal/chem"
)

// Func is a scalar function whose evaluation may fail or be canceled.
type Func func(ctx context.Context, x float64) (float64, error)

// Options controls termination.
type Options struct {
	// XTol and RTol bound the bracket width: the search stops once the
	// half-width is below (XTol + RTol·|x|)/2.
	XTol float64
	RTol float64
	// FTol, when positive, also accepts any x with |f(x)| <= FTol.
	FTol    float64
	MaxIter int
	// Quantity names the unknown in ConvergenceError.
	Quantity string
}

// DefaultOptions returns the tolerances used for every inversion.
func DefaultOptions() Options {
	return Options{
		XTol:    2e-12,
		RTol:    4 * epsilon,
		MaxIter: 100,
	}
}

const epsilon = 2.220446049250313e-16

// Result is a located root.
type Result struct {
	Root        float64
	Value       float64
	Iterations  int
	Evaluations int
}

// Brent finds x in [lo, hi] with f(x) = 0. f(lo) and f(hi) must differ in
// sign. Errors from f are returned unchanged; failures of the search itself
// are *chem.ConvergenceError.
func Brent(ctx context.Context, f Func, lo, hi float64, opts Options) (Result, error) {
	def := DefaultOptions()
	if opts.XTol <= 0 {
		opts.XTol = def.XTol
	}
	if opts.RTol <= 0 {
		opts.RTol = def.RTol
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = def.MaxIter
	}

	var res Result
	eval := func(x float64) (float64, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		res.Evaluations++
		return f(ctx, x)
	}
	fail := func(flo, fhi float64, err error) error {
		return &chem.ConvergenceError{
			Quantity:    opts.Quantity,
			Lo:          lo,
			Hi:          hi,
			FLo:         flo,
			FHi:         fhi,
			Iterations:  res.Iterations,
			Evaluations: res.Evaluations,
			Wrapped:     err,
		}
	}

	xpre, xcur := lo, hi
	fpre, err := eval(xpre)
	if err != nil {
		return res, err
	}
	fcur, err := eval(xcur)
	if err != nil {
		return res, err
	}
	if fpre == 0 {
		res.Root, res.Value = xpre, 0
		return res, nil
	}
	if fcur == 0 {
		res.Root, res.Value = xcur, 0
		return res, nil
	}
	if math.Signbit(fpre) == math.Signbit(fcur) {
		return res, fail(fpre, fcur, chem.ErrNoSignChange)
	}
	flo, fhi := fpre, fcur

	var xblk, fblk, spre, scur float64
	for res.Iterations = 1; res.Iterations <= opts.MaxIter; res.Iterations++ {
		if fpre != 0 && fcur != 0 && math.Signbit(fpre) != math.Signbit(fcur) {
			xblk, fblk = xpre, fpre
			spre = xcur - xpre
			scur = spre
		}
		if math.Abs(fblk) < math.Abs(fcur) {
			xpre, xcur, xblk = xcur, xblk, xcur
			fpre, fcur, fblk = fcur, fblk, fcur
		}

		delta := (opts.XTol + opts.RTol*math.Abs(xcur)) / 2
		sbis := (xblk - xcur) / 2
		if fcur == 0 || math.Abs(sbis) < delta || (opts.FTol > 0 && math.Abs(fcur) <= opts.FTol) {
			res.Root, res.Value = xcur, fcur
			return res, nil
		}

		if math.Abs(spre) > delta && math.Abs(fcur) < math.Abs(fpre) {
			var stry float64
			if xpre == xblk {
				// secant
				stry = -fcur * (xcur - xpre) / (fcur - fpre)
			} else {
				// inverse quadratic
				dpre := (fpre - fcur) / (xpre - xcur)
				dblk := (fblk - fcur) / (xblk - xcur)
				stry = -fcur * (fblk*dblk - fpre*dpre) / (dblk * dpre * (fblk - fpre))
			}
			if 2*math.Abs(stry) < math.Min(math.Abs(spre), 3*math.Abs(sbis)-delta) {
				spre, scur = scur, stry
			} else {
				spre, scur = sbis, sbis
			}
		} else {
			spre, scur = sbis, sbis
		}

		xpre, fpre = xcur, fcur
		if math.Abs(scur) > delta {
			xcur += scur
		} else if sbis > 0 {
			xcur += delta
		} else {
			xcur -= delta
		}
		if fcur, err = eval(xcur); err != nil {
			return res, err
		}
	}
	res.Iterations = opts.MaxIter
	res.Root, res.Value = xcur, fcur
	return res, fail(flo, fhi, chem.ErrMaxIterations)
}
