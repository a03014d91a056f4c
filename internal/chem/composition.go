package chem

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// Composition maps a species identifier ("Cl", "Na", "S(6)", "C") to a
// molality in mol/kg or a dimensionless mixing ratio.
type Composition map[string]float64

// Keys returns the species in sorted order. Every aggregate over a
// Composition iterates in this order so results are reproducible.
func (c Composition) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns the values in Keys order.
func (c Composition) Values() []float64 {
	keys := c.Keys()
	vals := make([]float64, len(keys))
	for i, k := range keys {
		vals[i] = c[k]
	}
	return vals
}

// Clone returns a deep copy.
func (c Composition) Clone() Composition {
	if c == nil {
		return nil
	}
	out := make(Composition, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Total returns the sum of all values in key order.
func (c Composition) Total() float64 {
	if len(c) == 0 {
		return 0
	}
	return floats.Sum(c.Values())
}

// Scale returns a copy with every value multiplied by f.
func (c Composition) Scale(f float64) Composition {
	out := make(Composition, len(c))
	for k, v := range c {
		out[k] = v * f
	}
	return out
}

// Dot returns Σ c[s]·w[s] in key order. Species missing from w are an error.
func (c Composition) Dot(w map[string]float64) (float64, error) {
	keys := c.Keys()
	terms := make([]float64, len(keys))
	for i, k := range keys {
		wk, ok := w[k]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownSpecies, k)
		}
		terms[i] = c[k] * wk
	}
	if len(terms) == 0 {
		return 0, nil
	}
	return floats.Sum(terms), nil
}

// Validate checks that every value is finite and non-negative.
func (c Composition) Validate() error {
	for _, k := range c.Keys() {
		v := c[k]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &InvariantViolation{What: "composition[" + k + "] is not finite", Got: v}
		}
		if v < 0 {
			return &InvariantViolation{What: "composition[" + k + "] is negative", Got: v}
		}
	}
	return nil
}

// Equal reports whether both compositions hold the same keys with values
// equal within tol (absolute or relative).
func (c Composition) Equal(o Composition, tol float64) bool {
	if len(c) != len(o) {
		return false
	}
	for k, v := range c {
		ov, ok := o[k]
		if !ok {
			return false
		}
		if !scalar.EqualWithinAbsOrRel(v, ov, tol, tol) {
			return false
		}
	}
	return true
}
