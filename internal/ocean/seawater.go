package ocean

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/san-kum/kamino/internal/chem"
)

// DefaultSeawaterRatios returns the major-ion proportions of modern
// seawater, in mol/kg at unit salinity.
func DefaultSeawaterRatios() chem.Composition {
	return chem.Composition{
		"Cl":   0.546,
		"Na":   0.469,
		"Mg":   0.0528,
		"S(6)": 0.0282,
		"Ca":   0.0103,
		"K":    0.0102,
	}
}

// ReadSeawaterTable reads an Element,Ratio table. A header row is skipped
// when its second field is not numeric.
func ReadSeawaterTable(r io.Reader) (chem.Composition, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	out := make(chem.Composition)
	for n := 1; ; n++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ocean: seawater table: %w", err)
		}
		element := strings.TrimSpace(rec[0])
		ratio, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			if n == 1 {
				continue
			}
			return nil, fmt.Errorf("ocean: seawater table record %d: %w", n, err)
		}
		if element == "" {
			return nil, fmt.Errorf("ocean: seawater table record %d: empty element", n)
		}
		if _, dup := out[element]; dup {
			return nil, fmt.Errorf("ocean: seawater table record %d: duplicate element %q", n, element)
		}
		out[element] = ratio
	}
	if len(out) == 0 {
		return nil, errors.New("ocean: seawater table is empty")
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("ocean: seawater table: %w", err)
	}
	return out, nil
}
