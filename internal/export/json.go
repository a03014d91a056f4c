package export

import (
	"encoding/json"
	"io"
	"math"

	"github.com/san-kum/kamino/internal/weathering"
)

// GridJSON is the JSON form of a sweep result. Missing points are null.
type GridJSON struct {
	Pressures    []float64    `json:"pressures_pa"`
	Temperatures []float64    `json:"temperatures_k"`
	DeltaPCO2    [][]*float64 `json:"delta_pco2_pa"`
	BaselinePCO2 [][]*float64 `json:"baseline_pco2_pa"`
	Failures     []string     `json:"failures,omitempty"`
}

func NewGridJSON(res *weathering.GridResult) GridJSON {
	out := GridJSON{
		Pressures:    res.Pressures,
		Temperatures: res.Temperatures,
		DeltaPCO2:    nullable(res.DeltaPCO2),
		BaselinePCO2: nullable(res.BaselinePCO2),
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, f.Error())
	}
	return out
}

func WriteJSON(w io.Writer, res *weathering.GridResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewGridJSON(res))
}

func nullable(m [][]float64) [][]*float64 {
	out := make([][]*float64, len(m))
	for i, row := range m {
		out[i] = make([]*float64, len(row))
		for j, v := range row {
			if !math.IsNaN(v) {
				v := v
				out[i][j] = &v
			}
		}
	}
	return out
}
