package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/kamino/internal/units"
	"github.com/san-kum/kamino/internal/weathering"
)

// Curve plots a series with asciigraph. NaN values are skipped.
func Curve(values []float64, caption string, height, width int) string {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return Subtle.Render("(no data)")
	}
	opts := []asciigraph.Option{asciigraph.Height(height), asciigraph.Caption(caption)}
	if width > 0 {
		opts = append(opts, asciigraph.Width(width))
	}
	return asciigraph.Plot(finite, opts...)
}

// Profile draws temperature (x) against depth (y, downward) on a Braille
// canvas with axis labels.
func Profile(depths, temps []float64, width, height int) string {
	c := NewCanvas(width, height)
	c.PlotDown(temps, depths)
	tlo, thi, _ := finiteRange(temps)
	dlo, dhi, _ := finiteRange(depths)

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %.1f .. %.1f K\n", MetricLabel.Render("temperature"), tlo, thi)
	b.WriteString(c.String())
	fmt.Fprintf(&b, "%s  %.0f .. %.0f m\n", MetricLabel.Render("depth"), dlo, dhi)
	return b.String()
}

// Heatmap renders ΔP_CO2 with one colored cell per grid point. Rows are
// seafloor temperatures, hottest on top; columns are seafloor pressures.
// Blue cells drew CO2 down, red cells released it.
func Heatmap(res *weathering.GridResult, theme Theme) string {
	if res == nil || len(res.Temperatures) == 0 || len(res.Pressures) == 0 {
		return Subtle.Render("(empty grid)")
	}
	scale := 0.0
	for _, row := range res.DeltaPCO2 {
		for _, v := range row {
			if !math.IsNaN(v) {
				scale = math.Max(scale, math.Abs(v))
			}
		}
	}

	var b strings.Builder
	for ti := len(res.Temperatures) - 1; ti >= 0; ti-- {
		label := fmt.Sprintf("%7.1f°C ", units.KelvinToCelsius(res.Temperatures[ti]))
		b.WriteString(MetricLabel.Width(10).Render(label))
		for pi := range res.Pressures {
			b.WriteString(cell(res.DeltaPCO2[ti][pi], scale, theme))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%10s %.3g .. %.3g atm\n", "",
		units.PascalToAtm(res.Pressures[0]), units.PascalToAtm(res.Pressures[len(res.Pressures)-1]))
	fmt.Fprintf(&b, "%10s |ΔP_CO2| max %.3g Pa, %d missing\n", "", scale, len(res.Failures))
	return b.String()
}

// Shade returns the color for v given the largest magnitude on the map.
func Shade(v, scale float64, theme Theme) lipgloss.Color {
	if math.IsNaN(v) {
		return theme.Missing
	}
	ramp := theme.Positive
	if v < 0 {
		ramp = theme.Negative
	}
	if scale == 0 {
		return ramp[0]
	}
	idx := int(math.Abs(v) / scale * float64(len(ramp)))
	return ramp[min(idx, len(ramp)-1)]
}

func cell(v, scale float64, theme Theme) string {
	glyph := "█"
	if math.IsNaN(v) {
		glyph = "·"
	}
	return lipgloss.NewStyle().Foreground(Shade(v, scale, theme)).Render(glyph)
}
