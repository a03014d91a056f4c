package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/san-kum/kamino/internal/units"
	"github.com/san-kum/kamino/internal/viz"
	"github.com/san-kum/kamino/internal/weathering"
)

// CanvasToSVG converts a Braille canvas to SVG, one circle per dot.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.Width) * scale * 2
	height := float64(canvas.Height) * scale * 4

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#00ff00">
`, width, height, width, height))

	dotRadius := scale * 0.4
	for y := 0; y < canvas.Height*4; y++ {
		for x := 0; x < canvas.Width*2; x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			cx := float64(x)*scale + scale/2
			cy := float64(y)*scale + scale/2
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>
`, cx, cy, dotRadius))
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// HeatmapOptions controls HeatmapSVG.
type HeatmapOptions struct {
	CellWidth, CellHeight int
	Theme                 viz.Theme
	Title                 string
}

const (
	marginLeft   = 80
	marginTop    = 30
	marginBottom = 40
)

// HeatmapSVG writes ΔP_CO2 over the seafloor grid as an SVG image. Rows are
// temperatures, hottest on top; missing points are drawn in the theme's
// Missing color and carry a tooltip saying so.
func HeatmapSVG(w io.Writer, res *weathering.GridResult, opts HeatmapOptions) error {
	if res == nil || len(res.Pressures) == 0 || len(res.Temperatures) == 0 {
		return fmt.Errorf("export: empty grid")
	}
	if opts.CellWidth <= 0 {
		opts.CellWidth = 10
	}
	if opts.CellHeight <= 0 {
		opts.CellHeight = 8
	}
	if opts.Theme.Name == "" {
		opts.Theme = viz.ThemeOcean
	}

	np, nt := len(res.Pressures), len(res.Temperatures)
	width := marginLeft + np*opts.CellWidth + 20
	height := marginTop + nt*opts.CellHeight + marginBottom

	scale := 0.0
	for _, row := range res.DeltaPCO2 {
		for _, v := range row {
			if !math.IsNaN(v) {
				scale = math.Max(scale, math.Abs(v))
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="monospace" font-size="10">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))
	if opts.Title != "" {
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="18" fill="%s">%s</text>
`, marginLeft, opts.Theme.Text, escape(opts.Title)))
	}

	for ti := 0; ti < nt; ti++ {
		y := marginTop + (nt-1-ti)*opts.CellHeight
		for pi := 0; pi < np; pi++ {
			v := res.DeltaPCO2[ti][pi]
			x := marginLeft + pi*opts.CellWidth
			tip := fmt.Sprintf("%.4g atm, %.2f°C: ", units.PascalToAtm(res.Pressures[pi]), units.KelvinToCelsius(res.Temperatures[ti]))
			if math.IsNaN(v) {
				tip += "missing"
			} else {
				tip += fmt.Sprintf("ΔP_CO2 %.4g Pa", v)
			}
			sb.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="%s"><title>%s</title></rect>
`, x, y, opts.CellWidth, opts.CellHeight, viz.Shade(v, scale, opts.Theme), escape(tip)))
		}
	}

	bottom := marginTop + nt*opts.CellHeight
	sb.WriteString(fmt.Sprintf(`<text x="4" y="%d" fill="%s">%.1f°C</text>
<text x="4" y="%d" fill="%s">%.1f°C</text>
<text x="%d" y="%d" fill="%s">%.4g atm</text>
<text x="%d" y="%d" fill="%s" text-anchor="end">%.4g atm</text>
`,
		marginTop+opts.CellHeight, opts.Theme.Text, units.KelvinToCelsius(res.Temperatures[nt-1]),
		bottom, opts.Theme.Text, units.KelvinToCelsius(res.Temperatures[0]),
		marginLeft, bottom+15, opts.Theme.Text, units.PascalToAtm(res.Pressures[0]),
		marginLeft+np*opts.CellWidth, bottom+15, opts.Theme.Text, units.PascalToAtm(res.Pressures[np-1])))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" fill="%s">max |ΔP_CO2| %.3g Pa</text>
`, marginLeft, bottom+32, opts.Theme.Muted, scale))

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// CurveSVG draws (xs[i], ys[i]) as a polyline scaled to the data range.
// With invertY the y axis grows downward, for depth profiles.
func CurveSVG(xs, ys []float64, width, height int, strokeColor string, invertY bool) string {
	n := min(len(xs), len(ys))
	if n < 2 {
		return ""
	}

	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := 0; i < n; i++ {
		minX, maxX = math.Min(minX, xs[i]), math.Max(maxX, xs[i])
		minY, maxY = math.Min(minY, ys[i]), math.Max(maxY, ys[i])
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i := 0; i < n; i++ {
		x := (xs[i] - minX) / rangeX * float64(width)
		y := (ys[i] - minY) / rangeY * float64(height)
		if !invertY {
			y = float64(height) - y
		}
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string { return escaper.Replace(s) }
