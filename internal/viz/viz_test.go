package viz

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	. "github.com/onsi/gomega"

	"github.com/san-kum/kamino/internal/weathering"
)

func TestCanvasSetAndClear(t *testing.T) {
	g := NewWithT(t)
	c := NewCanvas(4, 2)
	c.Set(0, 0)
	c.Set(7, 7)
	c.Set(100, 100)
	c.Set(-1, 3)

	g.Expect(c.IsSet(0, 0)).To(BeTrue())
	g.Expect(c.IsSet(7, 7)).To(BeTrue())
	g.Expect(c.IsSet(1, 0)).To(BeFalse())
	g.Expect(c.Grid[0][0]).To(Equal(rune(0x2801)))

	c.Clear()
	g.Expect(c.IsSet(0, 0)).To(BeFalse())
	g.Expect(strings.Count(c.String(), "\n")).To(Equal(2))
}

func TestCanvasPlotDownEndpoints(t *testing.T) {
	g := NewWithT(t)
	c := NewCanvas(10, 5)
	// warm at the surface, cold at depth
	c.PlotDown([]float64{300, 280, 275}, []float64{0, 500, 3000})

	g.Expect(c.IsSet(19, 0)).To(BeTrue())
	g.Expect(c.IsSet(0, 19)).To(BeTrue())
}

func TestCanvasPlotDownIgnoresEmpty(t *testing.T) {
	g := NewWithT(t)
	c := NewCanvas(3, 3)
	c.PlotDown([]float64{math.NaN()}, []float64{1})
	g.Expect(c.String()).NotTo(ContainSubstring(string(rune(0x2801))))
}

func TestShade(t *testing.T) {
	g := NewWithT(t)
	th := ThemeOcean
	g.Expect(Shade(math.NaN(), 1, th)).To(Equal(th.Missing))
	g.Expect(Shade(-1, 1, th)).To(Equal(th.Negative[len(th.Negative)-1]))
	g.Expect(Shade(1, 1, th)).To(Equal(th.Positive[len(th.Positive)-1]))
	g.Expect(Shade(0.01, 1, th)).To(Equal(th.Positive[0]))
	g.Expect(Shade(0, 0, th)).To(Equal(th.Positive[0]))
}

func TestHeatmap(t *testing.T) {
	g := NewWithT(t)
	res := &weathering.GridResult{
		Pressures:    []float64{1.01325e7, 2.0265e7},
		Temperatures: []float64{274.15, 300.15},
		DeltaPCO2:    [][]float64{{-1, math.NaN()}, {0.5, 2}},
		Failures:     []weathering.PointError{{Err: errors.New("x")}},
	}
	out := Heatmap(res, ThemeOcean)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	g.Expect(lines).To(HaveLen(4))
	g.Expect(lines[0]).To(ContainSubstring("27.0°C"))
	g.Expect(lines[1]).To(ContainSubstring("1.0°C"))
	g.Expect(lines[1]).To(ContainSubstring("·"))
	g.Expect(out).To(ContainSubstring("1 missing"))
	g.Expect(out).To(ContainSubstring("100 .. 200 atm"))

	g.Expect(Heatmap(&weathering.GridResult{}, ThemeOcean)).To(ContainSubstring("empty"))
}

func TestCurve(t *testing.T) {
	g := NewWithT(t)
	out := Curve([]float64{1, 2, math.NaN(), 3}, "pCO2", 5, 20)
	g.Expect(out).To(ContainSubstring("pCO2"))
	g.Expect(Curve([]float64{math.NaN()}, "x", 5, 0)).To(ContainSubstring("no data"))
}

func TestSparklineAndProgressBar(t *testing.T) {
	g := NewWithT(t)
	g.Expect(Sparkline(nil, 5)).To(Equal("─────"))
	g.Expect(Sparkline([]float64{1, 2, 3}, 3)).To(ContainSubstring("█"))
	g.Expect(ProgressBar(2, 4)).To(ContainSubstring("████"))
	g.Expect(ProgressBar(-1, 4)).To(ContainSubstring("░░░░"))
}

func TestSeparatorWidth(t *testing.T) {
	g := NewWithT(t)
	for _, w := range []int{0, 5, 8, 9, 60, 81} {
		g.Expect(lipgloss.Width(Separator(w))).To(Equal(w), "width %d", w)
	}
	g.Expect(Separator(60)).To(ContainSubstring("◆"))
}

func TestThemes(t *testing.T) {
	g := NewWithT(t)
	g.Expect(GetTheme("retro").Name).To(Equal("retro"))
	g.Expect(GetTheme("nope").Name).To(Equal("ocean"))
	g.Expect(NextTheme(ThemeMinimal).Name).To(Equal("ocean"))
	g.Expect(ThemeNames()).To(Equal([]string{"ocean", "retro", "minimal"}))
}

func TestSweepModelConsumesProgress(t *testing.T) {
	g := NewWithT(t)
	ch := make(chan weathering.Progress, 3)
	canceled := false
	_, cancel := context.WithCancel(context.Background())
	m := NewSweepModel("sweep", ch, func() { canceled = true; cancel() })

	ch <- weathering.Progress{Done: 1, Total: 2, Point: weathering.Point{Pressure: 1.01325e7, Temperature: 280}}
	ch <- weathering.Progress{Done: 2, Total: 2, Err: errors.New("engine timed out")}
	close(ch)

	var model tea.Model = m
	cmd := m.wait()
	for i := 0; i < 3; i++ {
		model, cmd = model.Update(cmd())
	}
	sm := model.(SweepModel)
	done, failed := sm.Done()
	g.Expect(done).To(Equal(2))
	g.Expect(failed).To(Equal(1))
	g.Expect(sm.finished).To(BeTrue())
	g.Expect(sm.View()).To(ContainSubstring("engine timed out"))
	g.Expect(sm.View()).To(ContainSubstring("2/2"))

	model, _ = sm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	g.Expect(canceled).To(BeTrue())
	g.Expect(model.(SweepModel).Canceled()).To(BeTrue())
}
