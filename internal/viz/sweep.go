package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/kamino/internal/units"
	"github.com/san-kum/kamino/internal/weathering"
)

type (
	progressMsg weathering.Progress
	doneMsg     struct{}
	TickMsg     time.Time
)

// SweepModel shows the progress of a running sweep. The caller closes the
// progress channel once Sweep.Run has returned.
type SweepModel struct {
	title    string
	progress <-chan weathering.Progress
	cancel   context.CancelFunc

	done, total, failed int
	last                weathering.Point
	lastErr             error
	started             time.Time
	frame               int
	canceling           bool
	finished            bool
	theme               Theme
}

func NewSweepModel(title string, progress <-chan weathering.Progress, cancel context.CancelFunc) SweepModel {
	return SweepModel{
		title:    title,
		progress: progress,
		cancel:   cancel,
		started:  time.Now(),
		theme:    CurrentTheme,
	}
}

func (m SweepModel) Init() tea.Cmd {
	return tea.Batch(m.wait(), tick())
}

func (m SweepModel) wait() tea.Cmd {
	ch := m.progress
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return doneMsg{}
		}
		return progressMsg(p)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/10, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m SweepModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.canceling && m.cancel != nil {
				m.cancel()
			}
			m.canceling = true
		case "t":
			m.theme = NextTheme(m.theme)
		}
	case progressMsg:
		m.done, m.total = msg.Done, msg.Total
		m.last = msg.Point
		if msg.Err != nil {
			m.failed++
			m.lastErr = msg.Err
		}
		return m, m.wait()
	case doneMsg:
		m.finished = true
		return m, tea.Quit
	case TickMsg:
		m.frame++
		return m, tick()
	}
	return m, nil
}

// Done returns the number of finished and failed points.
func (m SweepModel) Done() (done, failed int) { return m.done, m.failed }

func (m SweepModel) Canceled() bool { return m.canceling }

func (m SweepModel) View() string {
	var s strings.Builder

	status := StatusRunning.Render(AnimatedSpinner(m.frame) + " running")
	switch {
	case m.finished:
		status = StatusRunning.Render("✓ finished")
	case m.canceling:
		status = StatusFailed.Render("canceling")
	}
	s.WriteString(Title.Foreground(m.theme.Primary).Render(m.title) + "  " + status + "\n\n")

	fraction := 0.0
	if m.total > 0 {
		fraction = float64(m.done) / float64(m.total)
	}
	s.WriteString(ProgressBar(fraction, 40) + fmt.Sprintf(" %d/%d\n\n", m.done, m.total))

	elapsed := time.Since(m.started).Round(time.Second)
	s.WriteString(MetricLabel.Render("elapsed") + MetricValue.Render(elapsed.String()) + "\n")
	s.WriteString(MetricLabel.Render("remaining") + MetricValue.Render(m.eta(elapsed)) + "\n")
	s.WriteString(MetricLabel.Render("failed") + MetricValue.Render(fmt.Sprint(m.failed)) + "\n")
	if m.done > 0 {
		s.WriteString(MetricLabel.Render("last point") + MetricValue.Render(fmt.Sprintf("%.1f atm, %.1f°C",
			units.PascalToAtm(m.last.Pressure), units.KelvinToCelsius(m.last.Temperature))) + "\n")
	}
	if m.lastErr != nil {
		s.WriteString(MetricLabel.Render("last error") + StatusFailed.Foreground(m.theme.Error).Render(m.lastErr.Error()) + "\n")
	}
	s.WriteString("\n" + KeyHint.Render("q: cancel  t: theme") + "\n")
	return Panel.Render(s.String())
}

func (m SweepModel) eta(elapsed time.Duration) string {
	if m.done == 0 || m.total == 0 {
		return "-"
	}
	per := elapsed / time.Duration(m.done)
	return (per * time.Duration(m.total-m.done)).Round(time.Second).String()
}

// RunSweep runs the progress view until the progress channel closes.
func RunSweep(title string, progress <-chan weathering.Progress, cancel context.CancelFunc) (SweepModel, error) {
	final, err := tea.NewProgram(NewSweepModel(title, progress, cancel)).Run()
	if err != nil {
		return SweepModel{}, err
	}
	return final.(SweepModel), nil
}
