package phreeqc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/kamino/internal/chem"
	"github.com/san-kum/kamino/internal/units"
)

// insertion is a block of lines placed after the first At lines of the
// unmodified template.
type insertion struct {
	At    int
	Lines []string
}

// Render produces the request document for q. database is written on the
// template's database line. The result ends with a newline.
func (t *Template) Render(q chem.Query, database string) (string, error) {
	lines := append([]string(nil), t.Lines...)
	l := t.Layout

	if err := l.Database.apply(lines, database); err != nil {
		return "", fmt.Errorf("phreeqc: %s database: %w", t.ID, err)
	}
	temp := formatField(FieldTemperature, t.ID, q.Temperature+units.AbsoluteZero)
	if err := l.Temperature.apply(lines, temp); err != nil {
		return "", fmt.Errorf("phreeqc: %s temperature: %w", t.ID, err)
	}
	pres := formatField(FieldPressure, t.ID, units.PascalToAtm(q.Pressure))
	if err := l.Pressure.apply(lines, pres); err != nil {
		return "", fmt.Errorf("phreeqc: %s pressure: %w", t.ID, err)
	}

	if len(q.Minerals) > 0 && l.PhasesAt == 0 {
		return "", fmt.Errorf("phreeqc: template %s does not declare mineral phases", t.ID)
	}

	ins := []insertion{{At: l.SolutionAt, Lines: solutionLines(q, t.ID)}}
	if l.PhasesAt > 0 && len(q.Minerals) > 0 {
		ins = append(ins, insertion{At: l.PhasesAt, Lines: phaseLines(q.Minerals)})
	}
	if l.KineticsAt > 0 && len(q.Minerals) > 0 {
		ins = append(ins, insertion{At: l.KineticsAt, Lines: kineticLines(q.Minerals)})
	}
	if l.OutputAt > 0 {
		ins = append(ins, insertion{At: l.OutputAt, Lines: outputLines(q)})
	}

	// Bottom-up, so earlier positions still refer to the original template.
	sort.SliceStable(ins, func(i, j int) bool { return ins[i].At > ins[j].At })
	for _, in := range ins {
		tail := append([]string(nil), lines[in.At:]...)
		lines = append(append(lines[:in.At], in.Lines...), tail...)
	}
	return strings.Join(lines, "\n") + "\n", nil
}

func solutionLines(q chem.Query, tmpl chem.TemplateID) []string {
	var out []string
	if q.PH != nil {
		out = append(out, fmt.Sprintf("    pH    %s", formatField(FieldPH, tmpl, *q.PH)))
	}
	if q.CarbonMolality != nil {
		out = append(out, fmt.Sprintf("    C    %s", formatField(FieldCarbon, tmpl, *q.CarbonMolality)))
	}
	if q.Alkalinity != nil {
		out = append(out, fmt.Sprintf("    Alkalinity    %s as HCO3", formatField(FieldAlkalinity, tmpl, *q.Alkalinity)))
	}
	for _, k := range q.Composition.Keys() {
		out = append(out, fmt.Sprintf("    %s    %s", k, formatField(FieldSpecies, tmpl, q.Composition[k])))
	}
	return out
}

func phaseLines(minerals []string) []string {
	out := make([]string, len(minerals))
	for i, m := range minerals {
		out[i] = fmt.Sprintf("    %s    %.1f    %.1f", m, PhaseInitialSI, PhaseMaxMoles)
	}
	return out
}

func kineticLines(minerals []string) []string {
	out := make([]string, 0, 2*len(minerals))
	for _, m := range minerals {
		out = append(out, "    "+m, fmt.Sprintf("        -m0     %.1f", KineticInitialMoles))
	}
	return out
}

func outputLines(q chem.Query) []string {
	totals := append(q.Composition.Keys(), "C")
	out := []string{"    -totals " + strings.Join(totals, " ")}
	if len(q.Minerals) > 0 {
		out = append(out, "    -saturation_indices "+strings.Join(q.Minerals, " "))
	}
	return out
}
