package phreeqc

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/kamino/internal/chem"
)

//go:embed templates/*.txt
var embedded embed.FS

// Rewrite replaces one 1-based template line with Format applied to a
// formatted numeric value or path.
type Rewrite struct {
	Line   int
	Format string
}

func (r Rewrite) apply(lines []string, value string) error {
	if r.Line < 1 || r.Line > len(lines) {
		return fmt.Errorf("line %d out of range (template has %d lines)", r.Line, len(lines))
	}
	lines[r.Line-1] = fmt.Sprintf(r.Format, value)
	return nil
}

// Layout records where a template carries its numeric fields and where the
// generated entries are inserted. Insertion points are counted in lines of
// the unmodified template: entries go after that many lines. Zero means the
// template has no such section.
type Layout struct {
	Database    Rewrite
	Temperature Rewrite
	Pressure    Rewrite

	SolutionAt int
	PhasesAt   int
	KineticsAt int
	OutputAt   int

	// Row is the 0-based data row holding the result. Seafloor templates
	// echo the input solution in row 0.
	Row int

	// Kinetic templates use the reaction-rate database.
	Kinetic bool
}

// Template is a request document and its layout.
type Template struct {
	ID     chem.TemplateID
	File   string
	Lines  []string
	Layout Layout
}

var layouts = map[chem.TemplateID]struct {
	file   string
	layout Layout
}{
	chem.PartialPressure: {
		file: "partial_pressure_input.txt",
		layout: Layout{
			Database:    Rewrite{1, "DATABASE %s"},
			Temperature: Rewrite{4, "    temp        %s        # Temperature in degrees Celsius"},
			Pressure:    Rewrite{5, "    pressure    %s         # Pressure in atmospheres"},
			SolutionAt:  6,
			Row:         0,
		},
	},
	chem.SeafloorEquilibrium: {
		file: "seafloor_weathering_input.txt",
		layout: Layout{
			Database:    Rewrite{1, "DATABASE %s"},
			Pressure:    Rewrite{8, "    %s"},
			Temperature: Rewrite{10, "    %s"},
			SolutionAt:  5,
			PhasesAt:    6,
			OutputAt:    13,
			Row:         1,
		},
	},
	chem.SeafloorKinetic: {
		file: "seafloor_kinetic_input.txt",
		layout: Layout{
			Database:    Rewrite{1, "DATABASE %s"},
			Pressure:    Rewrite{11, "    %s"},
			Temperature: Rewrite{13, "    %s"},
			SolutionAt:  5,
			PhasesAt:    6,
			KineticsAt:  7,
			OutputAt:    16,
			Row:         1,
			Kinetic:     true,
		},
	},
}

// LoadTemplates reads every template. An empty dir selects the built-in
// copies; otherwise files with the built-in names are read from dir.
func LoadTemplates(dir string) (map[chem.TemplateID]*Template, error) {
	out := make(map[chem.TemplateID]*Template, len(layouts))
	for id, l := range layouts {
		var data []byte
		var err error
		if dir == "" {
			data, err = embedded.ReadFile("templates/" + l.file)
		} else {
			data, err = os.ReadFile(filepath.Join(dir, l.file))
		}
		if err != nil {
			return nil, fmt.Errorf("phreeqc: template %s: %w", id, err)
		}
		t := &Template{
			ID:     id,
			File:   l.file,
			Lines:  splitLines(string(data)),
			Layout: l.layout,
		}
		if err := t.check(); err != nil {
			return nil, err
		}
		out[id] = t
	}
	return out, nil
}

func (t *Template) check() error {
	n := len(t.Lines)
	for name, line := range map[string]int{
		"database":    t.Layout.Database.Line,
		"temperature": t.Layout.Temperature.Line,
		"pressure":    t.Layout.Pressure.Line,
	} {
		if line < 1 || line > n {
			return fmt.Errorf("phreeqc: template %s: %s line %d outside 1..%d", t.File, name, line, n)
		}
	}
	for name, at := range map[string]int{
		"solution": t.Layout.SolutionAt,
		"phases":   t.Layout.PhasesAt,
		"kinetics": t.Layout.KineticsAt,
		"output":   t.Layout.OutputAt,
	} {
		if at < 0 || at > n {
			return fmt.Errorf("phreeqc: template %s: %s insertion point %d outside 0..%d", t.File, name, at, n)
		}
	}
	if t.Layout.SolutionAt == 0 {
		return fmt.Errorf("phreeqc: template %s has no solution insertion point", t.File)
	}
	return nil
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
