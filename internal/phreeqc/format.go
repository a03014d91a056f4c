package phreeqc

import (
	"fmt"
	"strconv"

	"github.com/san-kum/kamino/internal/chem"
)

// Field names a numeric value written into a request.
type Field int

const (
	FieldTemperature Field = iota
	FieldPressure
	FieldPH
	FieldAlkalinity
	FieldSpecies
	FieldCarbon
)

// ShortestRepr formats with the fewest digits that round-trip.
const ShortestRepr = -1

const (
	// PhaseInitialSI is the target saturation index of every declared phase.
	PhaseInitialSI = 0.0
	// PhaseMaxMoles caps the amount of each declared phase.
	PhaseMaxMoles = 10.0
	// KineticInitialMoles is the starting amount of each kinetic reactant.
	KineticInitialMoles = 10.0
)

type precisionKey struct {
	field Field
	tmpl  chem.TemplateID
}

// precision is the number of fractional digits written for each field. The
// engine reads fixed-width decimal fields; values are rounded here and the
// rounding is part of the accuracy of every result.
var precision = map[precisionKey]int{
	{FieldTemperature, chem.PartialPressure}: 4,
	{FieldPressure, chem.PartialPressure}:    4,
	{FieldPH, chem.PartialPressure}:          2,
	{FieldAlkalinity, chem.PartialPressure}:  8,
	{FieldSpecies, chem.PartialPressure}:     8,
	{FieldCarbon, chem.PartialPressure}:      ShortestRepr,

	{FieldTemperature, chem.SeafloorEquilibrium}: 4,
	{FieldPressure, chem.SeafloorEquilibrium}:    4,
	{FieldPH, chem.SeafloorEquilibrium}:          2,
	{FieldAlkalinity, chem.SeafloorEquilibrium}:  8,
	{FieldSpecies, chem.SeafloorEquilibrium}:     8,
	{FieldCarbon, chem.SeafloorEquilibrium}:      ShortestRepr,

	{FieldTemperature, chem.SeafloorKinetic}: 4,
	{FieldPressure, chem.SeafloorKinetic}:    4,
	{FieldPH, chem.SeafloorKinetic}:          2,
	{FieldAlkalinity, chem.SeafloorKinetic}:  8,
	{FieldSpecies, chem.SeafloorKinetic}:     8,
	{FieldCarbon, chem.SeafloorKinetic}:      ShortestRepr,
}

// Precision returns the fractional digits used for field in tmpl.
func Precision(field Field, tmpl chem.TemplateID) int {
	p, ok := precision[precisionKey{field, tmpl}]
	if !ok {
		panic(fmt.Sprintf("phreeqc: no precision declared for field %d in %s", field, tmpl))
	}
	return p
}

func formatField(field Field, tmpl chem.TemplateID, v float64) string {
	p := Precision(field, tmpl)
	if p == ShortestRepr {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', p, 64)
}
