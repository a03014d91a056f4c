// Package units holds the physical constants shared by the chemistry,
// mass-balance and planet packages. All quantities are SI unless noted.
package units

import "fmt"

const (
	// EarthAtm is the engine's reference pressure in Pa. Pressures handed to
	// the chemistry engine are multiples of it, and gas saturation indices
	// are relative to it.
	EarthAtm = 101325.0

	// AbsoluteZero is added to a temperature in K to obtain degrees Celsius.
	AbsoluteZero = -273.15

	// G is the gravitational constant in m^3 kg^-1 s^-2.
	G = 6.674e-11

	// WaterDensity is the reference density of sea water in kg/m^3.
	WaterDensity = 1000.0
)

// SpeciesMMW is the molar mass of each gas species in kg/mol.
var SpeciesMMW = map[string]float64{
	"N2":  0.028,
	"O2":  0.032,
	"CO2": 0.044,
	"H2O": 0.018,
	"Ar":  0.040,
	"CH4": 0.016,
	"H2":  0.002,
	"He":  0.004,
	"NH3": 0.017,
	"SO2": 0.064,
	"CO":  0.028,
}

// MMW returns the molar mass of species or an error if it is unknown.
func MMW(species string) (float64, error) {
	m, ok := SpeciesMMW[species]
	if !ok {
		return 0, fmt.Errorf("units: no molar mass for species %q", species)
	}
	return m, nil
}

// KelvinToCelsius converts an absolute temperature to the engine's scale.
func KelvinToCelsius(t float64) float64 { return t + AbsoluteZero }

// CelsiusToKelvin is the inverse of KelvinToCelsius.
func CelsiusToKelvin(t float64) float64 { return t - AbsoluteZero }

// PascalToAtm expresses p as a multiple of the reference atmosphere.
func PascalToAtm(p float64) float64 { return p / EarthAtm }

// AtmToPascal is the inverse of PascalToAtm.
func AtmToPascal(p float64) float64 { return p * EarthAtm }
