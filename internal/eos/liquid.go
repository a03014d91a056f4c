package eos

import (
	"fmt"
	"math"
)

const (
	PhaseLiquid = "liquid"
	PhaseIce    = "ice"
)

// Liquid is a linearized seawater equation of state about a reference
// point: constant heat capacity, thermal expansion and compressibility,
// with a density that grows linearly with salinity. It is good near the
// reference state and for shallow to moderate oceans; it knows nothing of
// high-pressure ices.
type Liquid struct {
	RefTemperature float64 // K
	RefPressure    float64 // MPa
	RefDensity     float64 // kg/m³ of pure water
	// SalineDensity is the density added per mol/kg of salinity.
	SalineDensity   float64
	HeatCapacity    float64 // J/(kg·K)
	Expansion       float64 // 1/K
	Compressibility float64 // 1/MPa
	// Freezing line: T_f = RefTemperature - FreezingSlope·(P - RefPressure)
	// - Cryoscopic·salinity.
	FreezingSlope float64 // K/MPa
	Cryoscopic    float64 // K·kg/mol
}

// DefaultLiquid returns seawater constants about 0 °C and one atmosphere.
func DefaultLiquid() Liquid {
	return Liquid{
		RefTemperature:  273.15,
		RefPressure:     0.101325,
		RefDensity:      1000,
		SalineDensity:   45,
		HeatCapacity:    3990,
		Expansion:       2e-4,
		Compressibility: 4.5e-4,
		FreezingSlope:   0.0743,
		Cryoscopic:      1.86,
	}
}

func (l Liquid) density0(salinity float64) float64 {
	return l.RefDensity + l.SalineDensity*salinity
}

func checkState(temperature, salinity float64) error {
	if !(temperature > 0) || math.IsInf(temperature, 0) {
		return fmt.Errorf("eos: temperature %g K out of range", temperature)
	}
	if !(salinity >= 0) || math.IsInf(salinity, 0) {
		return fmt.Errorf("eos: salinity %g out of range", salinity)
	}
	return nil
}

// Entropy is specific entropy (J/(kg·K)) relative to the reference point.
// Its pressure term is the Maxwell relation ∂s/∂P = -α/ρ at the reference
// density.
func (l Liquid) Entropy(pressure, temperature, salinity float64) (float64, error) {
	if err := checkState(temperature, salinity); err != nil {
		return 0, err
	}
	dp := (pressure - l.RefPressure) * 1e6
	return l.HeatCapacity*math.Log(temperature/l.RefTemperature) - l.Expansion/l.density0(salinity)*dp, nil
}

func (l Liquid) Density(pressure, temperature, salinity float64) (float64, error) {
	if err := checkState(temperature, salinity); err != nil {
		return 0, err
	}
	return l.density0(salinity) * (1 - l.Expansion*(temperature-l.RefTemperature) + l.Compressibility*(pressure-l.RefPressure)), nil
}

func (l Liquid) Phase(pressure, temperature, salinity float64) (string, error) {
	if err := checkState(temperature, salinity); err != nil {
		return "", err
	}
	if temperature < l.FreezingTemperature(pressure, salinity) {
		return PhaseIce, nil
	}
	return PhaseLiquid, nil
}

// FreezingTemperature is the liquidus (K) at pressure (MPa).
func (l Liquid) FreezingTemperature(pressure, salinity float64) float64 {
	return l.RefTemperature - l.FreezingSlope*(pressure-l.RefPressure) - l.Cryoscopic*salinity
}

// AdiabatTemperature is the closed-form adiabat of l: the temperature (K)
// reached at pressure (Pa) from (pStart Pa, tStart K).
func (l Liquid) AdiabatTemperature(pStart, tStart, pressure, salinity float64) float64 {
	return tStart * math.Exp(l.Expansion*(pressure-pStart)/(l.density0(salinity)*l.HeatCapacity))
}
