package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/kamino/internal/chem"
	"github.com/san-kum/kamino/internal/units"
)

const (
	DefaultEngineTimeout  = 2 * time.Minute
	DefaultCarbonMolality = 0.002
	// DefaultTargetPCO2 is 300 ppm of one atmosphere, in Pa.
	DefaultTargetPCO2   = 300e-6 * units.EarthAtm
	DefaultSurfaceTemp  = 293.0
	DefaultSeafloorTemp = 277.0
	DefaultSalinity     = 1.1165
	DefaultDeltaT       = 1.0
)

var validate = validator.New()

type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Planet     PlanetConfig     `yaml:"planet"`
	Atmosphere AtmosphereConfig `yaml:"atmosphere"`
	Ocean      OceanConfig      `yaml:"ocean"`
	Weathering WeatheringConfig `yaml:"weathering"`
	Sweep      SweepConfig      `yaml:"sweep"`
	Heat       HeatConfig       `yaml:"heat"`
}

type EngineConfig struct {
	Binary          string        `yaml:"binary" validate:"required"`
	Database        string        `yaml:"database" validate:"required"`
	KineticDatabase string        `yaml:"kinetic_database"`
	TemplateDir     string        `yaml:"template_dir"`
	WorkDir         string        `yaml:"work_dir" validate:"required"`
	Timeout         time.Duration `yaml:"timeout" validate:"gt=0"`
}

type PlanetConfig struct {
	Radius          float64 `yaml:"radius" validate:"gt=0"`
	Mass            float64 `yaml:"mass" validate:"gt=0"`
	OceanDepth      float64 `yaml:"ocean_depth" validate:"gt=0"`
	SurfacePressure float64 `yaml:"surface_pressure" validate:"gt=0"`
	OceanLevels     int     `yaml:"ocean_levels" validate:"gte=2"`
}

type AtmosphereConfig struct {
	Mixing map[string]float64 `yaml:"mixing" validate:"required,min=1,dive,gte=0,lte=1"`
}

type OceanConfig struct {
	SurfaceTemperature float64 `yaml:"surface_temperature" validate:"gt=0"`
	Salinity           float64 `yaml:"salinity" validate:"gte=0"`
	// SeawaterTable is an Element,Ratio CSV; empty selects the built-in
	// ratios.
	SeawaterTable  string  `yaml:"seawater_table"`
	CarbonMolality float64 `yaml:"carbon_molality" validate:"gte=0"`
	TargetPCO2     float64 `yaml:"target_pco2" validate:"gt=0"`
}

type WeatheringConfig struct {
	Variant             string   `yaml:"variant" validate:"oneof=equilibrium kinetic"`
	Minerals            []string `yaml:"minerals" validate:"required,min=1,dive,required"`
	SeafloorTemperature float64  `yaml:"seafloor_temperature" validate:"gt=0"`
	DeltaT              float64  `yaml:"delta_t"`
	Spinup              int      `yaml:"spinup" validate:"gte=0"`
	Steps               int      `yaml:"steps" validate:"gte=1"`
}

type SweepConfig struct {
	PressureMinAtm    float64 `yaml:"pressure_min_atm" validate:"gt=0"`
	PressureMaxAtm    float64 `yaml:"pressure_max_atm" validate:"gtefield=PressureMinAtm"`
	PressureLevels    int     `yaml:"pressure_levels" validate:"gte=1"`
	TemperatureLevels int     `yaml:"temperature_levels" validate:"gte=1"`
	Workers           int     `yaml:"workers" validate:"gte=1"`
	Retries           int     `yaml:"retries" validate:"gte=0"`
}

type HeatConfig struct {
	MixedLayerDepth float64 `yaml:"mixed_layer_depth" validate:"gt=0"`
	AbsorptionScale float64 `yaml:"absorption_scale" validate:"gt=0"`
	Insolation      float64 `yaml:"insolation" validate:"gte=0"`
	Levels          int     `yaml:"levels" validate:"gte=2"`
	Method          string  `yaml:"method" validate:"oneof=euler rk4 rk45"`
}

func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Binary:          "phreeqc",
			Database:        "phreeqc.dat",
			KineticDatabase: "phreeqc_kinetics.dat",
			WorkDir:         "work",
			Timeout:         DefaultEngineTimeout,
		},
		Planet: PlanetConfig{
			Radius:          6.371e6,
			Mass:            5.972e24,
			OceanDepth:      4000,
			SurfacePressure: units.EarthAtm,
			OceanLevels:     100,
		},
		Atmosphere: AtmosphereConfig{
			Mixing: map[string]float64{"N2": 0.78, "O2": 0.2097, "Ar": 0.0093, "CO2": 0.0003, "H2O": 0.0007},
		},
		Ocean: OceanConfig{
			SurfaceTemperature: DefaultSurfaceTemp,
			Salinity:           DefaultSalinity,
			CarbonMolality:     DefaultCarbonMolality,
			TargetPCO2:         DefaultTargetPCO2,
		},
		Weathering: WeatheringConfig{
			Variant:             "equilibrium",
			Minerals:            []string{"Calcite"},
			SeafloorTemperature: DefaultSeafloorTemp,
			DeltaT:              DefaultDeltaT,
			Steps:               1,
		},
		Sweep: SweepConfig{
			PressureMinAtm:    100,
			PressureMaxAtm:    2000,
			PressureLevels:    60,
			TemperatureLevels: 64,
			Workers:           4,
		},
		Heat: HeatConfig{
			MixedLayerDepth: 200,
			AbsorptionScale: 50,
			Insolation:      272,
			Levels:          300,
			Method:          "rk4",
		},
	}
}

// Validate checks struct tags and that the mixing ratios sum to one.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	sum := chem.Composition(c.Atmosphere.Mixing).Total()
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("config: atmosphere mixing ratios sum to %g", sum)
	}
	return nil
}

// Load reads path over DefaultConfig.
func Load(path string) (*Config, error) {
	return LoadInto(DefaultConfig(), path)
}

// LoadInto reads path over base and validates the result. Fields the file
// leaves out keep their base values. A mixing table in the file replaces the
// base table whole instead of merging into it.
func LoadInto(base *Config, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base
	mixing := cfg.Atmosphere.Mixing
	cfg.Atmosphere.Mixing = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Atmosphere.Mixing == nil {
		cfg.Atmosphere.Mixing = mixing
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
