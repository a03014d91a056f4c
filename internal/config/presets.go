package config

import "sort"

// Presets are scenario overrides applied on top of DefaultConfig.
var Presets = map[string]func(*Config){
	// earth is a modern ocean over a cold abyssal seafloor.
	"earth": func(c *Config) {},
	// fresh is a salt-free ocean, the baseline of the weathering survey.
	"fresh": func(c *Config) {
		c.Ocean.Salinity = 0
		c.Weathering.Minerals = []string{"Calcite"}
	},
	// deep is a thick ocean with a hydrothermally heated floor.
	"deep": func(c *Config) {
		c.Planet.OceanDepth = 10000
		c.Weathering.SeafloorTemperature = 400
		c.Weathering.Minerals = []string{"Calcite", "Anorthite"}
		c.Sweep.PressureMinAtm = 500
		c.Sweep.PressureMaxAtm = 5000
	},
}

// GetPreset returns DefaultConfig with the named preset applied, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
