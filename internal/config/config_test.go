package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Engine.Timeout <= 0 {
		t.Error("timeout should be positive")
	}
	if cfg.Weathering.Variant != "equilibrium" {
		t.Errorf("expected variant equilibrium, got %s", cfg.Weathering.Variant)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("fresh")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Ocean.Salinity != 0 {
		t.Errorf("expected salinity 0, got %f", cfg.Ocean.Salinity)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("preset invalid: %v", err)
	}

	deep := GetPreset("deep")
	if deep.Planet.OceanDepth != 10000 {
		t.Errorf("expected depth 10000, got %f", deep.Planet.OceanDepth)
	}
	if DefaultConfig().Planet.OceanDepth == deep.Planet.OceanDepth {
		t.Error("preset leaked into defaults")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets()
	if len(presets) != 3 {
		t.Fatalf("expected 3 presets, got %v", presets)
	}
	for _, name := range presets {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no binary", func(c *Config) { c.Engine.Binary = "" }},
		{"zero timeout", func(c *Config) { c.Engine.Timeout = 0 }},
		{"negative radius", func(c *Config) { c.Planet.Radius = -1 }},
		{"mixing sum", func(c *Config) { c.Atmosphere.Mixing = map[string]float64{"N2": 0.5} }},
		{"mixing range", func(c *Config) { c.Atmosphere.Mixing = map[string]float64{"N2": 1.5, "O2": -0.5} }},
		{"variant", func(c *Config) { c.Weathering.Variant = "instant" }},
		{"no minerals", func(c *Config) { c.Weathering.Minerals = nil }},
		{"empty mineral", func(c *Config) { c.Weathering.Minerals = []string{""} }},
		{"pressure range", func(c *Config) { c.Sweep.PressureMaxAtm = 10 }},
		{"workers", func(c *Config) { c.Sweep.Workers = 0 }},
		{"method", func(c *Config) { c.Heat.Method = "verlet" }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	cfg := GetPreset("deep")
	cfg.Engine.Timeout = 90 * time.Second

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Engine.Timeout != 90*time.Second {
		t.Errorf("expected timeout 90s, got %v", loaded.Engine.Timeout)
	}
	if loaded.Weathering.SeafloorTemperature != 400 {
		t.Errorf("expected seafloor 400 K, got %v", loaded.Weathering.SeafloorTemperature)
	}
	if len(loaded.Weathering.Minerals) != 2 {
		t.Errorf("expected 2 minerals, got %v", loaded.Weathering.Minerals)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := "engine:\n  timeout: 30s\nocean:\n  salinity: 0.5\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.Timeout != 30*time.Second || cfg.Ocean.Salinity != 0.5 {
		t.Errorf("overrides not applied: %+v", cfg.Engine)
	}
	if cfg.Engine.Binary != "phreeqc" || cfg.Planet.Radius != 6.371e6 {
		t.Error("defaults lost")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("sweep:\n  workers: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoadMixingReplacesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixing.yaml")
	data := "atmosphere:\n  mixing:\n    N2: 0.8\n    O2: 0.2\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Atmosphere.Mixing) != 2 {
		t.Errorf("expected 2 species, got %v", cfg.Atmosphere.Mixing)
	}
	if cfg.Atmosphere.Mixing["N2"] != 0.8 || cfg.Atmosphere.Mixing["O2"] != 0.2 {
		t.Errorf("unexpected mixing %v", cfg.Atmosphere.Mixing)
	}
}

func TestLoadWithoutMixingKeepsDefaultMixing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nomix.yaml")
	if err := os.WriteFile(path, []byte("atmosphere:\n  surface_pressure: 101325\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Atmosphere.Mixing) != len(DefaultConfig().Atmosphere.Mixing) {
		t.Errorf("default mixing lost: %v", cfg.Atmosphere.Mixing)
	}
}

func TestLoadIntoKeepsPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	if err := os.WriteFile(path, []byte("engine:\n  timeout: 30s\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadInto(GetPreset("deep"), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.Timeout != 30*time.Second {
		t.Errorf("override not applied: %v", cfg.Engine.Timeout)
	}
	if cfg.Planet.OceanDepth != 10000 || cfg.Weathering.SeafloorTemperature != 400 {
		t.Errorf("preset lost: depth %v, seafloor %v", cfg.Planet.OceanDepth, cfg.Weathering.SeafloorTemperature)
	}
	if len(cfg.Weathering.Minerals) != 2 {
		t.Errorf("preset minerals lost: %v", cfg.Weathering.Minerals)
	}
}
