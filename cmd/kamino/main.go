package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/kamino/internal/chem"
	"github.com/san-kum/kamino/internal/config"
	"github.com/san-kum/kamino/internal/inversion"
	"github.com/san-kum/kamino/internal/metrics"
	"github.com/san-kum/kamino/internal/ocean"
	"github.com/san-kum/kamino/internal/phreeqc"
	"github.com/san-kum/kamino/internal/planet"
)

var (
	dataDir     string
	configFile  string
	preset      string
	verbose     bool
	metricsFile string

	log       = logrus.New()
	collector = metrics.New()
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "kamino",
		Short:         "ocean-atmosphere-seafloor carbon equilibrium lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".kamino", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "scenario file (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "earth", "scenario preset")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write prometheus metrics to this file on exit")

	rootCmd.AddCommand(
		pressuresCmd(),
		invertCmd(),
		equilibrateCmd(),
		feedbackCmd(),
		profileCmd(),
		adiabatCmd(),
		coupleCmd(),
		sweepCmd(),
		listCmd(),
		plotCmd(),
		exportSVGCmd(),
		exportJSONCmd(),
		presetsCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if metricsFile != "" {
		if werr := collector.WriteToTextfile(metricsFile); werr != nil {
			log.WithError(werr).Error("writing metrics")
		}
	}
	if err != nil {
		log.WithError(err).Error("kamino failed")
		os.Exit(1)
	}
}

// loadConfig resolves the scenario: the preset, then the config file on
// top of it.
func loadConfig() (*config.Config, error) {
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s (available: %s)", preset, strings.Join(config.ListPresets(), ", "))
	}
	if configFile == "" {
		return cfg, cfg.Validate()
	}
	loaded, err := config.LoadInto(cfg, configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return loaded, nil
}

// newAdapter builds the engine adapter. A relative work dir lives under
// the data directory.
func newAdapter(cfg *config.Config) (*phreeqc.Adapter, error) {
	workDir := cfg.Engine.WorkDir
	if !filepath.IsAbs(workDir) {
		workDir = filepath.Join(dataDir, workDir)
	}
	return phreeqc.New(phreeqc.Config{
		Binary:          cfg.Engine.Binary,
		Database:        cfg.Engine.Database,
		KineticDatabase: cfg.Engine.KineticDatabase,
		TemplateDir:     cfg.Engine.TemplateDir,
		WorkDir:         workDir,
		Timeout:         cfg.Engine.Timeout,
	}, phreeqc.WithLogger(log))
}

func observed(e chem.Engine) chem.Engine {
	return chem.ObservedEngine{Engine: e, Observer: collector}
}

func newInverter(e chem.Engine) *inversion.Inverter {
	return inversion.New(e, inversion.WithLogger(log), inversion.WithObserver(collector))
}

func seawaterRatios(cfg *config.Config) (chem.Composition, error) {
	if cfg.Ocean.SeawaterTable == "" {
		return ocean.DefaultSeawaterRatios(), nil
	}
	f, err := os.Open(cfg.Ocean.SeawaterTable)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ocean.ReadSeawaterTable(f)
}

// newPlanet builds the planet with its atmosphere and an ocean that has
// not been set up yet.
func newPlanet(cfg *config.Config) (*planet.Planet, error) {
	p, err := planet.New(planet.Params{
		Radius:          cfg.Planet.Radius,
		Mass:            cfg.Planet.Mass,
		OceanDepth:      cfg.Planet.OceanDepth,
		SurfacePressure: cfg.Planet.SurfacePressure,
		OceanLevels:     cfg.Planet.OceanLevels,
	})
	if err != nil {
		return nil, err
	}
	if err := p.AttachAtmosphere(chem.Composition(cfg.Atmosphere.Mixing).Clone()); err != nil {
		return nil, err
	}
	ratios, err := seawaterRatios(cfg)
	if err != nil {
		return nil, err
	}
	if err := p.AttachOcean(cfg.Ocean.SurfaceTemperature, cfg.Ocean.Salinity, ratios); err != nil {
		return nil, err
	}
	return p, nil
}

// setupPlanet builds the planet and solves the ocean's carbonate state
// against the configured target P_CO2.
func setupPlanet(ctx context.Context, cfg *config.Config, engine chem.Engine) (*planet.Planet, error) {
	p, err := newPlanet(cfg)
	if err != nil {
		return nil, err
	}
	if err := p.Ocean().Setup(ctx, newInverter(engine), cfg.Ocean.TargetPCO2, cfg.Ocean.CarbonMolality); err != nil {
		return nil, err
	}
	chemistry, _ := p.Ocean().Chemistry()
	log.WithFields(logrus.Fields{
		"ph":         chemistry.PH,
		"alkalinity": chemistry.Alkalinity,
		"target":     cfg.Ocean.TargetPCO2,
	}).Info("ocean set up")
	return p, nil
}
