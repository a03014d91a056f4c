package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/kamino/internal/chem"
	"github.com/san-kum/kamino/internal/config"
	"github.com/san-kum/kamino/internal/eos"
	"github.com/san-kum/kamino/internal/export"
	"github.com/san-kum/kamino/internal/integrators"
	"github.com/san-kum/kamino/internal/inversion"
	"github.com/san-kum/kamino/internal/oceanheat"
	"github.com/san-kum/kamino/internal/units"
	"github.com/san-kum/kamino/internal/viz"
	"github.com/san-kum/kamino/internal/weathering"
)

// Flags shared by the weathering commands. They override the scenario only
// when set.
var (
	variant      string
	minerals     []string
	deltaT       float64
	spinup       int
	seafloorTemp float64
)

func addWeatheringFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&variant, "variant", "equilibrium", "equilibrium or kinetic")
	cmd.Flags().StringSliceVar(&minerals, "minerals", nil, "mineral assemblage")
	cmd.Flags().Float64Var(&deltaT, "delta-t", config.DefaultDeltaT, "seafloor warming (K)")
	cmd.Flags().IntVar(&spinup, "spinup", 0, "extra baseline steps")
	cmd.Flags().Float64Var(&seafloorTemp, "seafloor-temp", config.DefaultSeafloorTemp, "seafloor temperature (K)")
}

func applyWeatheringFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("variant") {
		cfg.Weathering.Variant = variant
	}
	if cmd.Flags().Changed("minerals") {
		cfg.Weathering.Minerals = minerals
	}
	if cmd.Flags().Changed("delta-t") {
		cfg.Weathering.DeltaT = deltaT
	}
	if cmd.Flags().Changed("spinup") {
		cfg.Weathering.Spinup = spinup
	}
	if cmd.Flags().Changed("seafloor-temp") {
		cfg.Weathering.SeafloorTemperature = seafloorTemp
	}
	return cfg.Validate()
}

func pressuresCmd() *cobra.Command {
	var ph, alk, carbon, pressureAtm, temperature float64
	cmd := &cobra.Command{
		Use:   "pressures",
		Short: "CO2 and H2O partial pressures over seawater",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			p, err := newPlanet(cfg)
			if err != nil {
				return err
			}
			q := chem.Query{
				Pressure:       p.SurfacePressure(),
				Temperature:    cfg.Ocean.SurfaceTemperature,
				Composition:    p.Ocean().Composition(),
				CarbonMolality: chem.Float(cfg.Ocean.CarbonMolality),
			}
			if cmd.Flags().Changed("ph") {
				q.PH = chem.Float(ph)
			}
			if cmd.Flags().Changed("alkalinity") {
				q.Alkalinity = chem.Float(alk)
			}
			if q.PH == nil && q.Alkalinity == nil {
				return fmt.Errorf("one of --ph or --alkalinity is required")
			}
			if cmd.Flags().Changed("carbon") {
				q.CarbonMolality = chem.Float(carbon)
			}
			if cmd.Flags().Changed("pressure") {
				q.Pressure = units.AtmToPascal(pressureAtm)
			}
			if cmd.Flags().Changed("temperature") {
				q.Temperature = temperature
			}

			adapter, err := newAdapter(cfg)
			if err != nil {
				return err
			}
			res, err := observed(adapter).Invoke(cmd.Context(), q, chem.PartialPressure)
			if err != nil {
				return err
			}
			fmt.Println(viz.MetricLabel.Render("P_CO2") + viz.MetricValue.Render(fmt.Sprintf("%.6g Pa", res.PCO2)))
			fmt.Println(viz.MetricLabel.Render("P_H2O") + viz.MetricValue.Render(fmt.Sprintf("%.6g Pa", res.PH2O)))
			return nil
		},
	}
	cmd.Flags().Float64Var(&ph, "ph", 8.1, "seawater pH")
	cmd.Flags().Float64Var(&alk, "alkalinity", 0.0023, "alkalinity (eq/kg as HCO3)")
	cmd.Flags().Float64Var(&carbon, "carbon", config.DefaultCarbonMolality, "total carbon (mol/kg)")
	cmd.Flags().Float64Var(&pressureAtm, "pressure", 1, "pressure (atm)")
	cmd.Flags().Float64Var(&temperature, "temperature", config.DefaultSurfaceTemp, "temperature (K)")
	return cmd
}

func invertCmd() *cobra.Command {
	var target float64
	var unknown string
	cmd := &cobra.Command{
		Use:   "invert",
		Short: "solve pH and alkalinity for a target CO2 partial pressure",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("target") {
				cfg.Ocean.TargetPCO2 = target
			}
			p, err := newPlanet(cfg)
			if err != nil {
				return err
			}
			adapter, err := newAdapter(cfg)
			if err != nil {
				return err
			}
			inv := newInverter(observed(adapter))
			fixed := inversion.Fixed{
				Pressure:       p.SurfacePressure(),
				Temperature:    cfg.Ocean.SurfaceTemperature,
				Composition:    p.Ocean().Composition(),
				CarbonMolality: cfg.Ocean.CarbonMolality,
			}

			unknowns := []inversion.Unknown{inversion.PH, inversion.Alkalinity}
			if unknown != "both" {
				u, err := inversion.ParseUnknown(unknown)
				if err != nil {
					return err
				}
				unknowns = []inversion.Unknown{u}
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "UNKNOWN\tVALUE\tEVALUATIONS\tITERATIONS")
			for _, u := range unknowns {
				sol, err := inv.Solve(cmd.Context(), cfg.Ocean.TargetPCO2, fixed, u)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%.8g\t%d\t%d\n", u, sol.Value, sol.Evaluations, sol.Iterations)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Float64Var(&target, "target", config.DefaultTargetPCO2, "target P_CO2 (Pa)")
	cmd.Flags().StringVar(&unknown, "unknown", "both", "pH, alkalinity or both")
	return cmd
}

func equilibrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "equilibrate",
		Short: "one seafloor weathering step",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := applyWeatheringFlags(cmd, cfg); err != nil {
				return err
			}
			v, err := weathering.ParseVariant(cfg.Weathering.Variant)
			if err != nil {
				return err
			}
			adapter, err := newAdapter(cfg)
			if err != nil {
				return err
			}
			engine := observed(adapter)
			p, err := setupPlanet(cmd.Context(), cfg, engine)
			if err != nil {
				return err
			}
			before, _ := p.Ocean().WeatheringState()
			after, err := p.WeatheringStep(cmd.Context(), weathering.Iterator{Engine: engine, Variant: v},
				cfg.Weathering.SeafloorTemperature, cfg.Weathering.Minerals)
			if err != nil {
				return err
			}

			fmt.Printf("seafloor: %.4g atm, %.2f K, %s\n\n",
				units.PascalToAtm(p.SeafloorPressure()), cfg.Weathering.SeafloorTemperature, v)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SPECIES\tBEFORE\tAFTER")
			for _, k := range before.Composition.Keys() {
				fmt.Fprintf(w, "%s\t%.6g\t%.6g\n", k, before.Composition[k], after.Composition[k])
			}
			fmt.Fprintf(w, "Alkalinity\t%.6g\t%.6g\n", before.Alkalinity, after.Alkalinity)
			fmt.Fprintf(w, "C\t%.6g\t%.6g\n", before.CarbonMolality, after.CarbonMolality)
			return w.Flush()
		},
	}
	addWeatheringFlags(cmd)
	return cmd
}

func feedbackCmd() *cobra.Command {
	var curve int
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "CO2 response to seafloor warming at one point",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := applyWeatheringFlags(cmd, cfg); err != nil {
				return err
			}
			v, err := weathering.ParseVariant(cfg.Weathering.Variant)
			if err != nil {
				return err
			}
			adapter, err := newAdapter(cfg)
			if err != nil {
				return err
			}
			engine := observed(adapter)
			p, err := setupPlanet(cmd.Context(), cfg, engine)
			if err != nil {
				return err
			}
			start, err := p.Ocean().WeatheringState()
			if err != nil {
				return err
			}
			fb := weathering.Feedback{
				Iterator: weathering.Iterator{Engine: engine, Variant: v},
				Surface:  weathering.Surface{Pressure: p.SurfacePressure(), Temperature: cfg.Ocean.SurfaceTemperature},
			}
			pert := weathering.Perturbation{
				Minerals: cfg.Weathering.Minerals,
				DeltaT:   cfg.Weathering.DeltaT,
				Spinup:   cfg.Weathering.Spinup,
			}
			out, err := fb.Evaluate(cmd.Context(), p.SeafloorPressure(), cfg.Weathering.SeafloorTemperature, start, pert)
			if err != nil {
				return err
			}
			fmt.Println(viz.MetricLabel.Render("baseline") + viz.MetricValue.Render(fmt.Sprintf("%.6g Pa", out.BaselinePCO2)))
			fmt.Println(viz.MetricLabel.Render("perturbed") + viz.MetricValue.Render(fmt.Sprintf("%.6g Pa", out.PerturbedPCO2)))
			fmt.Println(viz.MetricLabel.Render("ΔP_CO2") + viz.MetricValue.Render(fmt.Sprintf("%.6g Pa", out.DeltaPCO2())))

			if curve < 2 {
				return nil
			}
			// ΔP_CO2 against warming from ΔT/curve up to ΔT.
			deltas := make([]float64, curve)
			for i := range deltas {
				pert.DeltaT = cfg.Weathering.DeltaT * float64(i+1) / float64(curve)
				o, err := fb.Evaluate(cmd.Context(), p.SeafloorPressure(), cfg.Weathering.SeafloorTemperature, start, pert)
				if err != nil {
					return err
				}
				deltas[i] = o.DeltaPCO2()
			}
			fmt.Println(viz.Separator(60))
			fmt.Println(viz.Curve(deltas, "ΔP_CO2 (Pa) vs seafloor warming", 10, 60))
			return nil
		},
	}
	addWeatheringFlags(cmd)
	cmd.Flags().IntVar(&curve, "curve", 0, "also plot ΔP_CO2 for this many warming steps")
	return cmd
}

func profileCmd() *cobra.Command {
	var svgPath string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "ocean temperature profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			prof, err := heatProfile(cfg)
			if err != nil {
				return err
			}
			fmt.Print(viz.Profile(prof.Depths, prof.Temperatures, 40, 16))
			fmt.Println(viz.MetricLabel.Render("seafloor") + viz.MetricValue.Render(fmt.Sprintf("%.3f K", prof.SeafloorTemperature())))
			if svgPath != "" {
				svg := export.CurveSVG(prof.Temperatures, prof.Depths, 400, 600, string(viz.CurrentTheme.Accent), true)
				if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
					return err
				}
				fmt.Printf("profile saved to %s\n", svgPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&svgPath, "svg", "", "also write the profile as svg")
	return cmd
}

func adiabatCmd() *cobra.Command {
	var levels int
	var svgPath string
	cmd := &cobra.Command{
		Use:   "adiabat",
		Short: "seawater adiabat from the surface to the seafloor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			p, err := newPlanet(cfg)
			if err != nil {
				return err
			}
			ad, err := eos.MakeAdiabat(cmd.Context(), eos.DefaultLiquid(),
				cfg.Planet.SurfacePressure, cfg.Ocean.SurfaceTemperature, p.SeafloorPressure(), cfg.Ocean.Salinity, levels)
			if err != nil {
				return err
			}

			fmt.Println(viz.Curve(ad.Temperatures, "adiabatic temperature (K), surface to seafloor", 10, 60))
			fmt.Println(viz.Separator(60))
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRESSURE (atm)\tT (K)\tDENSITY\tPHASE")
			step := max(1, len(ad.Pressures)/10)
			for i := 0; i < len(ad.Pressures); i += step {
				fmt.Fprintf(w, "%.1f\t%.4f\t%.2f\t%s\n", units.PascalToAtm(ad.Pressures[i]), ad.Temperatures[i], ad.Densities[i], ad.Phases[i])
			}
			last := len(ad.Pressures) - 1
			if last%step != 0 {
				fmt.Fprintf(w, "%.1f\t%.4f\t%.2f\t%s\n", units.PascalToAtm(ad.Pressures[last]), ad.Temperatures[last], ad.Densities[last], ad.Phases[last])
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if svgPath != "" {
				svg := export.CurveSVG(ad.Temperatures, ad.Pressures, 400, 600, string(viz.CurrentTheme.Accent), true)
				if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
					return err
				}
				fmt.Printf("adiabat saved to %s\n", svgPath)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&levels, "levels", 40, "pressure levels")
	cmd.Flags().StringVar(&svgPath, "svg", "", "also write the adiabat as svg")
	return cmd
}

func heatProfile(cfg *config.Config) (*oceanheat.Profile, error) {
	params := oceanheat.DefaultParams()
	params.MixedLayerDepth = cfg.Heat.MixedLayerDepth
	params.AbsorptionScale = cfg.Heat.AbsorptionScale
	params.Insolation = cfg.Heat.Insolation
	params.Levels = cfg.Heat.Levels
	params.Depth = cfg.Planet.OceanDepth
	st, err := integrators.ByName(cfg.Heat.Method)
	if err != nil {
		return nil, err
	}
	return oceanheat.Solve(params, cfg.Ocean.SurfaceTemperature, st)
}

func coupleCmd() *cobra.Command {
	var steps int
	var useProfile bool
	cmd := &cobra.Command{
		Use:   "couple",
		Short: "alternate seafloor weathering and atmosphere updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := applyWeatheringFlags(cmd, cfg); err != nil {
				return err
			}
			if cmd.Flags().Changed("steps") {
				cfg.Weathering.Steps = steps
			}
			v, err := weathering.ParseVariant(cfg.Weathering.Variant)
			if err != nil {
				return err
			}
			floorT := cfg.Weathering.SeafloorTemperature
			if useProfile {
				prof, err := heatProfile(cfg)
				if err != nil {
					return err
				}
				floorT = prof.SeafloorTemperature()
			}

			adapter, err := newAdapter(cfg)
			if err != nil {
				return err
			}
			engine := observed(adapter)
			p, err := setupPlanet(cmd.Context(), cfg, engine)
			if err != nil {
				return err
			}
			it := weathering.Iterator{Engine: engine, Variant: v}

			if err := p.UpdateAtmosphere(cmd.Context(), engine); err != nil {
				return err
			}
			pco2, _ := p.GasPressures()
			series := []float64{pco2}
			for i := 0; i < cfg.Weathering.Steps; i++ {
				if _, err := p.WeatheringStep(cmd.Context(), it, floorT, cfg.Weathering.Minerals); err != nil {
					return fmt.Errorf("step %d: %w", i+1, err)
				}
				if err := p.UpdateAtmosphere(cmd.Context(), engine); err != nil {
					return fmt.Errorf("step %d: %w", i+1, err)
				}
				pco2, _ = p.GasPressures()
				series = append(series, pco2)
				log.WithField("step", i+1).WithField("pco2", pco2).Debug("coupled step")
			}

			atm := p.Atmosphere()
			fmt.Println(viz.Curve(series, "P_CO2 (Pa) per coupling step", 10, 60))
			fmt.Println()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "GAS\tMIXING\tPRESSURE (Pa)")
			pp := atm.PartialPressures()
			x := atm.MixingRatios()
			for _, k := range atm.Species() {
				fmt.Fprintf(w, "%s\t%.6g\t%.6g\n", k, x[k], pp[k])
			}
			fmt.Fprintf(w, "total\t\t%.6g\n", atm.SurfacePressure())
			return w.Flush()
		},
	}
	addWeatheringFlags(cmd)
	cmd.Flags().IntVar(&steps, "steps", 1, "coupling steps")
	cmd.Flags().BoolVar(&useProfile, "heat-profile", false, "take the seafloor temperature from the ocean heat profile")
	return cmd
}
