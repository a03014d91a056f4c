package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/kamino/internal/chem"
	"github.com/san-kum/kamino/internal/config"
	"github.com/san-kum/kamino/internal/export"
	"github.com/san-kum/kamino/internal/storage"
	"github.com/san-kum/kamino/internal/units"
	"github.com/san-kum/kamino/internal/viz"
	"github.com/san-kum/kamino/internal/weathering"
)

func sweepCmd() *cobra.Command {
	var (
		workers, retries, pLevels, tLevels int
		pMin, pMax                         float64
		tui                                bool
		theme                              string
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "seafloor warming feedback over a pressure/temperature grid",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Sweep.Workers = workers
			}
			if cmd.Flags().Changed("retries") {
				cfg.Sweep.Retries = retries
			}
			if cmd.Flags().Changed("pressure-levels") {
				cfg.Sweep.PressureLevels = pLevels
			}
			if cmd.Flags().Changed("temperature-levels") {
				cfg.Sweep.TemperatureLevels = tLevels
			}
			if cmd.Flags().Changed("pressure-min") {
				cfg.Sweep.PressureMinAtm = pMin
			}
			if cmd.Flags().Changed("pressure-max") {
				cfg.Sweep.PressureMaxAtm = pMax
			}
			if err := applyWeatheringFlags(cmd, cfg); err != nil {
				return err
			}
			v, err := weathering.ParseVariant(cfg.Weathering.Variant)
			if err != nil {
				return err
			}
			viz.SetTheme(theme)

			adapter, err := newAdapter(cfg)
			if err != nil {
				return err
			}
			p, err := setupPlanet(cmd.Context(), cfg, observed(adapter))
			if err != nil {
				return err
			}
			start, err := p.Ocean().WeatheringState()
			if err != nil {
				return err
			}

			grid := weathering.Grid{
				Pressures:    weathering.PressureGrid(cfg.Sweep.PressureMinAtm, cfg.Sweep.PressureMaxAtm, cfg.Sweep.PressureLevels),
				Temperatures: weathering.TemperatureGrid(cfg.Sweep.TemperatureLevels),
			}
			pert := weathering.Perturbation{
				Minerals: cfg.Weathering.Minerals,
				DeltaT:   cfg.Weathering.DeltaT,
				Spinup:   cfg.Weathering.Spinup,
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			progress := make(chan weathering.Progress)
			sw := &weathering.Sweep{
				Engines: func(worker int) (chem.Engine, error) {
					w, err := adapter.ForkWorker(worker)
					if err != nil {
						return nil, err
					}
					return observed(w), nil
				},
				Workers:  cfg.Sweep.Workers,
				Variant:  v,
				Surface:  weathering.Surface{Pressure: p.SurfacePressure(), Temperature: cfg.Ocean.SurfaceTemperature},
				Retries:  cfg.Sweep.Retries,
				Progress: progress,
				Observer: collector,
				Log:      log,
			}

			log.WithFields(logrus.Fields{
				"points":  grid.Size(),
				"workers": cfg.Sweep.Workers,
				"variant": v,
			}).Info("starting sweep")

			began := time.Now()
			type outcome struct {
				res *weathering.GridResult
				err error
			}
			done := make(chan outcome, 1)
			go func() {
				res, err := sw.Run(ctx, grid, start, pert)
				close(progress)
				done <- outcome{res, err}
			}()

			if tui {
				if _, err := viz.RunSweep("kamino sweep", progress, cancel); err != nil {
					cancel()
					for range progress {
					}
					<-done
					return err
				}
			} else {
				logProgress(progress)
			}
			out := <-done
			if out.err != nil {
				return out.err
			}

			st := storage.New(dataDir)
			if err := st.Init(); err != nil {
				return err
			}
			runID, err := st.Save(storage.RunMetadata{
				Scenario:           scenarioName(),
				Variant:            v.String(),
				Minerals:           cfg.Weathering.Minerals,
				DeltaT:             cfg.Weathering.DeltaT,
				Spinup:             cfg.Weathering.Spinup,
				SurfacePressure:    p.SurfacePressure(),
				SurfaceTemperature: cfg.Ocean.SurfaceTemperature,
				Workers:            cfg.Sweep.Workers,
				Elapsed:            time.Since(began).Seconds(),
			}, out.res)
			if err != nil {
				return err
			}

			fmt.Print(viz.Heatmap(out.res, viz.CurrentTheme))
			fmt.Printf("\nrun saved: %s\n", runID)
			return nil
		},
	}
	addWeatheringFlags(cmd)
	cmd.Flags().IntVar(&workers, "workers", 4, "parallel engine workers")
	cmd.Flags().IntVar(&retries, "retries", 0, "retries per failed point")
	cmd.Flags().IntVar(&pLevels, "pressure-levels", 60, "pressure grid size")
	cmd.Flags().IntVar(&tLevels, "temperature-levels", 64, "temperature grid size")
	cmd.Flags().Float64Var(&pMin, "pressure-min", 100, "lowest seafloor pressure (atm)")
	cmd.Flags().Float64Var(&pMax, "pressure-max", 2000, "highest seafloor pressure (atm)")
	cmd.Flags().BoolVar(&tui, "tui", false, "show interactive progress")
	cmd.Flags().StringVar(&theme, "theme", "ocean", "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")
	return cmd
}

// logProgress logs roughly every tenth of the grid.
func logProgress(progress <-chan weathering.Progress) {
	next := 0.1
	failed := 0
	for pr := range progress {
		if pr.Err != nil {
			failed++
		}
		if frac := float64(pr.Done) / float64(pr.Total); frac >= next || pr.Done == pr.Total {
			log.WithFields(logrus.Fields{"done": pr.Done, "total": pr.Total, "failed": failed}).Info("sweep progress")
			for next <= frac {
				next += 0.1
			}
		}
	}
}

func scenarioName() string {
	if configFile != "" {
		return configFile
	}
	return preset
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list saved sweeps",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := storage.New(dataDir).List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tVARIANT\tMINERALS\tGRID\tFAILED\tELAPSED")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%dx%d\t%d\t%.0fs\n",
					run.ID,
					run.Scenario,
					run.Timestamp.Format("2006-01-02 15:04:05"),
					run.Variant,
					strings.Join(run.Minerals, ","),
					run.TemperatureLevels, run.PressureLevels,
					len(run.Failures),
					run.Elapsed,
				)
			}
			return w.Flush()
		},
	}
}

func plotCmd() *cobra.Command {
	var theme string
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved sweep",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			res, err := st.LoadGrid(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("run: %s\n", meta.ID)
			fmt.Printf("scenario: %s, %s, %s, ΔT %.2f K\n\n", meta.Scenario, meta.Variant, strings.Join(meta.Minerals, ","), meta.DeltaT)
			fmt.Print(viz.Heatmap(res, viz.GetTheme(theme)))
			fmt.Println(viz.Separator(80))

			// Mean ΔP_CO2 over pressure at each temperature.
			means := make([]float64, len(res.Temperatures))
			for ti, row := range res.DeltaPCO2 {
				sum, n := 0.0, 0
				for _, v := range row {
					if !math.IsNaN(v) {
						sum += v
						n++
					}
				}
				means[ti] = math.NaN()
				if n > 0 {
					means[ti] = sum / float64(n)
				}
			}
			lo := units.KelvinToCelsius(res.Temperatures[0])
			hi := units.KelvinToCelsius(res.Temperatures[len(res.Temperatures)-1])
			fmt.Println(viz.Curve(means, fmt.Sprintf("mean ΔP_CO2 (Pa), %.0f..%.0f°C", lo, hi), 10, 80))
			return nil
		},
	}
	cmd.Flags().StringVar(&theme, "theme", "ocean", "color theme")
	return cmd
}

func exportSVGCmd() *cobra.Command {
	var output, theme string
	cmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export a saved sweep as an svg heatmap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			res, err := st.LoadGrid(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = meta.ID + ".svg"
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			title := fmt.Sprintf("ΔP_CO2 %s %s ΔT=%.2f K", meta.Variant, strings.Join(meta.Minerals, ","), meta.DeltaT)
			if err := export.HeatmapSVG(f, res, export.HeatmapOptions{Theme: viz.GetTheme(theme), Title: title}); err != nil {
				return err
			}
			fmt.Printf("exported to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	cmd.Flags().StringVar(&theme, "theme", "ocean", "color theme")
	return cmd
}

func exportJSONCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a saved sweep as json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			res, err := st.LoadGrid(args[0])
			if err != nil {
				return err
			}
			// Failures live in the metadata; the grid file only has NaNs.
			for _, f := range meta.Failures {
				log.WithField("run", meta.ID).Debug(f)
			}
			if output == "" {
				output = meta.ID + ".json"
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := export.WriteJSON(f, res); err != nil {
				return err
			}
			fmt.Printf("exported to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	return cmd
}

func presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list scenario presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDEPTH (m)\tSALINITY\tSEAFLOOR (K)\tMINERALS")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%.0f\t%.4g\t%.1f\t%s\n", name,
					cfg.Planet.OceanDepth, cfg.Ocean.Salinity, cfg.Weathering.SeafloorTemperature,
					strings.Join(cfg.Weathering.Minerals, ","))
			}
			return w.Flush()
		},
	}
}
