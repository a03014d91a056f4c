package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/kamino/internal/weathering"
)

const (
	metadataFile = "metadata.json"
	gridFile     = "grid.csv"
)

var gridHeader = []string{"temperature_k", "pressure_pa", "delta_pco2_pa", "baseline_pco2_pa"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes one saved sweep.
type RunMetadata struct {
	ID                 string    `json:"id"`
	Scenario           string    `json:"scenario"`
	Timestamp          time.Time `json:"timestamp"`
	Variant            string    `json:"variant"`
	Minerals           []string  `json:"minerals"`
	DeltaT             float64   `json:"delta_t"`
	Spinup             int       `json:"spinup"`
	SurfacePressure    float64   `json:"surface_pressure"`
	SurfaceTemperature float64   `json:"surface_temperature"`
	PressureLevels     int       `json:"pressure_levels"`
	TemperatureLevels  int       `json:"temperature_levels"`
	Workers            int       `json:"workers"`
	Failures           []string  `json:"failures,omitempty"`
	Elapsed            float64   `json:"elapsed_seconds"`
}

// Save writes a sweep result under a fresh run id. Missing points are
// stored as NaN. On error nothing is left under the base directory.
func (s *Store) Save(meta RunMetadata, result *weathering.GridResult) (string, error) {
	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	meta.PressureLevels = len(result.Pressures)
	meta.TemperatureLevels = len(result.Temperatures)
	meta.Failures = meta.Failures[:0]
	for _, f := range result.Failures {
		meta.Failures = append(meta.Failures, f.Error())
	}

	if err := writeMetadata(filepath.Join(runDir, metadataFile), meta); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	if err := writeGrid(filepath.Join(runDir, gridFile), result); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	return runID, nil
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeGrid(path string, result *weathering.GridResult) error {
	if len(result.DeltaPCO2) != len(result.Temperatures) || len(result.BaselinePCO2) != len(result.Temperatures) {
		return fmt.Errorf("storage: grid has %d temperature rows, want %d", len(result.DeltaPCO2), len(result.Temperatures))
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(gridHeader); err != nil {
		f.Close()
		return err
	}
	for ti, t := range result.Temperatures {
		if len(result.DeltaPCO2[ti]) != len(result.Pressures) || len(result.BaselinePCO2[ti]) != len(result.Pressures) {
			f.Close()
			return fmt.Errorf("storage: grid row %d has %d points, want %d", ti, len(result.DeltaPCO2[ti]), len(result.Pressures))
		}
		for pi, p := range result.Pressures {
			row := []string{
				formatFloat(t),
				formatFloat(p),
				formatFloat(result.DeltaPCO2[ti][pi]),
				formatFloat(result.BaselinePCO2[ti][pi]),
			}
			if err := w.Write(row); err != nil {
				f.Close()
				return err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// List returns saved runs, newest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadGrid rebuilds the grid of a saved run. Failures are not restored;
// missing points come back as NaN.
func (s *Store) LoadGrid(runID string) (*weathering.GridResult, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, gridFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(gridHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("storage: empty grid file")
	}
	records = records[1:]

	var (
		temps, pressures []float64
		tIndex           = map[float64]int{}
		pIndex           = map[float64]int{}
		rows             = make([][4]float64, 0, len(records))
	)
	for line, record := range records {
		var v [4]float64
		for j, field := range record {
			x, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("storage: %s line %d: %w", gridFile, line+2, err)
			}
			v[j] = x
		}
		if _, ok := tIndex[v[0]]; !ok {
			tIndex[v[0]] = len(temps)
			temps = append(temps, v[0])
		}
		if _, ok := pIndex[v[1]]; !ok {
			pIndex[v[1]] = len(pressures)
			pressures = append(pressures, v[1])
		}
		rows = append(rows, v)
	}

	res := &weathering.GridResult{
		Pressures:    pressures,
		Temperatures: temps,
		DeltaPCO2:    nanMatrix(len(temps), len(pressures)),
		BaselinePCO2: nanMatrix(len(temps), len(pressures)),
	}
	for _, v := range rows {
		ti, pi := tIndex[v[0]], pIndex[v[1]]
		res.DeltaPCO2[ti][pi] = v[2]
		res.BaselinePCO2[ti][pi] = v[3]
	}
	return res, nil
}

// formatFloat keeps full precision; NaN is written as "NaN".
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func nanMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
		for j := range m[i] {
			m[i][j] = math.NaN()
		}
	}
	return m
}
