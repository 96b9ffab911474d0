// Package storage persists finished runs and world checkpoints on disk.
//
// Each run lives in its own directory under the base dir:
//
//	<id>/metadata.json
//	<id>/samples.csv
//	<id>/checkpoint.json   (optional)
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/jointsim/internal/dynamo"
	"github.com/san-kum/jointsim/internal/world"
)

const (
	metadataFile   = "metadata.json"
	samplesFile    = "samples.csv"
	checkpointFile = "checkpoint.json"
)

var ErrUnknownRun = errors.New("unknown run")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Scene       string             `json:"scene"`
	Timestamp   time.Time          `json:"timestamp"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Substeps    int                `json:"substeps"`
	Bodies      int                `json:"bodies"`
	Joints      int                `json:"joints"`
	Steps       int                `json:"steps"`
	EnergyDrift float64            `json:"energy_drift"`
	Metrics     map[string]float64 `json:"metrics"`
	Errors      []string           `json:"errors,omitempty"`
}

// Save writes the run under a fresh id and returns it.
func (s *Store) Save(scene string, cfg dynamo.Config, w *world.World, result *dynamo.Result) (string, error) {
	id := uuid.New().String()
	dir := filepath.Join(s.baseDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          id,
		Scene:       scene,
		Timestamp:   time.Now().UTC(),
		Dt:          cfg.Dt,
		Duration:    cfg.Duration,
		Substeps:    w.Config().Substeps,
		Bodies:      w.Bodies().Len(),
		Joints:      w.Joints().Len(),
		Steps:       result.StepsTaken,
		EnergyDrift: result.EnergyDrift,
		Metrics:     result.Metrics,
	}
	for _, err := range result.Errors {
		meta.Errors = append(meta.Errors, err.Error())
	}

	if err := writeJSON(filepath.Join(dir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeSamples(filepath.Join(dir, samplesFile), result); err != nil {
		return "", err
	}
	return id, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeSamples stores one row per sample: time, energy, then one column per
// spring separation.
func writeSamples(path string, result *dynamo.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"time", "energy"}
	if len(result.States) > 0 {
		for i := range result.States[0] {
			header = append(header, fmt.Sprintf("l%d", i))
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range result.States {
		row := []string{
			strconv.FormatFloat(result.Times[i], 'g', -1, 64),
			strconv.FormatFloat(result.Energies[i], 'g', -1, 64),
		}
		for _, v := range result.States[i] {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, newest first.
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
	sort.Slice(runs, func(a, b int) bool { return runs[a].Timestamp.After(runs[b].Timestamp) })
	return runs, nil
}

func (s *Store) Load(id string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRun, id)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	return &meta, nil
}

// Samples is the column view of samples.csv.
type Samples struct {
	Times       []float64
	Energies    []float64
	Separations [][]float64
}

func (s *Store) LoadSamples(id string) (*Samples, error) {
	f, err := os.Open(filepath.Join(s.baseDir, id, samplesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRun, id)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	out := &Samples{}
	if len(records) < 2 {
		return out, nil
	}
	for i, rec := range records[1:] {
		if len(rec) < 2 {
			return nil, fmt.Errorf("%s: row %d: short record", samplesFile, i+1)
		}
		vals := make([]float64, len(rec))
		for j, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d: %w", samplesFile, i+1, err)
			}
			vals[j] = v
		}
		out.Times = append(out.Times, vals[0])
		out.Energies = append(out.Energies, vals[1])
		out.Separations = append(out.Separations, vals[2:])
	}
	return out, nil
}

// Series returns the separation history of spring column i.
func (s *Samples) Series(i int) []float64 {
	out := make([]float64, 0, len(s.Separations))
	for _, row := range s.Separations {
		if i < len(row) {
			out = append(out, row[i])
		}
	}
	return out
}

func (s *Store) SaveCheckpoint(id string, w *world.World) error {
	dir := filepath.Join(s.baseDir, id)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownRun, id)
	}
	f, err := os.Create(filepath.Join(dir, checkpointFile))
	if err != nil {
		return err
	}
	defer f.Close()
	return w.WriteSnapshot(f)
}

func (s *Store) LoadCheckpoint(id string, opts ...world.Option) (*world.World, error) {
	f, err := os.Open(filepath.Join(s.baseDir, id, checkpointFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no checkpoint for %s", ErrUnknownRun, id)
		}
		return nil, err
	}
	defer f.Close()
	return world.ReadSnapshot(f, opts...)
}
