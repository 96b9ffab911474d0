package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/jointsim/internal/dynamo"
)

type ExportData struct {
	Scene       string             `json:"scene"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Steps       int                `json:"steps"`
	Times       []float64          `json:"times"`
	Energies    []float64          `json:"energies"`
	Separations [][]float64        `json:"separations"`
	EnergyDrift float64            `json:"energy_drift"`
	Metrics     map[string]float64 `json:"metrics"`
}

func ExportJSON(out io.Writer, scene string, cfg dynamo.Config, result *dynamo.Result) error {
	data := ExportData{
		Scene:       scene,
		Dt:          cfg.Dt,
		Duration:    cfg.Duration,
		Steps:       result.StepsTaken,
		Times:       result.Times,
		Energies:    result.Energies,
		Separations: make([][]float64, len(result.States)),
		EnergyDrift: result.EnergyDrift,
		Metrics:     result.Metrics,
	}
	for i, s := range result.States {
		data.Separations[i] = s
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportSamples re-exports a stored run without its in-memory result.
func (s *Store) ExportSamples(out io.Writer, id string) error {
	meta, err := s.Load(id)
	if err != nil {
		return err
	}
	samples, err := s.LoadSamples(id)
	if err != nil {
		return err
	}
	data := ExportData{
		Scene:       meta.Scene,
		Dt:          meta.Dt,
		Duration:    meta.Duration,
		Steps:       meta.Steps,
		Times:       samples.Times,
		Energies:    samples.Energies,
		Separations: samples.Separations,
		EnergyDrift: meta.EnergyDrift,
		Metrics:     meta.Metrics,
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
