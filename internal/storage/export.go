package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	RunMetadata
	Times    []float64   `json:"times"`
	States   [][]float64 `json:"states"`
	Controls [][]float64 `json:"controls"`
	Adjoints [][]float64 `json:"adjoints"`
}

// ExportJSON writes a run and its trajectories as one indented document.
func ExportJSON(w io.Writer, meta RunMetadata, traj *Trajectories) error {
	data := ExportData{
		RunMetadata: meta,
		Times:       traj.Times,
		States:      traj.States,
		Controls:    traj.Controls,
		Adjoints:    traj.Adjoints,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportJSONFile(path string, meta RunMetadata, traj *Trajectories) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return ExportJSON(file, meta, traj)
}
