package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/fbsweep/internal/dynamo"
	"github.com/san-kum/fbsweep/internal/sweep"
)

const (
	metadataFile     = "metadata.json"
	trajectoriesFile = "trajectories.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata carries the settings of a run alongside its outcome. Bounds
// are not stored since JSON has no encoding for infinite limits.
type RunMetadata struct {
	ID               string             `json:"id"`
	Problem          string             `json:"problem"`
	Timestamp        time.Time          `json:"timestamp"`
	FinalTime        float64            `json:"final_time"`
	Step             float64            `json:"step"`
	Tolerance        float64            `json:"tolerance"`
	Relaxation       float64            `json:"relaxation"`
	MaxIterations    int                `json:"max_iterations"`
	Seed             int64              `json:"seed"`
	X0               []float64          `json:"x0,omitempty"`
	FreeAdjointFinal []int              `json:"free_adjoint_final,omitempty"`
	Theta            []float64          `json:"theta,omitempty"`
	NumStates        int                `json:"num_states"`
	NumControls      int                `json:"num_controls"`
	Iterations       int                `json:"iterations"`
	Converged        bool               `json:"converged"`
	Margin           float64            `json:"margin"`
	Params           map[string]float64 `json:"params,omitempty"`
	Metrics          map[string]float64 `json:"metrics,omitempty"`
}

// Trajectories is the content of a run's CSV file.
type Trajectories struct {
	Times    []float64
	States   dynamo.Trajectory
	Controls dynamo.Trajectory
	Adjoints dynamo.Trajectory
}

// Save writes a run directory for result. The solver outcome fields of meta
// (ID, timestamp, iterations, convergence, dims) are filled in here.
func (s *Store) Save(meta RunMetadata, result *sweep.Result) (string, error) {
	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%d", meta.Problem, now.UnixNano())
	meta.Timestamp = now
	meta.NumStates = result.States.Width()
	meta.NumControls = result.Controls.Width()
	meta.Iterations = result.Iterations
	meta.Converged = result.Converged
	meta.Margin = result.Margin

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeMetadata(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	traj := Trajectories{Times: result.Times, States: result.States, Controls: result.Controls, Adjoints: result.Adjoints}
	if err := writeTrajectories(filepath.Join(runDir, trajectoriesFile), traj); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func writeTrajectories(path string, traj Trajectories) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header(traj.States.Width(), traj.Controls.Width())); err != nil {
		return err
	}

	row := make([]string, 0, 1+2*traj.States.Width()+traj.Controls.Width())
	for i, t := range traj.Times {
		row = append(row[:0], formatFloat(t))
		for _, tr := range []dynamo.Trajectory{traj.States, traj.Controls, traj.Adjoints} {
			for _, v := range tr[i] {
				row = append(row, formatFloat(v))
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Header returns the CSV column names: time, x0.., u0.., lambda0...
func Header(numStates, numControls int) []string {
	header := []string{"time"}
	for i := 0; i < numStates; i++ {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	for i := 0; i < numControls; i++ {
		header = append(header, fmt.Sprintf("u%d", i))
	}
	for i := 0; i < numStates; i++ {
		header = append(header, fmt.Sprintf("lambda%d", i))
	}
	return header
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns every readable run, oldest first.
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

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
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

// TrajectoriesPath is the CSV location for runID.
func (s *Store) TrajectoriesPath(runID string) string {
	return filepath.Join(s.baseDir, runID, trajectoriesFile)
}

func (s *Store) LoadTrajectories(runID string) (*Trajectories, error) {
	file, err := os.Open(s.TrajectoriesPath(runID))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: missing header", runID)
	}

	numStates, numControls := 0, 0
	for _, col := range records[0][1:] {
		switch {
		case strings.HasPrefix(col, "lambda"):
		case strings.HasPrefix(col, "x"):
			numStates++
		case strings.HasPrefix(col, "u"):
			numControls++
		default:
			return nil, fmt.Errorf("%s: unexpected column %q", runID, col)
		}
	}

	rows := len(records) - 1
	traj := &Trajectories{
		Times:    make([]float64, rows),
		States:   dynamo.NewTrajectory(rows, numStates),
		Controls: dynamo.NewTrajectory(rows, numControls),
		Adjoints: dynamo.NewTrajectory(rows, numStates),
	}

	for i, record := range records[1:] {
		values := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d: %w", runID, i+1, err)
			}
			values[j] = v
		}
		traj.Times[i] = values[0]
		copy(traj.States[i], values[1:1+numStates])
		copy(traj.Controls[i], values[1+numStates:1+numStates+numControls])
		copy(traj.Adjoints[i], values[1+numStates+numControls:])
	}
	return traj, nil
}
