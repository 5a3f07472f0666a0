package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/fbsweep/internal/dynamo"
	"github.com/san-kum/fbsweep/internal/sweep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *sweep.Result {
	return &sweep.Result{
		Times:      []float64{0, 0.5, 1},
		States:     dynamo.Trajectory{{1, 0}, {0.9, -0.1}, {0.7, -0.3}},
		Controls:   dynamo.Trajectory{{0.25}, {0.5}, {1.0 / 3.0}},
		Adjoints:   dynamo.Trajectory{{2, 1}, {1.5, 0.5}, {0, 0}},
		Iterations: 12,
		Margin:     3e-5,
		Converged:  true,
	}
}

func sampleMeta() RunMetadata {
	return RunMetadata{
		Problem:          "doubleint",
		FinalTime:        1,
		Step:             0.5,
		Tolerance:        1e-4,
		Relaxation:       0.5,
		MaxIterations:    500,
		Seed:             42,
		X0:               []float64{1, 0},
		FreeAdjointFinal: []int{0, 1},
		Theta:            []float64{12, -6},
		Params:           map[string]float64{"a": 1.5},
		Metrics:          map[string]float64{"objective": 0.25},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	runID, err := st.Save(sampleMeta(), sampleResult())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(runID, "doubleint_"))

	meta, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, runID, meta.ID)
	assert.Equal(t, "doubleint", meta.Problem)
	assert.Equal(t, int64(42), meta.Seed)
	assert.Equal(t, 12, meta.Iterations)
	assert.True(t, meta.Converged)
	assert.Equal(t, 2, meta.NumStates)
	assert.Equal(t, 1, meta.NumControls)
	assert.Equal(t, 1.5, meta.Params["a"])
	assert.Equal(t, 0.25, meta.Metrics["objective"])
}

func TestStoreLoad_KeepsRunSettings(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	runID, err := st.Save(sampleMeta(), sampleResult())
	require.NoError(t, err)

	meta, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, 500, meta.MaxIterations)
	assert.Equal(t, []float64{1, 0}, meta.X0)
	assert.Equal(t, []int{0, 1}, meta.FreeAdjointFinal)
	assert.Equal(t, []float64{12, -6}, meta.Theta)
}

func TestStoreLoadTrajectories_RoundTrip(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	result := sampleResult()
	runID, err := st.Save(sampleMeta(), result)
	require.NoError(t, err)

	traj, err := st.LoadTrajectories(runID)
	require.NoError(t, err)
	assert.Equal(t, result.Times, traj.Times)
	assert.Equal(t, result.States, traj.States)
	assert.Equal(t, result.Controls, traj.Controls)
	assert.Equal(t, result.Adjoints, traj.Adjoints)
}

func TestStoreCSVHeader(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	runID, err := st.Save(sampleMeta(), sampleResult())
	require.NoError(t, err)

	data, err := os.ReadFile(st.TrajectoriesPath(runID))
	require.NoError(t, err)
	firstLine := strings.SplitN(string(data), "\n", 2)[0]
	assert.Equal(t, "time,x0,x1,u0,lambda0,lambda1", firstLine)
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	require.NoError(t, st.Init())

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)

	_, err = st.Save(sampleMeta(), sampleResult())
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "not-a-run"), 0755))

	runs, err = st.List()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestStoreList_MissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "absent"))
	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	require.NoError(t, st.Init())

	runID, err := st.Save(sampleMeta(), sampleResult())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(tmpDir, runID, "metadata.json"))
	assert.FileExists(t, filepath.Join(tmpDir, runID, "trajectories.csv"))
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	runID, err := st.Save(sampleMeta(), sampleResult())
	require.NoError(t, err)
	meta, err := st.Load(runID)
	require.NoError(t, err)
	traj, err := st.LoadTrajectories(runID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, *meta, traj))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "doubleint", decoded["problem"])
	assert.Len(t, decoded["adjoints"], 3)
	assert.Len(t, decoded["times"], 3)
}
