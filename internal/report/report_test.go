package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scene.report/internal/fsutil"
	"github.com/banshee-data/scene.report/internal/kinematics"
	"github.com/banshee-data/scene.report/internal/scene"
)

func snapshotContext() *scene.SnapshotContext {
	return &scene.SnapshotContext{
		SceneInfo:  scene.Info{Index: 2, Duration: 5, NumFrames: 50, Host: "host-a"},
		FirstFrame: scene.FrameSummary{Timestamp: 1234, AgentCount: 1, EgoPosition: []float64{1, 2, 0}},
		EgoVehicle: kinematics.EgoPose{Position: []float64{1, 2, 0}, Yaw: math.Pi / 2},
		Agents: []kinematics.AgentSnapshot{
			{Type: kinematics.Truck, Position: []float64{3.14159, -2}, Velocity: []float64{1, 0}, Heading: math.Pi / 4, Size: []float64{8, 2.5, 3}, TrackID: 42},
		},
		Traffic: []kinematics.TrafficLightSummary{{ID: "f1", Status: kinematics.Green}},
	}
}

func trajectoryContext() *scene.TrajectoryContext {
	return &scene.TrajectoryContext{
		SceneInfo: scene.Info{Duration: 5, NumFrames: 50, Host: "host-a"},
		Pairing:   scene.PairByTrackID,
		Agents: []kinematics.AgentTrajectory{{
			Type:    kinematics.Vehicle,
			TrackID: 7,
			Trajectory: kinematics.Trajectory{
				InitialPosition: []float64{0, 0},
				FinalPosition:   []float64{10, 0},
				AverageVelocity: []float64{2, 0},
				HeadingChange:   math.Pi / 2,
			},
			Size: []float64{4, 2, 1.5},
		}},
		Traffic: []kinematics.TrafficLightSummary{},
	}
}

func TestWriteSnapshot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, snapshotContext()))
	out := buf.String()

	for _, want := range []string{
		"Scene Duration: 5.00 seconds",
		"Host: host-a",
		"Total Frames: 50",
		"Timestamp: 1234",
		"Number of agents: 1",
		"Ego vehicle position: [1.00, 2.00, 0.00]",
		"Ego vehicle heading: 90.0°",
		"TRUCK",
		"(3.14, -2.00)",
		"8.00×2.50×3.00",
		"45.0°",
		"- f1: GREEN",
	} {
		assert.Contains(t, out, want)
	}
}

func TestWriteTrajectories(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTrajectories(&buf, trajectoryContext(), "mph"))
	assert.Contains(t, buf.String(), "- VEHICLE #7: (0.00, 0.00) → (10.00, 0.00) at 4.47 mph (heading change 90.0°)")
	assert.Contains(t, buf.String(), "track_id pairing")
}

func TestWriteScenario(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScenario(&buf, "Feature: lane change\n\nScenario: merge", 0))
	assert.Contains(t, buf.String(), "Generated Scenario:")
	assert.Contains(t, buf.String(), "lane change")
}

func TestAgentTableEmptyVectors(t *testing.T) {
	out := AgentTable([]kinematics.AgentSnapshot{{Type: kinematics.Unknown}})
	assert.Contains(t, out, "UNKNOWN")
	assert.Contains(t, out, "(0.00, 0.00)")
}

func TestSaveAnalysis(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	w := NewWriter(fs, "output")

	path, err := w.SaveAnalysis(snapshotContext())
	require.NoError(t, err)
	assert.Equal(t, "output/scene_analysis.json", path)

	data, err := fs.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"scene_info\": {\n    \"scene_index\": 2,"), "two-space indent: %s", data)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	agents := doc["agents"].([]interface{})
	assert.Equal(t, "TRUCK", agents[0].(map[string]interface{})["type"])
}

func TestSaveScenario(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	w := NewWriter(fs, "/tmp/out")

	path, err := w.SaveScenario(trajectoryContext(), "Feature: merge")
	require.NoError(t, err)

	data, err := fs.ReadFile(path)
	require.NoError(t, err)
	var doc struct {
		SceneContext      map[string]interface{} `json:"scene_context"`
		GeneratedScenario string                 `json:"generated_scenario"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "Feature: merge", doc.GeneratedScenario)
	assert.Equal(t, "track_id", doc.SceneContext["pairing"])
	assert.Equal(t, []interface{}{}, doc.SceneContext["traffic"])
}

func TestWriterRejectsEscapes(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	w := NewWriter(fs, "output")

	_, err := w.WriteFile("../evil.json", []byte("x"))
	assert.Error(t, err)
	assert.False(t, fs.Exists("evil.json"))
	assert.Empty(t, fs.Files("output"))

	p, err := w.WriteFile("scene-1/plot.png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "output/scene-1/plot.png", p)

	w.Validate = func(path, dir string) error { return errors.New("denied") }
	_, err = w.WriteJSON(AnalysisFile, map[string]int{})
	assert.ErrorContains(t, err, "denied")
}
