package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scene.report/internal/kinematics"
	"github.com/banshee-data/scene.report/internal/scene"
)

func trajectoryContext() *scene.TrajectoryContext {
	return &scene.TrajectoryContext{
		SceneInfo: scene.Info{Duration: 5, NumFrames: 5, Host: "host-a"},
		EgoVehicle: scene.EgoTrajectory{
			InitialPosition: []float64{1, 2, 0},
			FinalPosition:   []float64{11, 2, 0},
		},
		Agents: []kinematics.AgentTrajectory{
			{
				Type:    kinematics.Vehicle,
				TrackID: 7,
				Trajectory: kinematics.Trajectory{
					InitialPosition: []float64{0, 0},
					FinalPosition:   []float64{10, 0},
					AverageVelocity: []float64{2, 0},
				},
				Size: []float64{4.5, 2, 1.5},
			},
		},
		Traffic: []kinematics.TrafficLightSummary{},
	}
}

func TestScenarioPrompt(t *testing.T) {
	b, err := NewBuilder("mps")
	require.NoError(t, err)

	p, err := b.Scenario(trajectoryContext())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(p, "<|system|>\n"))
	assert.True(t, strings.HasSuffix(p, "<|assistant|>"))
	assert.Contains(t, p, "Scene Duration: 5.00 seconds\n")
	assert.Contains(t, p, "Location: Recorded by host-a\n")
	assert.Contains(t, p, "- Initial Position: [1.00, 2.00, 0.00]\n")
	assert.Contains(t, p, "Other Agents (1 total):\n- VEHICLE:\n  * Track ID: 7\n")
	assert.Contains(t, p, "  * Movement: [0.00, 0.00] → [10.00, 0.00]\n")
	assert.Contains(t, p, "  * Speed: 2.00 m/s\n")
	assert.Contains(t, p, "  * Size: [4.50, 2.00, 1.50] (L×W×H)\n\nTraffic Context:\nNo traffic light data available\n\n")
	assert.Equal(t, 2, strings.Count(p, "<|endoftext|>"))
}

func TestScenarioPromptTrafficAndUnits(t *testing.T) {
	b, err := NewBuilder("kmph")
	require.NoError(t, err)

	ctx := trajectoryContext()
	ctx.Traffic = []kinematics.TrafficLightSummary{
		{ID: "face-1", Status: kinematics.Red},
		{ID: "face-2", Status: kinematics.StatusUnknown},
	}
	p, err := b.Scenario(ctx)
	require.NoError(t, err)

	assert.Contains(t, p, "  * Speed: 7.20 km/h\n")
	assert.Contains(t, p, "Traffic Context:\nTraffic Light States:\n- Light face-1: RED\n- Light face-2: UNKNOWN\n\n")
	assert.NotContains(t, p, "No traffic light data available")
}

func TestScenarioPromptNoAgents(t *testing.T) {
	b, err := NewBuilder("mps")
	require.NoError(t, err)
	ctx := trajectoryContext()
	ctx.Agents = nil
	p, err := b.Scenario(ctx)
	require.NoError(t, err)
	assert.Contains(t, p, "Other Agents (0 total):\n\nTraffic Context:")

	_, err = b.Scenario(nil)
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	b, err := NewBuilder("mph")
	require.NoError(t, err)
	p, err := b.Ping()
	require.NoError(t, err)
	assert.Equal(t, "<|system|>\nYou are a helpful assistant\n<|endoftext|>\n<|user|>\nGenerate a simple test case\n<|endoftext|>\n<|assistant|>", p)
}

func TestNewBuilderRejectsUnits(t *testing.T) {
	_, err := NewBuilder("furlongs")
	assert.Error(t, err)
}

func TestFormatVector(t *testing.T) {
	assert.Equal(t, "[]", FormatVector(nil))
	assert.Equal(t, "[1.25, -3.00]", FormatVector([]float64{1.25, -3}))
}
