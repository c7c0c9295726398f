package visualiser

import (
	"bytes"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scene.report/internal/kinematics"
	"github.com/banshee-data/scene.report/internal/scene"
)

func snapshot() *scene.SnapshotContext {
	return &scene.SnapshotContext{
		SceneInfo:  scene.Info{Index: 4, Host: "host-a", Duration: 5, NumFrames: 50},
		EgoVehicle: kinematics.EgoPose{Position: []float64{0, 0, 0}},
		Agents: []kinematics.AgentSnapshot{
			{Type: kinematics.Vehicle, Position: []float64{10, 0}, Velocity: []float64{3, 4}, Heading: 0, Size: []float64{4.5, 2, 1.5}, TrackID: 1},
			{Type: kinematics.Pedestrian, Position: []float64{-5, 5}, Velocity: []float64{0, 0}, Heading: math.Pi / 2, Size: []float64{0.5, 0.5, 1.8}, TrackID: 2},
			{Type: kinematics.Unknown, Position: []float64{2, -3}, TrackID: 3},
		},
	}
}

func TestArrows(t *testing.T) {
	arrows := Arrows(snapshot().Agents)
	require.Len(t, arrows, 4, "stationary agents get only a heading arrow")

	vel := arrows[0]
	assert.Equal(t, VelocityArrow, vel.Kind)
	assert.Equal(t, 6.0, vel.DX)
	assert.Equal(t, 8.0, vel.DY)
	assert.InDelta(t, 10.0, vel.Length(), 1e-9)

	carHeading := arrows[1]
	assert.Equal(t, HeadingArrow, carHeading.Kind)
	assert.InDelta(t, 4.5, carHeading.Length(), 1e-9)

	pedHeading := arrows[2]
	assert.Equal(t, uint64(2), pedHeading.TrackID)
	assert.InDelta(t, 2.0, pedHeading.Length(), 1e-9, "short agents use the minimum length")
	assert.InDelta(t, 0.0, pedHeading.DX, 1e-9)
	assert.InDelta(t, 2.0, pedHeading.DY, 1e-9)

	assert.InDelta(t, 2.0, arrows[3].Length(), 1e-9, "agents without a size use the minimum length")
}

func TestEqualBounds(t *testing.T) {
	b := EqualBounds([][2]float64{{0, 0}, {10, 2}}, 1)
	assert.InDelta(t, b.MaxX-b.MinX, b.MaxY-b.MinY, 1e-9)
	assert.Equal(t, Bounds{-1, 11, -5, 7}, b)

	assert.Equal(t, Bounds{-5, 5, -5, 5}, EqualBounds(nil, 5))
}

func TestColors(t *testing.T) {
	assert.Equal(t, "#e53935", Hex(TypeColor(kinematics.Vehicle)))
	assert.Equal(t, unknownColor, TypeColor(kinematics.Unknown))
	assert.Equal(t, "#000000", Hex(color.RGBA{}))
}

func TestPNG(t *testing.T) {
	data, err := PNG(snapshot())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dy())
	assert.Equal(t, img.Bounds().Dx()*2, img.Bounds().Dy()*3, "15x10 aspect")
}

func TestScenePlotEmpty(t *testing.T) {
	ctx := snapshot()
	ctx.Agents = nil
	p, err := ScenePlot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "X Position (m)", p.X.Label.Text)
}

func TestChartHTML(t *testing.T) {
	html, err := ChartHTML(snapshot())
	require.NoError(t, err)
	s := string(html)
	assert.Contains(t, s, "Scene Overview")
	assert.Contains(t, s, "Ego Vehicle")
	assert.Contains(t, s, "VEHICLE")
	assert.Contains(t, s, "PEDESTRIAN")
	assert.NotContains(t, s, "TRUCK")
}
