package dataset

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scene.report/internal/fsutil"
	"github.com/banshee-data/scene.report/internal/zarr"
)

func TestSynthetic(t *testing.T) {
	m := Synthetic(SyntheticOptions{Scenes: 3, FramesPerScene: 10, AgentsPerFrame: 4, TrafficLights: true, Seed: 7})

	require.Len(t, m.Scenes, 3)
	require.Len(t, m.Frames, 30)
	// The last agent of each scene leaves after five frames.
	assert.Len(t, m.Agents, 3*(10*3+5))
	assert.Len(t, m.TrafficLightFaces, 30)

	for i, sc := range m.Scenes {
		assert.Equal(t, Interval{Start: i * 10, End: (i + 1) * 10}, sc.FrameIndexInterval)
		assert.Equal(t, int64(1_000_000_000), sc.DurationNanos())
	}

	first := m.Frames[0].AgentIndexInterval
	last := m.Frames[9].AgentIndexInterval
	assert.Equal(t, 4, first.Len())
	assert.Equal(t, 3, last.Len())
	assert.Equal(t, m.Agents[first.Start].TrackID, m.Agents[last.Start].TrackID)

	again := Synthetic(SyntheticOptions{Scenes: 3, FramesPerScene: 10, AgentsPerFrame: 4, TrafficLights: true, Seed: 7})
	if diff := cmp.Diff(m, again); diff != "" {
		t.Errorf("same seed produced different data (-first +second):\n%s", diff)
	}
}

func TestSyntheticWithoutTrafficLights(t *testing.T) {
	m := Synthetic(SyntheticOptions{Scenes: 1, FramesPerScene: 2, AgentsPerFrame: 1})
	assert.Nil(t, m.TrafficLightFaces)
	assert.Nil(t, m.Frames[0].TrafficLightFacesIndexInterval)
	assert.Nil(t, m.Dataset().TrafficLightFaces)
}

func TestSyntheticRoundTrip(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	want := Synthetic(SyntheticOptions{Scenes: 2, FramesPerScene: 5, AgentsPerFrame: 3, TrafficLights: true, Seed: 1})
	require.NoError(t, Write(fs, "synthetic.zarr", want, WriteOptions{ChunkLen: 7, Compressor: &zarr.Compressor{ID: "zstd", Level: 3}}))

	ds, err := Open(fs, "synthetic.zarr")
	require.NoError(t, err)
	defer ds.Close()

	agents, err := Resolve(ds.Agents, Interval{Start: 0, End: len(want.Agents)})
	require.NoError(t, err)
	if diff := cmp.Diff(want.Agents, agents); diff != "" {
		t.Errorf("agents mismatch (-want +got):\n%s", diff)
	}
	frames, err := Resolve(ds.Frames, Interval{Start: 0, End: len(want.Frames)})
	require.NoError(t, err)
	if diff := cmp.Diff(want.Frames, frames); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
}
