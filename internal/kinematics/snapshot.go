package kinematics

import (
	"github.com/banshee-data/scene.report/internal/dataset"
)

// AgentSnapshot is one agent at one frame, detached from the source table.
type AgentSnapshot struct {
	Type     AgentType `json:"type"`
	Position []float64 `json:"position"`
	Velocity []float64 `json:"velocity"`
	Heading  float64   `json:"heading"`
	Size     []float64 `json:"size"`
	TrackID  uint64    `json:"track_id"`
}

// NewSnapshot classifies a and copies its vectors.
func NewSnapshot(a dataset.Agent, mode HeadingMode) AgentSnapshot {
	return AgentSnapshot{
		Type:     Classify(a.LabelProbabilities),
		Position: clone(a.Centroid),
		Velocity: clone(a.Velocity),
		Heading:  mode.Apply(a.Yaw),
		Size:     clone(a.Extent),
		TrackID:  a.TrackID,
	}
}

// Snapshots converts a slice of agents in order.
func Snapshots(agents []dataset.Agent, mode HeadingMode) []AgentSnapshot {
	out := make([]AgentSnapshot, len(agents))
	for i, a := range agents {
		out[i] = NewSnapshot(a, mode)
	}
	return out
}

// Length returns the first extent component, or 0 when the size is empty.
func (s AgentSnapshot) Length() float64 {
	if len(s.Size) == 0 {
		return 0
	}
	return s.Size[0]
}
