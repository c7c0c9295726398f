package kinematics

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrInvalidDuration is returned when a trajectory is derived over a
// non-positive time span.
var ErrInvalidDuration = errors.New("duration must be positive")

// Trajectory is the movement of one agent between two frames.
type Trajectory struct {
	InitialPosition []float64 `json:"initial_position"`
	FinalPosition   []float64 `json:"final_position"`
	InitialVelocity []float64 `json:"initial_velocity"`
	AverageVelocity []float64 `json:"average_velocity"`
	InitialHeading  float64   `json:"initial_heading"`
	FinalHeading    float64   `json:"final_heading"`
	// HeadingChange is FinalHeading - InitialHeading wrapped to [-π, π).
	HeadingChange float64 `json:"heading_change"`
}

// AgentTrajectory pairs an agent's class and size with its trajectory.
type AgentTrajectory struct {
	Type       AgentType  `json:"type"`
	TrackID    uint64     `json:"track_id"`
	Trajectory Trajectory `json:"trajectory"`
	Size       []float64  `json:"size"`
}

// Speed returns the Euclidean norm of the average velocity.
func (t AgentTrajectory) Speed() float64 {
	return Speed(t.Trajectory.AverageVelocity)
}

// Derive computes the trajectory from initial to final over durationSecs.
// Class, track id and size come from the initial snapshot. Positions of
// different dimensionality are compared over their shared components.
func Derive(initial, final AgentSnapshot, durationSecs float64) (AgentTrajectory, error) {
	if !(durationSecs > 0) {
		return AgentTrajectory{}, fmt.Errorf("%w: got %g", ErrInvalidDuration, durationSecs)
	}
	avg := Displacement(initial.Position, final.Position)
	floats.Scale(1/durationSecs, avg)

	return AgentTrajectory{
		Type:    initial.Type,
		TrackID: initial.TrackID,
		Trajectory: Trajectory{
			InitialPosition: clone(initial.Position),
			FinalPosition:   clone(final.Position),
			InitialVelocity: clone(initial.Velocity),
			AverageVelocity: avg,
			InitialHeading:  initial.Heading,
			FinalHeading:    final.Heading,
			HeadingChange:   HeadingDelta(initial.Heading, final.Heading),
		},
		Size: clone(initial.Size),
	}, nil
}

// Displacement returns to - from over the shared components.
func Displacement(from, to []float64) []float64 {
	n := min(len(from), len(to))
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	floats.SubTo(out, to[:n], from[:n])
	return out
}

// Speed returns the Euclidean norm of v, or 0 for an empty vector.
func Speed(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Norm(v, 2)
}
