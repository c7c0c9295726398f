package scene

import (
	"github.com/banshee-data/scene.report/internal/kinematics"
)

// Info describes the scene being summarised.
type Info struct {
	Index int `json:"scene_index"`
	// Duration is end_time - start_time in seconds.
	Duration  float64 `json:"duration"`
	NumFrames int     `json:"num_frames"`
	Host      string  `json:"host"`
	StartTime int64   `json:"start_time"`
	EndTime   int64   `json:"end_time"`
}

// FrameSummary describes the first frame of a scene.
type FrameSummary struct {
	Timestamp   int64     `json:"timestamp"`
	AgentCount  int       `json:"agent_count"`
	EgoPosition []float64 `json:"ego_position"`
}

// SnapshotContext is the state of a scene at its first frame.
type SnapshotContext struct {
	SceneInfo  Info                             `json:"scene_info"`
	FirstFrame FrameSummary                     `json:"first_frame"`
	EgoVehicle kinematics.EgoPose               `json:"ego_vehicle"`
	Agents     []kinematics.AgentSnapshot       `json:"agents"`
	Traffic    []kinematics.TrafficLightSummary `json:"traffic"`
}

// EgoTrajectory is the ego vehicle pose at the first and last frame.
type EgoTrajectory struct {
	InitialPosition []float64 `json:"initial_position"`
	FinalPosition   []float64 `json:"final_position"`
	InitialRotation []float64 `json:"initial_rotation"`
	InitialYaw      float64   `json:"initial_yaw"`
	FinalYaw        float64   `json:"final_yaw"`
}

// TrajectoryContext summarises agent movement across a whole scene.
type TrajectoryContext struct {
	SceneInfo  Info                             `json:"scene_info"`
	EgoVehicle EgoTrajectory                    `json:"ego_vehicle"`
	Pairing    PairingPolicy                    `json:"pairing"`
	Agents     []kinematics.AgentTrajectory     `json:"agents"`
	Traffic    []kinematics.TrafficLightSummary `json:"traffic"`
}
