package dataset

import (
	"encoding/json"
	"fmt"
)

// Table names inside a dataset store.
const (
	TableScenes            = "scenes"
	TableFrames            = "frames"
	TableAgents            = "agents"
	TableTrafficLightFaces = "traffic_light_faces"
)

// Interval is a half-open [Start, End) range of record offsets.
type Interval struct {
	Start int
	End   int
}

// Len returns the number of records the interval spans, or 0 if it is inverted.
func (iv Interval) Len() int {
	if iv.End < iv.Start {
		return 0
	}
	return iv.End - iv.Start
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%d, %d)", iv.Start, iv.End)
}

// MarshalJSON encodes the interval as a two element array.
func (iv Interval) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{iv.Start, iv.End})
}

// UnmarshalJSON decodes a two element array.
func (iv *Interval) UnmarshalJSON(b []byte) error {
	var pair [2]int
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("interval: %w", err)
	}
	iv.Start, iv.End = pair[0], pair[1]
	return nil
}

// Scene is one recorded drive segment.
type Scene struct {
	FrameIndexInterval Interval `json:"frame_index_interval"`
	// StartTime and EndTime are nanosecond timestamps.
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	Host      string `json:"host"`
}

// DurationNanos returns EndTime - StartTime.
func (s Scene) DurationNanos() int64 {
	return s.EndTime - s.StartTime
}

// Frame is one timestep of a scene.
type Frame struct {
	Timestamp          int64    `json:"timestamp"`
	AgentIndexInterval Interval `json:"agent_index_interval"`
	// EgoTranslation is the ego vehicle position (x, y, z) in metres.
	EgoTranslation []float64 `json:"ego_translation"`
	// EgoRotation is either a row-major 3x3 rotation matrix (9 values) or a
	// unit quaternion (w, x, y, z).
	EgoRotation []float64 `json:"ego_rotation"`
	// TrafficLightFacesIndexInterval is nil when the frame schema carries no
	// traffic-light interval.
	TrafficLightFacesIndexInterval *Interval `json:"traffic_light_faces_index_interval,omitempty"`
}

// Agent is a perceived road user within a frame.
type Agent struct {
	// Centroid is the 2D or 3D position in metres.
	Centroid []float64 `json:"centroid"`
	// Extent is the bounding box (length, width, height) in metres.
	Extent []float64 `json:"extent"`
	// Yaw is the heading in radians.
	Yaw      float64   `json:"yaw"`
	Velocity []float64 `json:"velocity"`
	TrackID  uint64    `json:"track_id"`
	// LabelProbabilities holds one weight per agent class.
	LabelProbabilities []float64 `json:"label_probabilities"`
}

// TrafficLightFace is one face (bulb group) of a traffic light.
type TrafficLightFace struct {
	FaceID         string `json:"face_id"`
	TrafficLightID string `json:"traffic_light_id,omitempty"`
	// Status is a one-hot-like vector over RED, YELLOW, GREEN.
	Status []float64 `json:"traffic_light_face_status"`
}
