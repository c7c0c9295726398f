package kinematics

import (
	"encoding/json"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/scene.report/internal/dataset"
)

// TrafficLightStatus is the state of one traffic-light face.
type TrafficLightStatus int

const (
	Red TrafficLightStatus = iota
	Yellow
	Green
	// StatusUnknown is reported for empty status vectors and indices past
	// Green.
	StatusUnknown
)

func (s TrafficLightStatus) String() string {
	switch s {
	case Red:
		return "RED"
	case Yellow:
		return "YELLOW"
	case Green:
		return "GREEN"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON encodes the status by name.
func (s TrafficLightStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// TrafficLightSummary is the reduced form of a face.
type TrafficLightSummary struct {
	ID     string             `json:"id"`
	Status TrafficLightStatus `json:"status"`
}

// Summarize reduces a face to its id and the status with the largest
// weight.
func Summarize(face dataset.TrafficLightFace) TrafficLightSummary {
	status := StatusUnknown
	if len(face.Status) > 0 {
		if i := floats.MaxIdx(face.Status); i < int(StatusUnknown) {
			status = TrafficLightStatus(i)
		}
	}
	return TrafficLightSummary{ID: face.FaceID, Status: status}
}
