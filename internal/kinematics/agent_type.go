// Package kinematics classifies agents and derives trajectory summaries
// from per-frame agent records.
package kinematics

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// AgentType is the closed set of agent classes. The numeric value is the
// label_probabilities index the class is reported at.
type AgentType int

const (
	Unknown AgentType = iota
	Pedestrian
	Bicycle
	Vehicle
	Motorcycle
	Cyclist
	Bus
	Truck
	EmergencyVehicle

	numAgentTypes
)

var agentTypeNames = [numAgentTypes]string{
	Unknown:          "UNKNOWN",
	Pedestrian:       "PEDESTRIAN",
	Bicycle:          "BICYCLE",
	Vehicle:          "VEHICLE",
	Motorcycle:       "MOTORCYCLE",
	Cyclist:          "CYCLIST",
	Bus:              "BUS",
	Truck:            "TRUCK",
	EmergencyVehicle: "EMERGENCY_VEHICLE",
}

// AgentTypes returns every class in index order.
func AgentTypes() []AgentType {
	out := make([]AgentType, numAgentTypes)
	for i := range out {
		out[i] = AgentType(i)
	}
	return out
}

func (t AgentType) String() string {
	if t < 0 || t >= numAgentTypes {
		return agentTypeNames[Unknown]
	}
	return agentTypeNames[t]
}

// MarshalJSON encodes the type by name.
func (t AgentType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts a class name.
func (t *AgentType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("agent type: %w", err)
	}
	v, err := ParseAgentType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseAgentType maps a class name back to its AgentType.
func ParseAgentType(s string) (AgentType, error) {
	for i, name := range agentTypeNames {
		if name == s {
			return AgentType(i), nil
		}
	}
	return Unknown, fmt.Errorf("unknown agent type %q", s)
}

// Classify returns the class at the index of the largest probability. Ties
// go to the lowest index. An empty vector, or a maximum past the known
// classes, is Unknown.
func Classify(probs []float64) AgentType {
	if len(probs) == 0 {
		return Unknown
	}
	i := floats.MaxIdx(probs)
	if i >= int(numAgentTypes) {
		return Unknown
	}
	return AgentType(i)
}
