package scene

import (
	"fmt"

	"github.com/banshee-data/scene.report/internal/kinematics"
)

// PairingPolicy selects how agents in the first and last frame are matched.
type PairingPolicy string

const (
	// PairByTrackID joins the two frames on track_id. Agents present in only
	// one frame are dropped and the first frame's order is kept. When a
	// track_id repeats within a frame the first occurrence is used.
	PairByTrackID PairingPolicy = "track_id"
	// PairPositional zips the two frames by table position and truncates to
	// the shorter frame.
	PairPositional PairingPolicy = "positional"
)

// ParsePairingPolicy validates a configured policy. Empty means track_id.
func ParsePairingPolicy(s string) (PairingPolicy, error) {
	switch PairingPolicy(s) {
	case "", PairByTrackID:
		return PairByTrackID, nil
	case PairPositional:
		return PairPositional, nil
	}
	return "", fmt.Errorf("invalid pairing policy %q (want %q or %q)", s, PairByTrackID, PairPositional)
}

// AgentPair is one agent observed in both frames.
type AgentPair struct {
	Initial kinematics.AgentSnapshot
	Final   kinematics.AgentSnapshot
}

// Pair matches initial against final under policy.
func Pair(initial, final []kinematics.AgentSnapshot, policy PairingPolicy) []AgentPair {
	if policy == PairPositional {
		n := min(len(initial), len(final))
		pairs := make([]AgentPair, n)
		for i := 0; i < n; i++ {
			pairs[i] = AgentPair{Initial: initial[i], Final: final[i]}
		}
		return pairs
	}

	byID := make(map[uint64]int, len(final))
	for i, a := range final {
		if _, seen := byID[a.TrackID]; !seen {
			byID[a.TrackID] = i
		}
	}
	pairs := make([]AgentPair, 0, min(len(initial), len(final)))
	used := make(map[uint64]bool, len(initial))
	for _, a := range initial {
		j, ok := byID[a.TrackID]
		if !ok || used[a.TrackID] {
			continue
		}
		used[a.TrackID] = true
		pairs = append(pairs, AgentPair{Initial: a, Final: final[j]})
	}
	return pairs
}
