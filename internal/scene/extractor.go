// Package scene walks the scene, frame and agent tables for one scene and
// builds JSON-ready summaries of it.
package scene

import (
	"errors"
	"fmt"

	"github.com/banshee-data/scene.report/internal/dataset"
	"github.com/banshee-data/scene.report/internal/kinematics"
	"github.com/banshee-data/scene.report/internal/monitoring"
	"github.com/banshee-data/scene.report/internal/units"
)

var (
	// ErrSceneNotFound is returned for a scene index outside the scenes table.
	ErrSceneNotFound = errors.New("scene not found")
	// ErrEmptyScene is returned when a scene's frame interval is empty.
	ErrEmptyScene = errors.New("scene has no frames")
)

// Options controls extraction.
type Options struct {
	Pairing     PairingPolicy          `json:"pairing"`
	HeadingMode kinematics.HeadingMode `json:"heading_mode"`
}

// Extractor reads scenes from a dataset. It holds no mutable state and may
// be shared between goroutines as long as the dataset is not written to.
type Extractor struct {
	ds   *dataset.Dataset
	opts Options
}

// NewExtractor returns an Extractor over ds. Zero options select track_id
// pairing and wrapped headings.
func NewExtractor(ds *dataset.Dataset, opts Options) *Extractor {
	if opts.Pairing == "" {
		opts.Pairing = PairByTrackID
	}
	if opts.HeadingMode == "" {
		opts.HeadingMode = kinematics.HeadingWrapped
	}
	return &Extractor{ds: ds, opts: opts}
}

// Options returns the effective options.
func (e *Extractor) Options() Options { return e.opts }

// NumScenes returns the number of scenes in the dataset.
func (e *Extractor) NumScenes() int {
	if e.ds.Scenes == nil {
		return 0
	}
	return e.ds.Scenes.Len()
}

// DatasetInfo returns the table sizes of the underlying dataset.
func (e *Extractor) DatasetInfo() dataset.Info { return e.ds.Info() }

// sceneFrames resolves a scene and its frame slice.
func (e *Extractor) sceneFrames(idx int) (dataset.Scene, []dataset.Frame, error) {
	if idx < 0 || idx >= e.NumScenes() {
		return dataset.Scene{}, nil, fmt.Errorf("%w: index %d of %d scenes", ErrSceneNotFound, idx, e.NumScenes())
	}
	sc, err := dataset.At(e.ds.Scenes, idx)
	if err != nil {
		return dataset.Scene{}, nil, fmt.Errorf("read scene %d: %w", idx, err)
	}
	frames, err := dataset.Resolve(e.ds.Frames, sc.FrameIndexInterval)
	if err != nil {
		return sc, nil, fmt.Errorf("scene %d frames %s: %w", idx, sc.FrameIndexInterval, err)
	}
	if len(frames) == 0 {
		return sc, nil, fmt.Errorf("%w: scene %d", ErrEmptyScene, idx)
	}
	return sc, frames, nil
}

func sceneInfo(idx int, sc dataset.Scene, numFrames int) Info {
	return Info{
		Index:     idx,
		Duration:  units.NanosToSeconds(sc.DurationNanos()),
		NumFrames: numFrames,
		Host:      sc.Host,
		StartTime: sc.StartTime,
		EndTime:   sc.EndTime,
	}
}

func (e *Extractor) agents(f dataset.Frame) ([]kinematics.AgentSnapshot, error) {
	agents, err := dataset.Resolve(e.ds.Agents, f.AgentIndexInterval)
	if err != nil {
		return nil, fmt.Errorf("frame %d agents %s: %w", f.Timestamp, f.AgentIndexInterval, err)
	}
	return kinematics.Snapshots(agents, e.opts.HeadingMode), nil
}

// traffic summarises the frame's traffic-light faces. Frames without the
// optional interval, and datasets without the table, yield an empty list.
func (e *Extractor) traffic(f dataset.Frame) ([]kinematics.TrafficLightSummary, error) {
	out := []kinematics.TrafficLightSummary{}
	if f.TrafficLightFacesIndexInterval == nil || e.ds.TrafficLightFaces == nil {
		return out, nil
	}
	faces, err := dataset.Resolve(e.ds.TrafficLightFaces, *f.TrafficLightFacesIndexInterval)
	if err != nil {
		return nil, fmt.Errorf("frame %d traffic lights %s: %w", f.Timestamp, *f.TrafficLightFacesIndexInterval, err)
	}
	for _, face := range faces {
		out = append(out, kinematics.Summarize(face))
	}
	return out, nil
}

// Snapshot summarises scene idx at its first frame.
func (e *Extractor) Snapshot(idx int) (*SnapshotContext, error) {
	defer monitoring.Timed(fmt.Sprintf("snapshot scene %d", idx))()

	sc, frames, err := e.sceneFrames(idx)
	if err != nil {
		return nil, err
	}
	first := frames[0]
	agents, err := e.agents(first)
	if err != nil {
		return nil, err
	}
	ego, err := kinematics.NewEgoPose(first.EgoTranslation, first.EgoRotation, e.opts.HeadingMode)
	if err != nil {
		return nil, fmt.Errorf("scene %d ego pose: %w", idx, err)
	}
	traffic, err := e.traffic(first)
	if err != nil {
		return nil, err
	}

	return &SnapshotContext{
		SceneInfo: sceneInfo(idx, sc, len(frames)),
		FirstFrame: FrameSummary{
			Timestamp:   first.Timestamp,
			AgentCount:  len(agents),
			EgoPosition: append([]float64(nil), first.EgoTranslation...),
		},
		EgoVehicle: ego,
		Agents:     agents,
		Traffic:    traffic,
	}, nil
}

// Trajectories summarises agent movement between the first and last frame
// of scene idx. Average velocities use the scene duration.
func (e *Extractor) Trajectories(idx int) (*TrajectoryContext, error) {
	defer monitoring.Timed(fmt.Sprintf("trajectories scene %d", idx))()

	sc, frames, err := e.sceneFrames(idx)
	if err != nil {
		return nil, err
	}
	first, last := frames[0], frames[len(frames)-1]

	initial, err := e.agents(first)
	if err != nil {
		return nil, err
	}
	final, err := e.agents(last)
	if err != nil {
		return nil, err
	}
	startEgo, err := kinematics.NewEgoPose(first.EgoTranslation, first.EgoRotation, e.opts.HeadingMode)
	if err != nil {
		return nil, fmt.Errorf("scene %d ego pose: %w", idx, err)
	}
	endEgo, err := kinematics.NewEgoPose(last.EgoTranslation, last.EgoRotation, e.opts.HeadingMode)
	if err != nil {
		return nil, fmt.Errorf("scene %d ego pose: %w", idx, err)
	}
	traffic, err := e.traffic(first)
	if err != nil {
		return nil, err
	}

	info := sceneInfo(idx, sc, len(frames))
	pairs := Pair(initial, final, e.opts.Pairing)
	if dropped := len(initial) - len(pairs); dropped > 0 {
		monitoring.Debugf("scene %d: %d of %d agents unmatched under %s pairing", idx, dropped, len(initial), e.opts.Pairing)
	}

	trajectories := make([]kinematics.AgentTrajectory, 0, len(pairs))
	for _, p := range pairs {
		t, err := kinematics.Derive(p.Initial, p.Final, info.Duration)
		if err != nil {
			return nil, fmt.Errorf("scene %d track %d: %w", idx, p.Initial.TrackID, err)
		}
		trajectories = append(trajectories, t)
	}

	return &TrajectoryContext{
		SceneInfo: info,
		EgoVehicle: EgoTrajectory{
			InitialPosition: startEgo.Position,
			FinalPosition:   endEgo.Position,
			InitialRotation: startEgo.Rotation,
			InitialYaw:      startEgo.Yaw,
			FinalYaw:        endEgo.Yaw,
		},
		Pairing: e.opts.Pairing,
		Agents:  trajectories,
		Traffic: traffic,
	}, nil
}
