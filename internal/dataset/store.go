package dataset

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/scene.report/internal/fsutil"
	"github.com/banshee-data/scene.report/internal/monitoring"
	"github.com/banshee-data/scene.report/internal/zarr"
)

// Dataset groups the record tables of one store. TrafficLightFaces is nil
// when the store has no traffic_light_faces table.
type Dataset struct {
	Scenes            Table[Scene]
	Frames            Table[Frame]
	Agents            Table[Agent]
	TrafficLightFaces Table[TrafficLightFace]

	arrays []*zarr.Array
}

// Info summarises table sizes.
type Info struct {
	Scenes            int  `json:"scenes"`
	Frames            int  `json:"frames"`
	Agents            int  `json:"agents"`
	TrafficLightFaces int  `json:"traffic_light_faces"`
	HasTrafficLights  bool `json:"has_traffic_lights"`
}

// Info returns the table sizes of the dataset.
func (d *Dataset) Info() Info {
	info := Info{
		Scenes: lenOf(d.Scenes),
		Frames: lenOf(d.Frames),
		Agents: lenOf(d.Agents),
	}
	if d.TrafficLightFaces != nil {
		info.TrafficLightFaces = d.TrafficLightFaces.Len()
		info.HasTrafficLights = true
	}
	return info
}

func lenOf[T any](t Table[T]) int {
	if t == nil {
		return 0
	}
	return t.Len()
}

// Close releases the decoders of a store opened with Open. It is a no-op
// for in-memory datasets.
func (d *Dataset) Close() {
	for _, a := range d.arrays {
		a.Close()
	}
	d.arrays = nil
}

// Open opens the zarr group at path read-only. The scenes, frames and
// agents arrays are required; traffic_light_faces is optional.
func Open(fsys fsutil.FileSystem, path string, opts ...zarr.Option) (*Dataset, error) {
	if !fsys.Exists(path) {
		return nil, fmt.Errorf("open dataset %s: not found", path)
	}
	if !zarr.IsGroup(fsys, path) {
		monitoring.Logf("dataset %s has no .zgroup; reading arrays directly", path)
	}

	ds := &Dataset{}
	open := func(name string) (*zarr.Array, error) {
		arr, err := zarr.Open(fsys, filepath.Join(path, name), opts...)
		if err != nil {
			return nil, err
		}
		ds.arrays = append(ds.arrays, arr)
		return arr, nil
	}

	scenes, err := open(TableScenes)
	if err != nil {
		ds.Close()
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	frames, err := open(TableFrames)
	if err != nil {
		ds.Close()
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	agents, err := open(TableAgents)
	if err != nil {
		ds.Close()
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}

	for _, req := range []struct {
		arr    *zarr.Array
		fields []string
	}{
		{scenes, []string{"frame_index_interval", "start_time", "end_time", "host"}},
		{frames, []string{"timestamp", "agent_index_interval", "ego_translation", "ego_rotation"}},
		{agents, []string{"centroid", "extent", "yaw", "velocity", "track_id", "label_probabilities"}},
	} {
		for _, name := range req.fields {
			if _, ok := req.arr.Field(name); !ok {
				ds.Close()
				return nil, fmt.Errorf("open dataset %s: %w: %q", path, zarr.ErrNoField, name)
			}
		}
	}

	ds.Scenes = &zarrTable[Scene]{arr: scenes, decode: decodeScene}
	ds.Frames = &zarrTable[Frame]{arr: frames, decode: decodeFrame}
	ds.Agents = &zarrTable[Agent]{arr: agents, decode: decodeAgent}

	if zarr.IsArray(fsys, filepath.Join(path, TableTrafficLightFaces)) {
		faces, err := open(TableTrafficLightFaces)
		if err != nil {
			ds.Close()
			return nil, fmt.Errorf("open dataset %s: %w", path, err)
		}
		ds.TrafficLightFaces = &zarrTable[TrafficLightFace]{arr: faces, decode: decodeFace}
	}

	info := ds.Info()
	monitoring.Logf("opened dataset %s: %d scenes, %d frames, %d agents, %d traffic light faces",
		path, info.Scenes, info.Frames, info.Agents, info.TrafficLightFaces)
	return ds, nil
}

// zarrTable decodes records from a zarr array on each Slice call.
type zarrTable[T any] struct {
	arr    *zarr.Array
	decode func(zarr.Record) (T, error)
}

func (t *zarrTable[T]) Len() int { return t.arr.Len() }

func (t *zarrTable[T]) Slice(start, end int) ([]T, error) {
	recs, err := t.arr.Records(start, end)
	if errors.Is(err, zarr.ErrOutOfRange) {
		return nil, fmt.Errorf("%w: %v", ErrIndexOutOfRange, err)
	}
	if err != nil {
		return nil, err
	}
	out := make([]T, len(recs))
	for i, rec := range recs {
		v, err := t.decode(rec)
		if err != nil {
			return nil, fmt.Errorf("decode record %d: %w", start+i, err)
		}
		out[i] = v
	}
	return out, nil
}

func decodeInterval(rec zarr.Record, name string) (Interval, error) {
	vs, err := rec.Int64s(name)
	if err != nil {
		return Interval{}, err
	}
	if len(vs) != 2 {
		return Interval{}, fmt.Errorf("field %q has %d values, want 2", name, len(vs))
	}
	return Interval{Start: int(vs[0]), End: int(vs[1])}, nil
}

func decodeScene(rec zarr.Record) (Scene, error) {
	var s Scene
	var err error
	if s.FrameIndexInterval, err = decodeInterval(rec, "frame_index_interval"); err != nil {
		return s, err
	}
	if s.StartTime, err = rec.Int64("start_time"); err != nil {
		return s, err
	}
	if s.EndTime, err = rec.Int64("end_time"); err != nil {
		return s, err
	}
	if s.Host, err = rec.String("host"); err != nil {
		return s, err
	}
	return s, nil
}

func decodeFrame(rec zarr.Record) (Frame, error) {
	var f Frame
	var err error
	if f.Timestamp, err = rec.Int64("timestamp"); err != nil {
		return f, err
	}
	if f.AgentIndexInterval, err = decodeInterval(rec, "agent_index_interval"); err != nil {
		return f, err
	}
	if f.EgoTranslation, err = rec.Float64s("ego_translation"); err != nil {
		return f, err
	}
	if f.EgoRotation, err = rec.Float64s("ego_rotation"); err != nil {
		return f, err
	}
	if rec.Has("traffic_light_faces_index_interval") {
		iv, err := decodeInterval(rec, "traffic_light_faces_index_interval")
		if err != nil {
			return f, err
		}
		f.TrafficLightFacesIndexInterval = &iv
	}
	return f, nil
}

func decodeAgent(rec zarr.Record) (Agent, error) {
	var a Agent
	var err error
	if a.Centroid, err = rec.Float64s("centroid"); err != nil {
		return a, err
	}
	if a.Extent, err = rec.Float64s("extent"); err != nil {
		return a, err
	}
	if a.Yaw, err = rec.Float64("yaw"); err != nil {
		return a, err
	}
	if a.Velocity, err = rec.Float64s("velocity"); err != nil {
		return a, err
	}
	if a.TrackID, err = rec.Uint64("track_id"); err != nil {
		return a, err
	}
	if a.LabelProbabilities, err = rec.Float64s("label_probabilities"); err != nil {
		return a, err
	}
	return a, nil
}

func decodeFace(rec zarr.Record) (TrafficLightFace, error) {
	var f TrafficLightFace
	var err error
	if f.FaceID, err = rec.String("face_id"); err != nil {
		return f, err
	}
	if rec.Has("traffic_light_id") {
		if f.TrafficLightID, err = rec.String("traffic_light_id"); err != nil {
			return f, err
		}
	}
	if f.Status, err = rec.Float64s("traffic_light_face_status"); err != nil {
		return f, err
	}
	return f, nil
}
