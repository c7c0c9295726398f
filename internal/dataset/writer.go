package dataset

import (
	"fmt"
	"path/filepath"

	"github.com/banshee-data/scene.report/internal/fsutil"
	"github.com/banshee-data/scene.report/internal/zarr"
)

// WriteOptions controls how Write encodes a dataset.
type WriteOptions struct {
	// ChunkLen is the number of records per chunk. Zero uses 1000.
	ChunkLen int
	// Compressor is applied to every chunk. Nil writes raw chunks.
	Compressor *zarr.Compressor
}

// MemDataset holds the in-memory tables written by Write.
type MemDataset struct {
	Scenes            []Scene
	Frames            []Frame
	Agents            []Agent
	TrafficLightFaces []TrafficLightFace
}

// Dataset wraps the slices as MemTables. TrafficLightFaces stays nil when
// the slice is nil.
func (m MemDataset) Dataset() *Dataset {
	ds := &Dataset{
		Scenes: MemTable[Scene](m.Scenes),
		Frames: MemTable[Frame](m.Frames),
		Agents: MemTable[Agent](m.Agents),
	}
	if m.TrafficLightFaces != nil {
		ds.TrafficLightFaces = MemTable[TrafficLightFace](m.TrafficLightFaces)
	}
	return ds
}

const (
	defaultChunkLen = 1000
	hostChars       = 16
	faceIDChars     = 16
)

func i8(name string, shape ...int) zarr.Field {
	return zarr.Field{Name: name, Kind: zarr.KindInt, ItemSize: 8, Shape: shape}
}

func f8(name string, shape ...int) zarr.Field {
	return zarr.Field{Name: name, Kind: zarr.KindFloat, ItemSize: 8, Shape: shape}
}

func f4(name string, shape ...int) zarr.Field {
	return zarr.Field{Name: name, Kind: zarr.KindFloat, ItemSize: 4, Shape: shape}
}

func unicodeField(name string, chars int) zarr.Field {
	return zarr.Field{Name: name, Kind: zarr.KindUnicode, ItemSize: 4 * chars}
}

// Write stores m as a zarr group at path using the L5 record layout.
// The traffic_light_faces table and the frame interval pointing into it
// are only written when m carries traffic-light data.
func Write(fsys fsutil.FileSystem, path string, m MemDataset, opts WriteOptions) error {
	chunkLen := opts.ChunkLen
	if chunkLen <= 0 {
		chunkLen = defaultChunkLen
	}
	if err := zarr.WriteGroup(fsys, path); err != nil {
		return err
	}

	withLights := m.TrafficLightFaces != nil
	for _, f := range m.Frames {
		if f.TrafficLightFacesIndexInterval != nil {
			withLights = true
			break
		}
	}

	write := func(table string, buf *zarr.RecordBuffer) error {
		if err := zarr.WriteArray(fsys, filepath.Join(path, table), buf, chunkLen, opts.Compressor); err != nil {
			return fmt.Errorf("write %s: %w", table, err)
		}
		return nil
	}

	scenes, err := zarr.NewRecordBuffer([]zarr.Field{
		i8("frame_index_interval", 2),
		unicodeField("host", hostChars),
		i8("start_time"),
		i8("end_time"),
	})
	if err != nil {
		return err
	}
	for i, s := range m.Scenes {
		if err := scenes.Append(map[string]interface{}{
			"frame_index_interval": intervalValue(s.FrameIndexInterval),
			"host":                 s.Host,
			"start_time":           s.StartTime,
			"end_time":             s.EndTime,
		}); err != nil {
			return fmt.Errorf("scene %d: %w", i, err)
		}
	}
	if err := write(TableScenes, scenes); err != nil {
		return err
	}

	frameFields := []zarr.Field{
		i8("timestamp"),
		i8("agent_index_interval", 2),
	}
	if withLights {
		frameFields = append(frameFields, i8("traffic_light_faces_index_interval", 2))
	}
	frameFields = append(frameFields, f8("ego_translation", 3), f8("ego_rotation", 3, 3))
	frames, err := zarr.NewRecordBuffer(frameFields)
	if err != nil {
		return err
	}
	for i, f := range m.Frames {
		vals := map[string]interface{}{
			"timestamp":            f.Timestamp,
			"agent_index_interval": intervalValue(f.AgentIndexInterval),
			"ego_translation":      padFloats(f.EgoTranslation, 3),
			"ego_rotation":         rotationMatrix(f.EgoRotation),
		}
		if withLights {
			iv := Interval{}
			if f.TrafficLightFacesIndexInterval != nil {
				iv = *f.TrafficLightFacesIndexInterval
			}
			vals["traffic_light_faces_index_interval"] = intervalValue(iv)
		}
		if err := frames.Append(vals); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	if err := write(TableFrames, frames); err != nil {
		return err
	}

	labels := 0
	for _, a := range m.Agents {
		if len(a.LabelProbabilities) > labels {
			labels = len(a.LabelProbabilities)
		}
	}
	if labels == 0 {
		labels = 1
	}
	agents, err := zarr.NewRecordBuffer([]zarr.Field{
		f8("centroid", 2),
		f4("extent", 3),
		f4("yaw"),
		f4("velocity", 2),
		{Name: "track_id", Kind: zarr.KindUint, ItemSize: 8},
		f4("label_probabilities", labels),
	})
	if err != nil {
		return err
	}
	for i, a := range m.Agents {
		if err := agents.Append(map[string]interface{}{
			"centroid":            padFloats(a.Centroid, 2),
			"extent":              padFloats(a.Extent, 3),
			"yaw":                 a.Yaw,
			"velocity":            padFloats(a.Velocity, 2),
			"track_id":            a.TrackID,
			"label_probabilities": padFloats(a.LabelProbabilities, labels),
		}); err != nil {
			return fmt.Errorf("agent %d: %w", i, err)
		}
	}
	if err := write(TableAgents, agents); err != nil {
		return err
	}

	if !withLights {
		return nil
	}
	faces, err := zarr.NewRecordBuffer([]zarr.Field{
		unicodeField("face_id", faceIDChars),
		unicodeField("traffic_light_id", faceIDChars),
		f4("traffic_light_face_status", 3),
	})
	if err != nil {
		return err
	}
	for i, f := range m.TrafficLightFaces {
		if err := faces.Append(map[string]interface{}{
			"face_id":                   f.FaceID,
			"traffic_light_id":          f.TrafficLightID,
			"traffic_light_face_status": padFloats(f.Status, 3),
		}); err != nil {
			return fmt.Errorf("traffic light face %d: %w", i, err)
		}
	}
	return write(TableTrafficLightFaces, faces)
}

func intervalValue(iv Interval) []int64 {
	return []int64{int64(iv.Start), int64(iv.End)}
}

// padFloats truncates or zero-pads vs to n values.
func padFloats(vs []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, vs)
	return out
}

// rotationMatrix returns a row-major 3x3 matrix. Quaternion input is
// expanded; anything else falls back to the identity.
func rotationMatrix(r []float64) []float64 {
	switch len(r) {
	case 9:
		return padFloats(r, 9)
	case 4:
		w, x, y, z := r[0], r[1], r[2], r[3]
		return []float64{
			1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
			2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
			2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
		}
	default:
		return []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	}
}
