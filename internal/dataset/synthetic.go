package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// SyntheticOptions sizes a generated dataset.
type SyntheticOptions struct {
	Scenes         int
	FramesPerScene int
	AgentsPerFrame int
	// FrameStep is the time between frames in nanoseconds. Zero uses 100ms.
	FrameStep     int64
	TrafficLights bool
	Seed          uint64
}

// Synthetic builds a deterministic dataset of straight-line movers. Each
// scene's agents keep their track IDs for the whole scene, except that the
// last agent leaves halfway through so pairing sees an unmatched track.
func Synthetic(opts SyntheticOptions) MemDataset {
	if opts.FrameStep <= 0 {
		opts.FrameStep = 100_000_000
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	var m MemDataset
	if opts.TrafficLights {
		m.TrafficLightFaces = []TrafficLightFace{}
	}
	var clock int64
	var nextTrack uint64 = 1

	for s := 0; s < opts.Scenes; s++ {
		type mover struct {
			track    uint64
			x, y     float64
			vx, vy   float64
			extent   []float64
			probs    []float64
			lifetime int
		}
		movers := make([]mover, opts.AgentsPerFrame)
		for i := range movers {
			class := syntheticClasses[rng.IntN(len(syntheticClasses))]
			speed := class.speed * (0.5 + rng.Float64())
			heading := rng.Float64()*2*math.Pi - math.Pi
			probs := make([]float64, 9)
			probs[class.index] = 0.875
			probs[0] = 0.125
			movers[i] = mover{
				track:    nextTrack,
				x:        rng.Float64()*100 - 50,
				y:        rng.Float64()*100 - 50,
				vx:       speed * math.Cos(heading),
				vy:       speed * math.Sin(heading),
				extent:   class.extent,
				probs:    probs,
				lifetime: opts.FramesPerScene,
			}
			nextTrack++
		}
		if n := len(movers); n > 1 {
			movers[n-1].lifetime = opts.FramesPerScene / 2
		}

		sceneStart := len(m.Frames)
		startTime := clock
		egoYaw := rng.Float64()*2*math.Pi - math.Pi
		for f := 0; f < opts.FramesPerScene; f++ {
			t := float64(f) * float64(opts.FrameStep) / 1e9
			agentStart := len(m.Agents)
			for _, mv := range movers {
				if f >= mv.lifetime {
					continue
				}
				m.Agents = append(m.Agents, Agent{
					Centroid:           []float64{mv.x + mv.vx*t, mv.y + mv.vy*t},
					Extent:             append([]float64(nil), mv.extent...),
					Yaw:                float64(float32(math.Atan2(mv.vy, mv.vx))),
					Velocity:           []float64{float64(float32(mv.vx)), float64(float32(mv.vy))},
					TrackID:            mv.track,
					LabelProbabilities: append([]float64(nil), mv.probs...),
				})
			}
			frame := Frame{
				Timestamp:          clock,
				AgentIndexInterval: Interval{Start: agentStart, End: len(m.Agents)},
				EgoTranslation:     []float64{5 * t * math.Cos(egoYaw), 5 * t * math.Sin(egoYaw), 0},
				EgoRotation:        yawMatrix(egoYaw),
			}
			if opts.TrafficLights {
				faceStart := len(m.TrafficLightFaces)
				status := []float64{0, 0, 0}
				status[(s+f/10)%3] = 1
				m.TrafficLightFaces = append(m.TrafficLightFaces, TrafficLightFace{
					FaceID:         fmt.Sprintf("face-%d", s),
					TrafficLightID: fmt.Sprintf("light-%d", s),
					Status:         status,
				})
				frame.TrafficLightFacesIndexInterval = &Interval{Start: faceStart, End: len(m.TrafficLightFaces)}
			}
			m.Frames = append(m.Frames, frame)
			clock += opts.FrameStep
		}
		m.Scenes = append(m.Scenes, Scene{
			FrameIndexInterval: Interval{Start: sceneStart, End: len(m.Frames)},
			StartTime:          startTime,
			EndTime:            clock,
			Host:               fmt.Sprintf("host-%d", s%3),
		})
	}
	return m
}

type syntheticClass struct {
	index  int
	speed  float64
	extent []float64
}

// Extents and probabilities are float32-exact so a written dataset reads back unchanged.
var syntheticClasses = []syntheticClass{
	{index: 3, speed: 10, extent: []float64{4.5, 2, 1.5}},      // vehicle
	{index: 5, speed: 3, extent: []float64{1.75, 0.5, 1.75}},   // cyclist
	{index: 1, speed: 1.25, extent: []float64{0.5, 0.5, 1.75}}, // pedestrian
	{index: 7, speed: 8, extent: []float64{12, 2.5, 3.5}},      // truck
}

func yawMatrix(yaw float64) []float64 {
	c, s := math.Cos(yaw), math.Sin(yaw)
	return []float64{c, -s, 0, s, c, 0, 0, 0, 1}
}
