// Command gen-sample writes a synthetic zarr dataset for trying scenegen
// without a real L5 recording.
package main

import (
	"flag"
	"log"

	"github.com/banshee-data/scene.report/internal/dataset"
	"github.com/banshee-data/scene.report/internal/fsutil"
	"github.com/banshee-data/scene.report/internal/zarr"
)

func main() {
	output := flag.String("o", "sample.zarr", "output dataset path")
	scenes := flag.Int("scenes", 10, "number of scenes")
	frames := flag.Int("frames", 100, "frames per scene")
	agents := flag.Int("agents", 8, "agents per scene")
	lights := flag.Bool("traffic-lights", true, "include traffic light faces")
	seed := flag.Uint64("seed", 1, "random seed")
	chunk := flag.Int("chunk", 1000, "records per chunk")
	compressor := flag.String("compressor", "blosc", "chunk compressor: none, zstd, zlib, gzip or blosc")
	cname := flag.String("cname", "lz4", "blosc inner codec: lz4, lz4hc, zstd, zlib or snappy")
	level := flag.Int("level", 5, "compression level")
	flag.Parse()

	m := dataset.Synthetic(dataset.SyntheticOptions{
		Scenes:         *scenes,
		FramesPerScene: *frames,
		AgentsPerFrame: *agents,
		TrafficLights:  *lights,
		Seed:           *seed,
	})

	comp, err := zarr.ParseCompressor(*compressor, *cname, *level)
	if err != nil {
		log.Fatalf("invalid compressor: %v", err)
	}
	opts := dataset.WriteOptions{ChunkLen: *chunk, Compressor: comp}
	if err := dataset.Write(fsutil.OSFileSystem{}, *output, m, opts); err != nil {
		log.Fatalf("failed to write dataset: %v", err)
	}
	log.Printf("✓ Created: %s (%d scenes, %d frames, %d agents)", *output, len(m.Scenes), len(m.Frames), len(m.Agents))
}
