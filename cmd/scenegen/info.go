package main

import (
	"fmt"

	"github.com/banshee-data/scene.report/internal/report"
)

func (a *app) handleInfo(args []string) error {
	fs := newFlagSet(a, "info")
	opts := registerCommon(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := opts.load(fs)
	if err != nil {
		return err
	}
	_, ds, err := openExtractor(cfg)
	if err != nil {
		return err
	}
	defer ds.Close()

	info := ds.Info()
	fmt.Fprintln(a.stdout, report.Title("Dataset "+cfg.GetDatasetPath()))
	fmt.Fprintf(a.stdout, "Scenes: %d\n", info.Scenes)
	fmt.Fprintf(a.stdout, "Frames: %d\n", info.Frames)
	fmt.Fprintf(a.stdout, "Agents: %d\n", info.Agents)
	if info.HasTrafficLights {
		fmt.Fprintf(a.stdout, "Traffic light faces: %d\n", info.TrafficLightFaces)
	} else {
		fmt.Fprintln(a.stdout, "Traffic light faces: none")
	}
	return nil
}
