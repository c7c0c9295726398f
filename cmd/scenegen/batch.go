package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/banshee-data/scene.report/internal/report"
)

func (a *app) handleBatch(args []string) error {
	fs := newFlagSet(a, "batch")
	opts := registerCommon(fs)
	opts.registerOutput(fs)
	workers := fs.Int("workers", runtime.NumCPU(), "Number of scenes extracted concurrently")
	limit := fs.Int("limit", 0, "Only process the first N scenes (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := opts.load(fs)
	if err != nil {
		return err
	}
	ex, ds, err := openExtractor(cfg)
	if err != nil {
		return err
	}
	defer ds.Close()

	indices := ex.AllIndices()
	if *limit > 0 && *limit < len(indices) {
		indices = indices[:*limit]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	results, err := ex.ExtractAll(ctx, indices, *workers)
	if err != nil {
		return err
	}

	database, err := opts.openDB(cfg)
	if err != nil {
		return err
	}
	if database != nil {
		defer database.Close()
	}

	fmt.Fprintln(a.stdout, report.Title(fmt.Sprintf("Batch of %d scenes", len(results))))
	var ok, failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(a.stdout, "scene %d: skipped: %v\n", r.Index, r.Err)
			continue
		}
		w := reportWriter(cfg, fmt.Sprintf("scene_%05d", r.Index))
		if _, err := w.SaveAnalysis(r.Snapshot); err != nil {
			return err
		}
		if database != nil {
			if _, err := recordSnapshot(database, r.Snapshot); err != nil {
				return err
			}
		}
		ok++
		if r.TrajectoryErr != nil {
			fmt.Fprintf(a.stdout, "scene %d: %d agents, no trajectories: %v\n", r.Index, len(r.Snapshot.Agents), r.TrajectoryErr)
			continue
		}
		if _, err := w.WriteJSON("scene_trajectories.json", r.Trajectories); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "scene %d: %d agents, %d paired\n", r.Index, len(r.Snapshot.Agents), len(r.Trajectories.Agents))
	}
	fmt.Fprintf(a.stdout, "%d scenes written to %s, %d skipped\n", ok, cfg.GetOutputDir(), failed)
	return nil
}
