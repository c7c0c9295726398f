package main

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/scene.report/internal/db"
	"github.com/banshee-data/scene.report/internal/report"
	"github.com/banshee-data/scene.report/internal/scene"
	"github.com/banshee-data/scene.report/internal/visualiser"
)

func (a *app) handleAnalyze(args []string) error {
	fs := newFlagSet(a, "analyze")
	opts := registerCommon(fs)
	opts.registerOutput(fs)
	sceneIdx := fs.Int("scene", 0, "Scene index to analyse")
	noPlot := fs.Bool("no-plot", false, "Skip the PNG and HTML scene plots")
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

	ctx, err := ex.Snapshot(*sceneIdx)
	if err != nil {
		return err
	}
	if err := report.WriteSnapshot(a.stdout, ctx); err != nil {
		return err
	}

	w := reportWriter(cfg, "")
	path, err := w.SaveAnalysis(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, report.Saved("Scene analysis", path))

	if !*noPlot {
		if err := writePlots(a, w, ctx); err != nil {
			return err
		}
	}

	database, err := opts.openDB(cfg)
	if err != nil {
		return err
	}
	if database != nil {
		defer database.Close()
		rec, err := recordSnapshot(database, ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, report.Saved("Analysis "+rec.ID, cfg.GetDBPath()))
	}
	return nil
}

func writePlots(a *app, w *report.Writer, ctx *scene.SnapshotContext) error {
	png, err := visualiser.PNG(ctx)
	if err != nil {
		return fmt.Errorf("plot scene: %w", err)
	}
	path, err := w.WriteFile(report.VisualisationFile, png)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, report.Saved("Visualization", path))

	html, err := visualiser.ChartHTML(ctx)
	if err != nil {
		return fmt.Errorf("chart scene: %w", err)
	}
	path, err = w.WriteFile(report.ChartFile, html)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, report.Saved("Chart", path))
	return nil
}

func recordSnapshot(database *db.DB, ctx *scene.SnapshotContext) (*db.Analysis, error) {
	data, err := json.Marshal(ctx)
	if err != nil {
		return nil, err
	}
	rec := &db.Analysis{
		SceneIndex:   ctx.SceneInfo.Index,
		Host:         ctx.SceneInfo.Host,
		DurationSecs: ctx.SceneInfo.Duration,
		NumFrames:    ctx.SceneInfo.NumFrames,
		AgentCount:   len(ctx.Agents),
		Context:      data,
	}
	return rec, database.RecordAnalysis(rec)
}

func recordTrajectories(database *db.DB, ctx *scene.TrajectoryContext) (*db.Analysis, error) {
	data, err := json.Marshal(ctx)
	if err != nil {
		return nil, err
	}
	rec := &db.Analysis{
		SceneIndex:   ctx.SceneInfo.Index,
		Host:         ctx.SceneInfo.Host,
		DurationSecs: ctx.SceneInfo.Duration,
		NumFrames:    ctx.SceneInfo.NumFrames,
		AgentCount:   len(ctx.Agents),
		Context:      data,
	}
	return rec, database.RecordAnalysis(rec)
}
