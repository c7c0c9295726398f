package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/scene.report/internal/completion"
	"github.com/banshee-data/scene.report/internal/db"
	"github.com/banshee-data/scene.report/internal/prompt"
	"github.com/banshee-data/scene.report/internal/report"
)

func (a *app) handleGenerate(args []string) error {
	fs := newFlagSet(a, "generate")
	opts := registerCommon(fs)
	opts.registerOutput(fs)
	opts.registerModel(fs)
	sceneIdx := fs.Int("scene", 0, "Scene index to describe")
	showPrompt := fs.Bool("show-prompt", false, "Print the prompt before sending it")
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

	traj, err := ex.Trajectories(*sceneIdx)
	if err != nil {
		return err
	}
	if err := report.WriteTrajectories(a.stdout, traj, cfg.GetSpeedUnits()); err != nil {
		return err
	}

	builder, err := prompt.NewBuilder(cfg.GetSpeedUnits())
	if err != nil {
		return err
	}
	text, err := builder.Scenario(traj)
	if err != nil {
		return err
	}
	if *showPrompt {
		fmt.Fprintln(a.stdout, report.Section("Prompt:"))
		fmt.Fprintln(a.stdout, text)
	}

	client := completion.NewClient(cfg.GetModelURL(), a.httpClient)
	client.MaxTokens = cfg.GetMaxTokens()
	client.Temperature = cfg.GetTemperature()
	client.Timeout = cfg.GetRequestTimeout()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	generated, err := client.Complete(ctx, text)
	if err != nil {
		return err
	}
	if err := report.WriteScenario(a.stdout, generated, 80); err != nil {
		return err
	}

	w := reportWriter(cfg, "")
	path, err := w.SaveScenario(traj, generated)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, report.Saved("Detailed scenario", path))

	database, err := opts.openDB(cfg)
	if err != nil {
		return err
	}
	if database == nil {
		return nil
	}
	defer database.Close()

	rec, err := recordTrajectories(database, traj)
	if err != nil {
		return err
	}
	if err := database.RecordScenario(&db.Scenario{
		AnalysisID: rec.ID,
		ModelURL:   cfg.GetModelURL(),
		Prompt:     text,
		Scenario:   generated,
	}); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, report.Saved("Scenario for analysis "+rec.ID, cfg.GetDBPath()))
	return nil
}
