package main

import (
	"context"
	"fmt"

	"github.com/banshee-data/scene.report/internal/completion"
	"github.com/banshee-data/scene.report/internal/prompt"
	"github.com/banshee-data/scene.report/internal/report"
)

func (a *app) handlePing(args []string) error {
	fs := newFlagSet(a, "ping")
	opts := registerCommon(fs)
	opts.registerModel(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := opts.load(fs)
	if err != nil {
		return err
	}

	builder, err := prompt.NewBuilder(cfg.GetSpeedUnits())
	if err != nil {
		return err
	}
	text, err := builder.Ping()
	if err != nil {
		return err
	}

	client := completion.NewClient(cfg.GetModelURL(), a.httpClient)
	client.Timeout = cfg.GetRequestTimeout()
	reply, err := client.Ping(context.Background(), text)
	if err != nil {
		return fmt.Errorf("completion service at %s is not responding: %w", cfg.GetModelURL(), err)
	}
	fmt.Fprintln(a.stdout, report.Saved("Completion service", cfg.GetModelURL()))
	fmt.Fprintln(a.stdout, reply)
	return nil
}
