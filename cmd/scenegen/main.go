package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/scene.report/internal/httputil"
	"github.com/banshee-data/scene.report/internal/version"
)

// app carries the process-wide dependencies of every subcommand.
type app struct {
	stdout     io.Writer
	stderr     io.Writer
	httpClient httputil.HTTPClient
}

func main() {
	flag.Usage = func() { printUsage(os.Stdout) }
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	if err := a.run(flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) run(command string, args []string) error {
	switch command {
	case "analyze":
		return a.handleAnalyze(args)
	case "generate":
		return a.handleGenerate(args)
	case "batch":
		return a.handleBatch(args)
	case "info":
		return a.handleInfo(args)
	case "ping":
		return a.handlePing(args)
	case "serve":
		return a.handleServe(args)
	case "version":
		fmt.Fprintln(a.stdout, version.String("scenegen"))
		return nil
	case "help":
		printUsage(a.stdout)
		return nil
	default:
		printUsage(a.stderr)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `scenegen - Scene analysis and scenario generation for L5 driving datasets

Usage: scenegen <command> [options]

Commands:
  analyze    Summarise the first frame of a scene, plot it and store the analysis
  generate   Build a trajectory prompt for a scene and request a scenario
  batch      Analyse every scene of the dataset concurrently
  info       Show dataset table sizes
  ping       Check the completion service responds
  serve      Serve the scene API and database admin routes
  version    Show scenegen version
  help       Show this help message

Common Flags:
  -config <file>        Configuration file (.json, .yaml or .yml)
  -dataset <path>       Path to the zarr dataset root
  -pairing <policy>     Agent pairing: track_id or positional
  -heading-mode <mode>  Heading output: wrapped or raw
  -units <units>        Speed units: mps, mph, kmph or kph
  -debug                Enable debug logging

Examples:
  # Analyse scene 3
  scenegen analyze -dataset ./sample.zarr -scene 3

  # Generate a scenario with a remote model
  scenegen generate -scene 3 -model-url http://gpu-box:8080/completion

  # Serve the API
  scenegen serve -config config/scenegen.defaults.json -listen :8090`)
}
