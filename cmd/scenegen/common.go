package main

import (
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/scene.report/internal/config"
	"github.com/banshee-data/scene.report/internal/dataset"
	"github.com/banshee-data/scene.report/internal/db"
	"github.com/banshee-data/scene.report/internal/fsutil"
	"github.com/banshee-data/scene.report/internal/monitoring"
	"github.com/banshee-data/scene.report/internal/report"
	"github.com/banshee-data/scene.report/internal/scene"
	"github.com/banshee-data/scene.report/internal/security"
	"github.com/banshee-data/scene.report/internal/zarr"
)

// options holds every flag a subcommand may register. Only flags the user
// set explicitly override the configuration file.
type options struct {
	configPath  string
	datasetPath string
	pairing     string
	headingMode string
	speedUnits  string
	debug       bool

	outputDir string
	dbPath    string
	noDB      bool

	modelURL    string
	maxTokens   int
	temperature float64
	timeout     time.Duration

	listen string
}

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func registerCommon(fs *flag.FlagSet) *options {
	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "Configuration file (.json, .yaml or .yml)")
	fs.StringVar(&o.datasetPath, "dataset", "", "Path to the zarr dataset root")
	fs.StringVar(&o.pairing, "pairing", "", "Agent pairing policy: track_id or positional")
	fs.StringVar(&o.headingMode, "heading-mode", "", "Heading output mode: wrapped or raw")
	fs.StringVar(&o.speedUnits, "units", "", "Speed units for console and prompt output")
	fs.BoolVar(&o.debug, "debug", false, "Enable debug logging")
	return o
}

func (o *options) registerOutput(fs *flag.FlagSet) {
	fs.StringVar(&o.outputDir, "output", "", "Directory for report files")
	fs.StringVar(&o.dbPath, "db", "", "SQLite database path")
	fs.BoolVar(&o.noDB, "no-db", false, "Do not record results in the database")
}

func (o *options) registerModel(fs *flag.FlagSet) {
	fs.StringVar(&o.modelURL, "model-url", "", "Completion endpoint URL")
	fs.IntVar(&o.maxTokens, "max-tokens", 0, "Maximum tokens to generate")
	fs.Float64Var(&o.temperature, "temperature", 0, "Sampling temperature")
	fs.DurationVar(&o.timeout, "timeout", 0, "Completion request timeout")
}

func (o *options) registerListen(fs *flag.FlagSet) {
	fs.StringVar(&o.listen, "listen", "", "HTTP listen address")
	fs.StringVar(&o.dbPath, "db", "", "SQLite database path")
	fs.BoolVar(&o.noDB, "no-db", false, "Serve without a database")
}

// load builds the effective configuration: defaults, then the config file,
// then explicitly set flags.
func (o *options) load(fs *flag.FlagSet) (*config.ScenarioConfig, error) {
	monitoring.SetDebug(o.debug)

	cfg := config.DefaultScenarioConfig()
	if o.configPath != "" {
		fileCfg, err := config.LoadScenarioConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg.Merge(fileCfg)
	}

	overrides := config.EmptyScenarioConfig()
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dataset":
			overrides.DatasetPath = &o.datasetPath
		case "pairing":
			overrides.Pairing = &o.pairing
		case "heading-mode":
			overrides.HeadingMode = &o.headingMode
		case "units":
			overrides.SpeedUnits = &o.speedUnits
		case "output":
			overrides.OutputDir = &o.outputDir
		case "db":
			overrides.DBPath = &o.dbPath
		case "model-url":
			overrides.ModelURL = &o.modelURL
		case "max-tokens":
			overrides.MaxTokens = &o.maxTokens
		case "temperature":
			overrides.Temperature = &o.temperature
		case "timeout":
			timeout := o.timeout.String()
			overrides.RequestTimeout = &timeout
		case "listen":
			overrides.Listen = &o.listen
		}
	})
	cfg.Merge(overrides)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func openExtractor(cfg *config.ScenarioConfig) (*scene.Extractor, *dataset.Dataset, error) {
	ds, err := dataset.Open(fsutil.OSFileSystem{}, cfg.GetDatasetPath(), zarr.WithCacheSize(cfg.GetChunkCacheSize()))
	if err != nil {
		return nil, nil, fmt.Errorf("open dataset: %w", err)
	}
	ex := scene.NewExtractor(ds, scene.Options{
		Pairing:     cfg.GetPairing(),
		HeadingMode: cfg.GetHeadingMode(),
	})
	return ex, ds, nil
}

// openDB returns nil when the database is disabled.
func (o *options) openDB(cfg *config.ScenarioConfig) (*db.DB, error) {
	if o.noDB {
		return nil, nil
	}
	database, err := db.Open(cfg.GetDBPath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return database, nil
}

func reportWriter(cfg *config.ScenarioConfig, subdir string) *report.Writer {
	dir := cfg.GetOutputDir()
	if subdir != "" {
		dir = filepath.Join(dir, security.SanitizeFilename(subdir))
	}
	w := report.NewWriter(fsutil.OSFileSystem{}, dir)
	w.Validate = security.ValidatePathWithinDirectory
	return w
}
