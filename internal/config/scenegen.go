package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/scene.report/internal/kinematics"
	"github.com/banshee-data/scene.report/internal/scene"
	"github.com/banshee-data/scene.report/internal/units"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/scenegen.defaults.json"

// ScenarioConfig is the root configuration of the scenegen tool. Every
// field is optional; the Get* methods supply defaults for anything the
// file leaves out.
type ScenarioConfig struct {
	// Dataset
	DatasetPath    *string `json:"dataset_path,omitempty" yaml:"dataset_path,omitempty"`
	ChunkCacheSize *int    `json:"chunk_cache_size,omitempty" yaml:"chunk_cache_size,omitempty"`

	// Extraction
	Pairing     *string `json:"pairing,omitempty" yaml:"pairing,omitempty"`           // "track_id" or "positional"
	HeadingMode *string `json:"heading_mode,omitempty" yaml:"heading_mode,omitempty"` // "wrapped" or "raw"
	SpeedUnits  *string `json:"speed_units,omitempty" yaml:"speed_units,omitempty"`

	// Completion service
	ModelURL       *string  `json:"model_url,omitempty" yaml:"model_url,omitempty"`
	MaxTokens      *int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	RequestTimeout *string  `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"` // duration string like "120s"

	// Output
	OutputDir *string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	DBPath    *string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	Listen    *string `json:"listen,omitempty" yaml:"listen,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyScenarioConfig returns a ScenarioConfig with all fields unset.
func EmptyScenarioConfig() *ScenarioConfig {
	return &ScenarioConfig{}
}

// DefaultScenarioConfig returns a config with every field set to its
// default.
func DefaultScenarioConfig() *ScenarioConfig {
	c := EmptyScenarioConfig()
	return &ScenarioConfig{
		DatasetPath:    ptrString(c.GetDatasetPath()),
		ChunkCacheSize: ptrInt(c.GetChunkCacheSize()),
		Pairing:        ptrString(string(c.GetPairing())),
		HeadingMode:    ptrString(string(c.GetHeadingMode())),
		SpeedUnits:     ptrString(c.GetSpeedUnits()),
		ModelURL:       ptrString(c.GetModelURL()),
		MaxTokens:      ptrInt(c.GetMaxTokens()),
		Temperature:    ptrFloat64(c.GetTemperature()),
		RequestTimeout: ptrString(c.GetRequestTimeout().String()),
		OutputDir:      ptrString(c.GetOutputDir()),
		DBPath:         ptrString(c.GetDBPath()),
		Listen:         ptrString(c.GetListen()),
	}
}

// LoadScenarioConfig loads a ScenarioConfig from a JSON or YAML file.
// The file must have a .json, .yaml or .yml extension and be under 1MB.
// Fields omitted from the file keep their defaults, so partial configs
// are safe.
func LoadScenarioConfig(path string) (*ScenarioConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyScenarioConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching parent
// directories. Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *ScenarioConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/tools/gen-sample/
	}
	for _, path := range candidates {
		if cfg, err := LoadScenarioConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *ScenarioConfig) Validate() error {
	if c.Pairing != nil {
		if _, err := scene.ParsePairingPolicy(*c.Pairing); err != nil {
			return err
		}
	}

	if c.HeadingMode != nil {
		if _, err := kinematics.ParseHeadingMode(*c.HeadingMode); err != nil {
			return err
		}
	}

	if c.SpeedUnits != nil && !units.IsValid(*c.SpeedUnits) {
		return fmt.Errorf("speed_units must be one of %s, got %q", units.GetValidUnitsString(), *c.SpeedUnits)
	}

	if c.MaxTokens != nil && *c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", *c.MaxTokens)
	}

	if c.Temperature != nil {
		if *c.Temperature < 0 || *c.Temperature > 2 {
			return fmt.Errorf("temperature must be between 0 and 2, got %f", *c.Temperature)
		}
	}

	if c.RequestTimeout != nil && *c.RequestTimeout != "" {
		if _, err := time.ParseDuration(*c.RequestTimeout); err != nil {
			return fmt.Errorf("invalid request_timeout '%s': %w", *c.RequestTimeout, err)
		}
	}

	if c.ChunkCacheSize != nil && *c.ChunkCacheSize < 0 {
		return fmt.Errorf("chunk_cache_size must be non-negative, got %d", *c.ChunkCacheSize)
	}

	return nil
}

// Merge copies every field set in o over c.
func (c *ScenarioConfig) Merge(o *ScenarioConfig) {
	if o == nil {
		return
	}
	if o.DatasetPath != nil {
		c.DatasetPath = o.DatasetPath
	}
	if o.ChunkCacheSize != nil {
		c.ChunkCacheSize = o.ChunkCacheSize
	}
	if o.Pairing != nil {
		c.Pairing = o.Pairing
	}
	if o.HeadingMode != nil {
		c.HeadingMode = o.HeadingMode
	}
	if o.SpeedUnits != nil {
		c.SpeedUnits = o.SpeedUnits
	}
	if o.ModelURL != nil {
		c.ModelURL = o.ModelURL
	}
	if o.MaxTokens != nil {
		c.MaxTokens = o.MaxTokens
	}
	if o.Temperature != nil {
		c.Temperature = o.Temperature
	}
	if o.RequestTimeout != nil {
		c.RequestTimeout = o.RequestTimeout
	}
	if o.OutputDir != nil {
		c.OutputDir = o.OutputDir
	}
	if o.DBPath != nil {
		c.DBPath = o.DBPath
	}
	if o.Listen != nil {
		c.Listen = o.Listen
	}
}

// GetDatasetPath returns the dataset_path value or the default.
func (c *ScenarioConfig) GetDatasetPath() string {
	if c.DatasetPath == nil || *c.DatasetPath == "" {
		return "sample.zarr"
	}
	return *c.DatasetPath
}

// GetChunkCacheSize returns the chunk_cache_size value or the default.
func (c *ScenarioConfig) GetChunkCacheSize() int {
	if c.ChunkCacheSize == nil {
		return 16
	}
	return *c.ChunkCacheSize
}

// GetPairing returns the pairing policy or the default (track_id).
func (c *ScenarioConfig) GetPairing() scene.PairingPolicy {
	if c.Pairing == nil {
		return scene.PairByTrackID
	}
	p, err := scene.ParsePairingPolicy(*c.Pairing)
	if err != nil {
		return scene.PairByTrackID // default on parse error
	}
	return p
}

// GetHeadingMode returns the heading mode or the default (wrapped).
func (c *ScenarioConfig) GetHeadingMode() kinematics.HeadingMode {
	if c.HeadingMode == nil {
		return kinematics.HeadingWrapped
	}
	m, err := kinematics.ParseHeadingMode(*c.HeadingMode)
	if err != nil {
		return kinematics.HeadingWrapped // default on parse error
	}
	return m
}

// GetSpeedUnits returns the speed_units value or the default.
func (c *ScenarioConfig) GetSpeedUnits() string {
	if c.SpeedUnits == nil || !units.IsValid(*c.SpeedUnits) {
		return units.MPS
	}
	return *c.SpeedUnits
}

// GetModelURL returns the model_url value or the default.
func (c *ScenarioConfig) GetModelURL() string {
	if c.ModelURL == nil || *c.ModelURL == "" {
		return "http://localhost:8080/completion"
	}
	return *c.ModelURL
}

// GetMaxTokens returns the max_tokens value or the default.
func (c *ScenarioConfig) GetMaxTokens() int {
	if c.MaxTokens == nil {
		return 1000
	}
	return *c.MaxTokens
}

// GetTemperature returns the temperature value or the default.
func (c *ScenarioConfig) GetTemperature() float64 {
	if c.Temperature == nil {
		return 0.7
	}
	return *c.Temperature
}

// GetRequestTimeout parses and returns RequestTimeout as a time.Duration.
func (c *ScenarioConfig) GetRequestTimeout() time.Duration {
	if c.RequestTimeout == nil || *c.RequestTimeout == "" {
		return 120 * time.Second // default
	}
	d, err := time.ParseDuration(*c.RequestTimeout)
	if err != nil {
		return 120 * time.Second // default on parse error
	}
	return d
}

// GetOutputDir returns the output_dir value or the default.
func (c *ScenarioConfig) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return "output"
	}
	return *c.OutputDir
}

// GetDBPath returns the db_path value or the default.
func (c *ScenarioConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "scenes.db"
	}
	return *c.DBPath
}

// GetListen returns the listen address or the default.
func (c *ScenarioConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return "localhost:8090"
	}
	return *c.Listen
}
