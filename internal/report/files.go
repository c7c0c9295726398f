package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/scene.report/internal/fsutil"
	"github.com/banshee-data/scene.report/internal/scene"
	"github.com/banshee-data/scene.report/internal/security"
)

// File names written under the output directory.
const (
	AnalysisFile      = "scene_analysis.json"
	ScenarioFile      = "detailed_scenario.json"
	VisualisationFile = "scene_visualization.png"
	ChartFile         = "scene_chart.html"
)

// ScenarioDocument is the persisted result of a generate run.
type ScenarioDocument struct {
	SceneContext      *scene.TrajectoryContext `json:"scene_context"`
	GeneratedScenario string                   `json:"generated_scenario"`
}

// Writer stores report files under one directory.
type Writer struct {
	fs  fsutil.FileSystem
	dir string
	// Validate, when set, is called with every target path and the output
	// directory after the lexical check. Commands writing to disk set it to
	// security.ValidatePathWithinDirectory.
	Validate func(path, dir string) error
}

// NewWriter returns a Writer rooted at dir.
func NewWriter(fs fsutil.FileSystem, dir string) *Writer {
	return &Writer{fs: fs, dir: dir}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// Path returns the location of name under the output directory.
func (w *Writer) Path(name string) (string, error) {
	p, err := security.JoinWithinDirectory(w.dir, name)
	if err != nil {
		return "", err
	}
	if w.Validate != nil {
		if err := w.Validate(p, w.dir); err != nil {
			return "", err
		}
	}
	return p, nil
}

// WriteFile writes data to name, creating parent directories.
func (w *Writer) WriteFile(name string, data []byte) (string, error) {
	if err := w.fs.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	p, err := w.Path(name)
	if err != nil {
		return "", err
	}
	if err := w.fs.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	if err := w.fs.WriteFile(p, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", p, err)
	}
	return p, nil
}

// WriteJSON writes v to name with two-space indentation.
func (w *Writer) WriteJSON(name string, v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	return w.WriteFile(name, append(data, '\n'))
}

// SaveAnalysis writes the snapshot to AnalysisFile.
func (w *Writer) SaveAnalysis(ctx *scene.SnapshotContext) (string, error) {
	return w.WriteJSON(AnalysisFile, ctx)
}

// SaveScenario writes the trajectory context and generated text to
// ScenarioFile.
func (w *Writer) SaveScenario(ctx *scene.TrajectoryContext, scenario string) (string, error) {
	return w.WriteJSON(ScenarioFile, ScenarioDocument{SceneContext: ctx, GeneratedScenario: scenario})
}
