// Package db persists scene analyses and generated scenarios in SQLite.
package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/scene.report/internal/timeutil"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("db: not found")

type DB struct {
	*sql.DB
	// Clock stamps CreatedAtNs on new records.
	Clock timeutil.Clock
}

// Analysis is one stored scene analysis. Context holds the serialised
// snapshot or trajectory context the analysis was produced from.
type Analysis struct {
	ID           string          `json:"analysis_id"`
	SceneIndex   int             `json:"scene_index"`
	Host         string          `json:"host"`
	DurationSecs float64         `json:"duration_secs"`
	NumFrames    int             `json:"num_frames"`
	AgentCount   int             `json:"agent_count"`
	Context      json.RawMessage `json:"context"`
	CreatedAtNs  int64           `json:"created_at_ns"`
}

// Scenario is a model completion generated for an analysis.
type Scenario struct {
	ID          string `json:"scenario_id"`
	AnalysisID  string `json:"analysis_id"`
	ModelURL    string `json:"model_url"`
	Prompt      string `json:"prompt"`
	Scenario    string `json:"scenario"`
	CreatedAtNs int64  `json:"created_at_ns"`
}

// Open opens (creating if needed) the database at path and applies all
// pending migrations.
func Open(path string) (*DB, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db := &DB{DB: sqlDB, Clock: timeutil.RealClock{}}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// RecordAnalysis inserts a. ID and CreatedAtNs are filled in when unset.
func (db *DB) RecordAnalysis(a *Analysis) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAtNs == 0 {
		a.CreatedAtNs = db.Clock.Now().UnixNano()
	}
	if len(a.Context) == 0 {
		a.Context = json.RawMessage("{}")
	}
	_, err := db.Exec(`
		INSERT INTO scene_analyses (
			analysis_id, scene_index, host, duration_secs,
			num_frames, agent_count, context_json, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SceneIndex, a.Host, a.DurationSecs,
		a.NumFrames, a.AgentCount, string(a.Context), a.CreatedAtNs,
	)
	if err != nil {
		return fmt.Errorf("failed to record analysis: %w", err)
	}
	return nil
}

const analysisColumns = `analysis_id, scene_index, host, duration_secs,
	num_frames, agent_count, context_json, created_at_ns`

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row scanner) (Analysis, error) {
	var a Analysis
	var ctx string
	err := row.Scan(&a.ID, &a.SceneIndex, &a.Host, &a.DurationSecs,
		&a.NumFrames, &a.AgentCount, &ctx, &a.CreatedAtNs)
	a.Context = json.RawMessage(ctx)
	return a, err
}

// GetAnalysis returns the analysis with the given id, or ErrNotFound.
func (db *DB) GetAnalysis(id string) (*Analysis, error) {
	row := db.QueryRow(`SELECT `+analysisColumns+` FROM scene_analyses WHERE analysis_id = ?`, id)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAnalyses returns the most recent analyses first. A limit of zero or
// less returns every row.
func (db *DB) ListAnalyses(limit int) ([]Analysis, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`SELECT `+analysisColumns+`
		FROM scene_analyses
		ORDER BY created_at_ns DESC, analysis_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	analyses := []Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

// RecordScenario inserts s. The referenced analysis must exist.
func (db *DB) RecordScenario(s *Scenario) error {
	if s.AnalysisID == "" {
		return errors.New("scenario has no analysis id")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAtNs == 0 {
		s.CreatedAtNs = db.Clock.Now().UnixNano()
	}
	_, err := db.Exec(`
		INSERT INTO generated_scenarios (
			scenario_id, analysis_id, model_url, prompt, scenario, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.AnalysisID, s.ModelURL, s.Prompt, s.Scenario, s.CreatedAtNs,
	)
	if err != nil {
		return fmt.Errorf("failed to record scenario: %w", err)
	}
	return nil
}

// ScenariosForAnalysis returns the scenarios generated for an analysis,
// oldest first.
func (db *DB) ScenariosForAnalysis(analysisID string) ([]Scenario, error) {
	rows, err := db.Query(`
		SELECT scenario_id, analysis_id, model_url, prompt, scenario, created_at_ns
		FROM generated_scenarios
		WHERE analysis_id = ?
		ORDER BY created_at_ns, scenario_id`, analysisID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scenarios := []Scenario{}
	for rows.Next() {
		var s Scenario
		if err := rows.Scan(&s.ID, &s.AnalysisID, &s.ModelURL, &s.Prompt, &s.Scenario, &s.CreatedAtNs); err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, rows.Err()
}
