// Package api serves scene summaries and stored analyses over HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/banshee-data/scene.report/internal/dataset"
	"github.com/banshee-data/scene.report/internal/db"
	"github.com/banshee-data/scene.report/internal/httputil"
	"github.com/banshee-data/scene.report/internal/kinematics"
	"github.com/banshee-data/scene.report/internal/monitoring"
	"github.com/banshee-data/scene.report/internal/scene"
	"github.com/banshee-data/scene.report/internal/visualiser"
)

type Server struct {
	ex *scene.Extractor
	db *db.DB
}

// NewServer returns a Server over ex. database may be nil, in which case
// the analyses endpoints report 503.
func NewServer(ex *scene.Extractor, database *db.DB) *Server {
	return &Server{ex: ex, db: database}
}

// ServeMux registers the API routes on a new mux.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/scenes", s.listScenes)
	mux.HandleFunc("/api/scenes/{idx}", s.showSnapshot)
	mux.HandleFunc("/api/scenes/{idx}/trajectories", s.showTrajectories)
	mux.HandleFunc("/api/scenes/{idx}/chart", s.showChart)
	mux.HandleFunc("/api/analyses", s.listAnalyses)
	mux.HandleFunc("/api/analyses/{id}", s.showAnalysis)
	return mux
}

type scenesResponse struct {
	Dataset dataset.Info  `json:"dataset"`
	Options scene.Options `json:"options"`
}

func (s *Server) listScenes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, scenesResponse{
		Dataset: s.ex.DatasetInfo(),
		Options: s.ex.Options(),
	})
}

// sceneIndex parses the {idx} path value, writing a 400 on failure.
func sceneIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(r.PathValue("idx"))
	if err != nil {
		httputil.BadRequest(w, "scene index must be an integer")
		return 0, false
	}
	return idx, true
}

// writeSceneError maps extraction errors onto status codes.
func writeSceneError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scene.ErrSceneNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, scene.ErrEmptyScene), errors.Is(err, kinematics.ErrInvalidDuration):
		httputil.UnprocessableEntity(w, err.Error())
	default:
		monitoring.Logf("scene extraction failed: %v", err)
		httputil.InternalServerError(w, err.Error())
	}
}

func (s *Server) showSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	idx, ok := sceneIndex(w, r)
	if !ok {
		return
	}
	ctx, err := s.ex.Snapshot(idx)
	if err != nil {
		writeSceneError(w, err)
		return
	}
	httputil.WriteJSONOK(w, ctx)
}

func (s *Server) showTrajectories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	idx, ok := sceneIndex(w, r)
	if !ok {
		return
	}
	ctx, err := s.ex.Trajectories(idx)
	if err != nil {
		writeSceneError(w, err)
		return
	}
	httputil.WriteJSONOK(w, ctx)
}

func (s *Server) showChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	idx, ok := sceneIndex(w, r)
	if !ok {
		return
	}
	ctx, err := s.ex.Snapshot(idx)
	if err != nil {
		writeSceneError(w, err)
		return
	}
	page, err := visualiser.ChartHTML(ctx)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteHTML(w, page)
}

func (s *Server) requireDB(w http.ResponseWriter) bool {
	if s.db == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no database configured")
		return false
	}
	return true
}

func (s *Server) listAnalyses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireDB(w) {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.BadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	analyses, err := s.db.ListAnalyses(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, analyses)
}

type analysisResponse struct {
	*db.Analysis
	Scenarios []db.Scenario `json:"scenarios"`
}

func (s *Server) showAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireDB(w) {
		return
	}
	id := r.PathValue("id")
	a, err := s.db.GetAnalysis(id)
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	scenarios, err := s.db.ScenariosForAnalysis(id)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, analysisResponse{Analysis: a, Scenarios: scenarios})
}
