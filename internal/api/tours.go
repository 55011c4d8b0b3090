package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/tourforge-core/internal/pipeline"
)

// maxURLParamLen limits path/query parameter length to prevent DoS via
// oversized URL params.
const maxURLParamLen = 100

// analyzeRequest is the body for POST /floorplans/analyze.
type analyzeRequest struct {
	ImageURL string `json:"image_url"`
}

// createTourRequest is the body for POST /tours.
type createTourRequest struct {
	ImageURL string `json:"image_url"`
	Style    string `json:"style"`
}

// handleAnalyzeFloorplan runs floor-plan analysis synchronously and
// returns the spatial graph without generating any imagery.
func (s *Server) handleAnalyzeFloorplan(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.ImageURL == "" {
		writeBadRequest(w, "image_url is required")
		return
	}

	graph, err := s.engine.Analyze(r.Context(), req.ImageURL)
	if err != nil {
		switch {
		case pipeline.IsFailure(err, pipeline.KindInvalidFloorPlan):
			writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
		case pipeline.IsFailure(err, pipeline.KindAnalysisFailed):
			writeError(w, http.StatusBadGateway, ErrCodePipeline, err.Error())
		default:
			writeInternalError(w, "analysis failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"generation_id":  pipeline.GenerateID(),
		"apartment_type": graph.ApartmentType,
		"layout_style":   graph.LayoutStyle,
		"rooms":          graph.Rooms,
		"connections":    graph.Connections,
	})
}

// handleCreateTour starts a pipeline run and returns its execution ID.
// Generation takes minutes; clients follow progress over the WebSocket
// or by polling the execution resource.
func (s *Server) handleCreateTour(w http.ResponseWriter, r *http.Request) {
	var req createTourRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.ImageURL == "" {
		writeBadRequest(w, "image_url is required")
		return
	}
	if req.Style == "" {
		writeBadRequest(w, "style is required")
		return
	}

	execID, err := s.engine.Start(r.Context(), req.ImageURL, req.Style)
	if err != nil {
		s.logger.Error("failed to start pipeline run", "error", err)
		writeInternalError(w, "failed to start tour generation")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"execution_id": execID,
		"status":       "pending",
	})
}

// handleListTours returns recent tours, newest first.
//
// Query parameters:
//   - limit: maximum number of tours to return (default 20, max 100)
func (s *Server) handleListTours(w http.ResponseWriter, r *http.Request) {
	tours, err := s.repo.ListTours(r.Context(), parseLimit(r))
	if err != nil {
		writeInternalError(w, "failed to list tours")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tours": tours, "count": len(tours)})
}

// handleGetTour returns a single tour by ID.
func (s *Server) handleGetTour(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxURLParamLen {
		writeBadRequest(w, "invalid tour ID")
		return
	}

	t, err := s.repo.GetTour(r.Context(), id)
	if err != nil {
		if errors.Is(err, pipeline.ErrTourNotFound) {
			writeNotFound(w, "tour not found")
			return
		}
		writeInternalError(w, "failed to get tour")
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// handleListExecutions returns recent pipeline executions, newest first.
func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	executions, err := s.repo.ListExecutions(r.Context(), parseLimit(r))
	if err != nil {
		writeInternalError(w, "failed to list executions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"executions": executions, "count": len(executions)})
}

// handleGetExecution returns a single pipeline execution by ID.
func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxURLParamLen {
		writeBadRequest(w, "invalid execution ID")
		return
	}

	exec, err := s.repo.GetExecution(r.Context(), id)
	if err != nil {
		if errors.Is(err, pipeline.ErrExecutionNotFound) {
			writeNotFound(w, "execution not found")
			return
		}
		writeInternalError(w, "failed to get execution")
		return
	}

	writeJSON(w, http.StatusOK, exec)
}

// parseLimit reads the limit query parameter, falling back to 0 so the
// repository applies its own default.
func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" || len(raw) > maxURLParamLen {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return limit
}
