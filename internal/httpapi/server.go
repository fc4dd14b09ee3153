// Package httpapi exposes the compiler pipeline over HTTP: template
// registration and a synchronous compile endpoint. Each compile request
// runs the pipeline to completion within the handler — there is no
// background-run/event-stream split like a long DAG execution would need,
// since a single compile is a short, strictly sequential operation.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/soochol/notegen/internal/diag"
	"github.com/soochol/notegen/internal/notetmpl"
	"github.com/soochol/notegen/internal/pipeline"
	"github.com/soochol/notegen/internal/runlog"
)

// Server wires the template store and pipeline into chi routes.
type Server struct {
	templates *TemplateStore
	pipeline  *pipeline.Pipeline
	runLog    *runlog.DB
	defaults  pipeline.GenerationOptions
}

// NewServer builds a Server. runLog may be nil when no run-telemetry
// database is configured.
func NewServer(p *pipeline.Pipeline, runLog *runlog.DB, defaults pipeline.GenerationOptions) *Server {
	return &Server{
		templates: NewTemplateStore(),
		pipeline:  p,
		runLog:    runLog,
		defaults:  defaults,
	}
}

// Templates returns the server's template store, so callers (e.g. the A2A
// skill executor) can share the same registered templates.
func (s *Server) Templates() *TemplateStore {
	return s.templates
}

// Handler builds the chi router. It returns chi.Router (not bare
// http.Handler) so callers can mount additional routes, such as the A2A
// protocol endpoints, onto the same router and middleware stack.
func (s *Server) Handler() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/v1/templates", func(r chi.Router) {
		r.Post("/", s.createTemplate)
		r.Get("/", s.listTemplates)
		r.Get("/{id}", s.getTemplate)
		r.Delete("/{id}", s.deleteTemplate)
		r.Post("/{id}/compile", s.compileTemplate)
	})

	return r
}

func (s *Server) createTemplate(w http.ResponseWriter, r *http.Request) {
	var tmpl notetmpl.Template
	if err := json.NewDecoder(r.Body).Decode(&tmpl); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if findings := notetmpl.Validate(tmpl); findings.HasSeverity(diag.SeverityError) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": findings})
		return
	}
	s.templates.Put(tmpl)
	writeJSON(w, http.StatusCreated, tmpl)
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.templates.List())
}

func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tmpl, ok := s.templates.Get(id)
	if !ok {
		http.Error(w, "template not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (s *Server) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	s.templates.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// CompileRequest is the JSON body for a compile call.
type CompileRequest struct {
	SourceData map[string]any `json:"sourceData"`
	FactPack   map[string]any `json:"factPack"`
	Model      string         `json:"model,omitempty"`
}

// CompileResponse mirrors pipeline.Output, trimmed to what a caller needs.
type CompileResponse struct {
	RequestID   string         `json:"requestId"`
	State       pipeline.State `json:"state"`
	Payload     map[string]any `json:"payload"`
	NASSnapshot map[string]any `json:"nasSnapshot"`
	Warnings    any            `json:"warnings"`
	Model       string         `json:"model,omitempty"`
	ResponseID  string         `json:"responseId,omitempty"`
}

func (s *Server) compileTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tmpl, ok := s.templates.Get(id)
	if !ok {
		http.Error(w, "template not found", http.StatusNotFound)
		return
	}

	var req CompileRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	gen := s.defaults
	if req.Model != "" {
		gen.Model = req.Model
	}

	requestID := uuid.NewString()
	started := time.Now()
	out, err := s.pipeline.Run(r.Context(), tmpl, req.SourceData, req.FactPack, pipeline.Options{
		RequestID:    requestID,
		Generation:   gen,
		EventHandler: stageLogger(requestID),
	})

	if s.runLog != nil {
		rec := runlog.FromOutput(requestID, tmpl.ID, tmpl.Version, out, err, started)
		if logErr := s.runLog.Insert(r.Context(), rec); logErr != nil {
			slog.Warn("run log insert failed", "err", logErr)
		}
	}

	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"requestId": requestID,
			"error":     err.Error(),
			"state":     out.State,
		})
		return
	}

	writeJSON(w, http.StatusOK, CompileResponse{
		RequestID:   requestID,
		State:       out.State,
		Payload:     out.Payload,
		NASSnapshot: out.NASSnapshot,
		Warnings:    out.Warnings,
		Model:       out.Model,
		ResponseID:  out.ResponseID,
	})
}

// stageLogger returns an EventHandler that logs one compile request's
// stage transitions at debug level, scoped to requestID by the bus's
// per-request filtering — useful for tracing a single slow or failing
// compile without subscribing a handler that outlives the request.
func stageLogger(requestID string) pipeline.EventHandler {
	return func(e pipeline.Event) {
		slog.Debug("pipeline stage event", "requestId", requestID, "stage", e.Stage, "type", e.Type)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
