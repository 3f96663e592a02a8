// Package server exposes the analysis pipeline as an HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cratelens/cratelens/pkg/analysis"
	"github.com/cratelens/cratelens/pkg/conflicts"
	pkgerrors "github.com/cratelens/cratelens/pkg/errors"
	"github.com/cratelens/cratelens/pkg/manifest"
)

// Server handles analysis requests over HTTP.
type Server struct {
	engine *analysis.Engine
	logger *log.Logger
	http   *http.Server
}

// New creates a Server bound to addr.
func New(addr string, engine *analysis.Engine, logger *log.Logger) *Server {
	s := &Server{engine: engine, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/graph", s.handleGraph)
		r.Post("/conflicts", s.handleConflicts)
		r.Post("/licenses", s.handleLicenses)
		r.Post("/audit", s.handleAudit)
		r.Get("/reports/latest", s.handleLatest)
	})

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Listening on %s", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// analyzeRequest is the JSON body of every analysis endpoint. The manifest
// and lockfile are sent inline as TOML text so editors never need to write
// unsaved buffers to disk.
type analyzeRequest struct {
	Manifest     string `json:"manifest"`
	Lockfile     string `json:"lockfile,omitempty"`
	Order        string `json:"order,omitempty"`
	PreferStable *bool  `json:"preferStable,omitempty"`
}

// decode parses the request body into a manifest, an optional lockfile, and
// a conflict strategy.
func decode(r *http.Request) (*manifest.Manifest, *manifest.Lockfile, conflicts.Strategy, error) {
	strategy := conflicts.DefaultStrategy

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, nil, strategy, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidInput, err, "invalid JSON body")
	}
	if req.Manifest == "" {
		return nil, nil, strategy, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "manifest is required")
	}

	m, err := manifest.Parse([]byte(req.Manifest))
	if err != nil {
		return nil, nil, strategy, err
	}

	var lf *manifest.Lockfile
	if req.Lockfile != "" {
		lf, err = manifest.ParseLockfile([]byte(req.Lockfile))
		if err != nil {
			return nil, nil, strategy, err
		}
	}

	switch req.Order {
	case "", "highest":
		strategy.Order = conflicts.OrderHighest
	case "lowest":
		strategy.Order = conflicts.OrderLowest
	default:
		return nil, nil, strategy, pkgerrors.New(pkgerrors.ErrCodeInvalidStrategy, "unknown order: "+req.Order)
	}
	if req.PreferStable != nil {
		strategy.PreferStable = *req.PreferStable
	}

	return m, lf, strategy, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, analysis.Options{Licenses: true, Vulnerabilities: true}, nil)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, analysis.Options{}, func(rep *analysis.Report) any {
		return rep.Graph
	})
}

func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, analysis.Options{}, func(rep *analysis.Report) any {
		return rep.Conflicts
	})
}

func (s *Server) handleLicenses(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, analysis.Options{Licenses: true}, func(rep *analysis.Report) any {
		return map[string]any{"licenses": rep.Licenses, "summary": rep.Summary}
	})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, analysis.Options{Vulnerabilities: true}, func(rep *analysis.Report) any {
		return rep.Vulns
	})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	rep := s.engine.Latest()
	if rep == nil {
		writeError(w, http.StatusNotFound, "no analysis has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// run decodes the request, executes one analysis, commits the report, and
// writes either the full report or a projection of it.
func (s *Server) run(w http.ResponseWriter, r *http.Request, opts analysis.Options, project func(*analysis.Report) any) {
	m, lf, strategy, err := decode(r)
	if err != nil {
		writeError(w, statusFor(err), pkgerrors.UserMessage(err))
		return
	}
	opts.Strategy = strategy

	rep, err := s.engine.Analyze(r.Context(), m, lf, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, pkgerrors.UserMessage(err))
		return
	}
	s.engine.Commit(rep)
	s.logger.Debugf("analysis %s seq=%d nodes=%d", rep.ID, rep.Seq, len(rep.Graph.Nodes))

	if project != nil {
		writeJSON(w, http.StatusOK, project(rep))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func statusFor(err error) int {
	switch pkgerrors.GetCode(err) {
	case pkgerrors.ErrCodeInvalidInput, pkgerrors.ErrCodeInvalidManifest,
		pkgerrors.ErrCodeInvalidLockfile, pkgerrors.ErrCodeInvalidStrategy:
		return http.StatusBadRequest
	case pkgerrors.ErrCodeNotFound, pkgerrors.ErrCodePackageNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
