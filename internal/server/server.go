// Package server exposes the thermal model over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/san-kum/thermalstate/internal/config"
	"github.com/san-kum/thermalstate/internal/dynamo"
	"github.com/san-kum/thermalstate/internal/experiment"
	"github.com/san-kum/thermalstate/internal/export"
	"github.com/san-kum/thermalstate/internal/logging"
	"github.com/san-kum/thermalstate/internal/thermal"
)

const (
	outcomeOK      = "ok"
	outcomeInvalid = "invalid"
	outcomeFailed  = "failed"
	outcomeAborted = "aborted"
)

// statusClientClosedRequest is the non-standard code logged when the
// client goes away before the run finishes.
const statusClientClosedRequest = 499

type Server struct {
	base    *config.Config
	reg     *experiment.Registry
	metrics *Metrics
	log     *slog.Logger
	access  io.Writer
	router  *mux.Router
	timeout time.Duration
}

type Option func(*Server)

// WithAccessLog writes combined-format access lines to w.
func WithAccessLog(w io.Writer) Option { return func(s *Server) { s.access = w } }

// WithTimeout bounds a single /simulate run.
func WithTimeout(d time.Duration) Option { return func(s *Server) { s.timeout = d } }

// New builds a server whose runs start from base; query parameters
// override ambient, setpoint, start and integrator.
func New(base *config.Config, log *slog.Logger, opts ...Option) *Server {
	if log == nil {
		log = logging.Discard()
	}
	s := &Server{
		base:    base.Clone(),
		reg:     experiment.NewRegistry(),
		metrics: NewMetrics(),
		log:     log,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/health", s.metrics.WrapHandler("/health", http.HandlerFunc(s.health))).Methods("GET")
	r.Handle("/simulate", s.metrics.WrapHandler("/simulate", http.HandlerFunc(s.simulate))).Methods("GET")
	r.Handle("/presets", s.metrics.WrapHandler("/presets", http.HandlerFunc(s.presets))).Methods("GET")
	r.Handle("/presets/{name}", s.metrics.WrapHandler("/presets/{name}", http.HandlerFunc(s.simulatePreset))).Methods("GET")
	r.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	return r
}

func (s *Server) Handler() http.Handler {
	if s.access == nil {
		return s.router
	}
	return handlers.LoggingHandler(s.access, s.router)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) presets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"presets": config.ListPresets()})
}

func (s *Server) simulatePreset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	cfg := config.GetPreset(name)
	if cfg == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown preset: %s", name))
		return
	}
	s.run(w, r, cfg)
}

func (s *Server) simulate(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.parseQuery(r)
	if err != nil {
		s.metrics.Run(outcomeInvalid, 0)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.run(w, r, cfg)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request, cfg *config.Config) {
	id := uuid.New().String()
	log := s.log.With("run", id)

	exp := experiment.New(cfg, log)
	if err := exp.Setup(s.reg); err != nil {
		s.metrics.Run(outcomeInvalid, 0)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	traj, err := exp.Run(ctx)
	if err != nil {
		status := statusFor(err)
		if status == statusClientClosedRequest {
			s.metrics.Run(outcomeAborted, 0)
			log.Debug("run aborted by client", "error", err)
		} else {
			s.metrics.Run(outcomeFailed, 0)
			log.Warn("run failed", "error", err)
		}
		writeError(w, status, err)
		return
	}
	s.metrics.Run(outcomeOK, traj.Steps)
	log.Debug("run complete", "steps", traj.Steps, "rejected", traj.Rejected)

	withGrids, _ := strconv.ParseBool(r.URL.Query().Get("grids"))
	run := export.Run{
		ID:         id,
		Ambient:    cfg.Ambient,
		Setpoint:   cfg.Setpoint,
		Start:      cfg.Start,
		Integrator: cfg.Integrator,
	}
	writeJSON(w, http.StatusOK, export.NewExportData(run, traj, withGrids))
}

func (s *Server) parseQuery(r *http.Request) (*config.Config, error) {
	q := r.URL.Query()
	cfg := s.base.Clone()

	floats := []struct {
		key string
		dst *float64
	}{
		{"ta", &cfg.Ambient},
		{"tset", &cfg.Setpoint},
	}
	for _, f := range floats {
		if v := q.Get(f.key); v != "" {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.key, err)
			}
			*f.dst = parsed
		}
	}
	if v := q.Get("tstart"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("tstart: %w", err)
		}
		cfg.Start = parsed
	}
	if v := q.Get("integrator"); v != "" {
		cfg.Integrator = v
	}
	return cfg, nil
}

// statusFor maps run errors onto HTTP codes: precondition violations are
// the caller's fault, solver failures are not.
func statusFor(err error) int {
	var simErr *dynamo.SimulationError
	switch {
	case errors.Is(err, thermal.ErrStartOutOfRange),
		errors.Is(err, thermal.ErrInvalidRates),
		errors.Is(err, thermal.ErrInvalidMass),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, dynamo.ErrParameterBounds):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.As(err, &simErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
