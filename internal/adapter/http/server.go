package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/itinerary"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Runner builds and delivers one report.
type Runner interface {
	RunOnce(ctx context.Context) (itinerary.JobResult, error)
}

// Debugger explains how a single location resolves.
type Debugger interface {
	Debug(ctx context.Context, text string, hour int) (itinerary.DebugResult, error)
}

// RunTimeout bounds a manual run once it has been detached from its request.
const RunTimeout = 2 * time.Minute

// Server exposes the operational endpoints plus manual run and debug routes.
type Server struct {
	httpServer *http.Server
	runner     Runner
	debugger   Debugger
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, /run,
// /debug and / routes.
func NewServer(addr string, ready ReadinessChecker, runner Runner, debugger Debugger, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// A run makes several upstream calls per event.
			WriteTimeout: RunTimeout + 10*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		runner:   runner,
		debugger: debugger,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /run", s.handleRun)
	mux.HandleFunc("POST /run", s.handleRun)
	mux.HandleFunc("GET /debug", s.handleDebug)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "itinerary weather notifier is running")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// handleRun builds and pushes a report. The body is the report text, or the
// full result with ?format=json. The run outlives a caller that hangs up, so
// a pinger with a short timeout still gets a complete report delivered.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), RunTimeout)
	defer cancel()

	res, err := s.runner.RunOnce(ctx)
	asJSON := r.URL.Query().Get("format") == "json"
	if err != nil {
		s.logger.Error("manual run failed", "error", err)
		if asJSON {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}
	if asJSON {
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeText(w, http.StatusOK, res.Report.Text)
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := strings.TrimSpace(q.Get("location"))
	if text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "location query parameter is required"})
		return
	}

	hour := -1
	if raw := q.Get("hour"); raw != "" {
		h, err := strconv.Atoi(raw)
		if err != nil || h < 0 || h > 23 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hour must be an integer 0-23"})
			return
		}
		hour = h
	}

	res, err := s.debugger.Debug(r.Context(), text, hour)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v) //nolint:errcheck // best-effort response
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(text)) //nolint:errcheck // best-effort response
}
