// Package stub is an in-process stand-in for the analysis backend. It serves
// the same HTTP surface with canned providers and models and jobs that
// finish after a fixed number of status reads.
package stub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/dyike/cortexctl/pkg/models"
)

const DefaultCompleteAfter = 3

// DecideFunc produces the decision text for a finished job. A non-nil
// error makes the job end in the "error" status with that message.
type DecideFunc func(req models.AnalysisRequest) (string, error)

type job struct {
	id       string
	req      models.AnalysisRequest
	reads    int
	done     bool
	decision string
	err      error
}

type Server struct {
	completeAfter int
	decide        DecideFunc
	logger        *slog.Logger

	mu   sync.Mutex
	jobs map[string]*job
	cfg  models.APIConfig

	hub *hub
}

type Option func(*Server)

// WithCompleteAfter sets how many status reads a job reports "running"
// before it completes. Zero completes on the first read.
func WithCompleteAfter(n int) Option {
	return func(s *Server) {
		if n >= 0 {
			s.completeAfter = n
		}
	}
}

func WithDecide(fn DecideFunc) Option {
	return func(s *Server) {
		if fn != nil {
			s.decide = fn
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAPIConfig seeds the stored credentials returned by GET /api/config.
func WithAPIConfig(cfg models.APIConfig) Option {
	return func(s *Server) {
		s.cfg = cfg
	}
}

func New(opts ...Option) *Server {
	s := &Server{
		completeAfter: DefaultCompleteAfter,
		decide:        DefaultDecide,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		jobs:          make(map[string]*job),
		hub:           newHub(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultDecide picks buy, sell or hold from the ticker so repeated runs of
// the same symbol agree.
func DefaultDecide(req models.AnalysisRequest) (string, error) {
	sum := 0
	for _, r := range req.Ticker {
		sum += int(r)
	}
	switch sum % 3 {
	case 0:
		return fmt.Sprintf("BUY: momentum and fundamentals support a position in %s", req.Ticker), nil
	case 1:
		return fmt.Sprintf("SELL: downside risk outweighs upside for %s", req.Ticker), nil
	default:
		return fmt.Sprintf("HOLD: no strong signal for %s", req.Ticker), nil
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	mux.Get("/ws", s.hub.serveWS)
	mux.Route("/api", func(rt chi.Router) {
		rt.Get("/health", s.wrap(s.handleHealth))
		rt.Get("/providers", s.wrap(s.handleProviders))
		rt.Get("/models/{provider}", s.wrap(s.handleModels))
		rt.Get("/config", s.wrap(s.handleGetConfig))
		rt.Post("/save-config", s.wrap(s.handleSaveConfig))
		rt.Post("/analyze", s.wrap(s.handleAnalyze))
		rt.Get("/analysis/{id}", s.wrap(s.handleStatus))
	})
	return mux
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("stub backend listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down stub backend")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

var errBadRequest = errors.New("bad request")

func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			s.logger.Warn("stub request failed", "method", r.Method, "path", r.URL.Path, "error", err)
			if errors.Is(err, errBadRequest) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleProviders(w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, http.StatusOK, map[string]any{"providers": Providers})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, ModelsFor(chi.URLParam(r, "provider")))
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) error {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()
	return writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) error {
	var cfg models.APIConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		return fmt.Errorf("%w: decode config: %v", errBadRequest, err)
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return writeJSON(w, http.StatusOK, models.Ack{Success: true, Message: "configuration saved"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) error {
	var req models.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return fmt.Errorf("%w: decode analysis request: %v", errBadRequest, err)
	}
	req.Normalize()
	if missing := req.MissingFields(); len(missing) > 0 {
		return writeJSON(w, http.StatusOK, models.Acceptance{
			Success: false,
			Message: "missing required fields: " + strings.Join(missing, ", "),
		})
	}

	j := &job{id: uuid.New().String(), req: req}
	s.mu.Lock()
	s.jobs[j.id] = j
	s.mu.Unlock()

	s.logger.Info("stub analysis accepted", "job_id", j.id, "ticker", req.Ticker)
	s.hub.broadcast(fmt.Sprintf("Analysis of %s started", req.Ticker))
	return writeJSON(w, http.StatusOK, models.Acceptance{
		Success:    true,
		AnalysisID: j.id,
		Message:    "analysis started",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return writeJSON(w, http.StatusNotFound, models.StatusResponse{
			Status:  models.JobError,
			Message: "analysis not found",
		})
	}
	j.reads++
	if !j.done && j.reads > s.completeAfter {
		j.decision, j.err = s.decide(j.req)
		j.done = true
	}
	reads, done, decision, jobErr, req := j.reads, j.done, j.decision, j.err, j.req
	s.mu.Unlock()

	if !done {
		s.hub.broadcast(fmt.Sprintf("%s: step %d of %d", req.Ticker, reads, s.completeAfter+1))
		return writeJSON(w, http.StatusOK, models.StatusResponse{Status: models.JobRunning})
	}
	if jobErr != nil {
		return writeJSON(w, http.StatusOK, models.StatusResponse{
			Status:  models.JobError,
			Message: jobErr.Error(),
		})
	}

	raw, err := json.Marshal(map[string]any{
		"decision": decision,
		"ticker":   req.Ticker,
		"date":     req.Date,
		"analysts": req.Analysts,
		"provider": req.LLMProvider,
	})
	if err != nil {
		return err
	}
	s.hub.broadcast(fmt.Sprintf("Analysis of %s completed", req.Ticker))
	return writeJSON(w, http.StatusOK, models.StatusResponse{
		Status:  models.JobCompleted,
		Success: true,
		Result:  &models.AnalysisResult{Decision: decision, Raw: raw},
	})
}
