// Package httpapi is a read/control HTTP facade over the supervisor —
// the HTTP analogue of "the shell polls the task handle" from the
// purpose & scope section. Grounded on the teacher's core/server.go
// (APIServer, CORS middleware, token header) but rebuilt on
// github.com/go-chi/chi/v5 to match the rest of the pack's routers.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"segfetch/internal/supervisor"
)

// TokenHeader is the auth header clients must set, mirroring the
// teacher's X-Tachyon-Token.
const TokenHeader = "X-Segfetch-Token"

// Server exposes the supervisor's operations over HTTP.
type Server struct {
	logger     *slog.Logger
	supervisor *supervisor.Supervisor
	token      string
	httpServer *http.Server
}

// New builds a Server. An empty token disables the auth check, useful
// for local/dev use the same way the teacher's dev token did.
func New(logger *slog.Logger, sup *supervisor.Supervisor, token string) *Server {
	return &Server{logger: logger, supervisor: sup, token: token}
}

type createRequest struct {
	URL      string `json:"url"`
	DestDir  string `json:"dest_dir"`
	FileName string `json:"file_name"`
	Segments int    `json:"segments"`

	// ScheduleAt is an RFC3339 timestamp; a future value lands the task in
	// Scheduled instead of starting it immediately. Empty means "now".
	ScheduleAt string `json:"schedule_at,omitempty"`
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(s.authMiddleware)
	r.Use(s.corsMiddleware)

	r.Post("/downloads", s.handleCreate)
	r.Get("/downloads", s.handleList)
	r.Post("/downloads/{id}/pause", s.handlePause)
	r.Post("/downloads/{id}/resume", s.handleResume)
	r.Post("/downloads/{id}/stop", s.handleStop)
	r.Delete("/downloads/{id}", s.handleRemove)
	r.Get("/stats/disk", s.handleDiskStats)
	r.Post("/stats/speedtest", s.handleSpeedTest)

	return r
}

// Start serves the router in the background on addr (e.g. ":8080").
func (s *Server) Start(addr string) {
	s.httpServer = &http.Server{Addr: addr, Handler: s.router()}
	go func() {
		s.logger.Info("http api starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http api failed", "error", err)
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get(TokenHeader) != s.token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+TokenHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Segments <= 0 {
		req.Segments = 4
	}

	var scheduleTime time.Time
	if req.ScheduleAt != "" {
		t, err := time.Parse(time.RFC3339, req.ScheduleAt)
		if err != nil {
			http.Error(w, "invalid schedule_at: "+err.Error(), http.StatusBadRequest)
			return
		}
		scheduleTime = t
	}

	id, err := s.supervisor.Add(r.Context(), req.URL, req.DestDir, req.FileName, req.Segments, scheduleTime)
	if err != nil {
		s.logger.Error("create download failed", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"id": id})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.supervisor.List())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := s.supervisor.Pause(chi.URLParam(r, "id")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := s.supervisor.Resume(r.Context(), chi.URLParam(r, "id")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	pauseOnly := r.URL.Query().Get("pause_only") == "true"
	if err := s.supervisor.Stop(chi.URLParam(r, "id"), pauseOnly); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.supervisor.Remove(chi.URLParam(r, "id")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDiskStats(w http.ResponseWriter, r *http.Request) {
	dir := r.URL.Query().Get("dir")
	if dir == "" {
		dir = "."
	}
	usage, err := s.supervisor.DiskUsage(dir)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(usage)
}

func (s *Server) handleSpeedTest(w http.ResponseWriter, r *http.Request) {
	result, err := s.supervisor.RunSpeedTest(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
