package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"trade-relay-bot/internal/logger"
)

// Status is the session state the health endpoint reports.
type Status interface {
	Connected() bool
	ClientID() int
}

type Health struct {
	Connected bool   `json:"connected"`
	ClientID  int    `json:"client_id"`
	Mode      string `json:"mode"`
}

// Server exposes /healthz and /metrics.
type Server struct {
	status Status
	mode   string
	router *mux.Router
	srv    *http.Server
}

func NewServer(addr, mode string, status Status) *Server {
	s := &Server{status: status, mode: mode, router: mux.NewRouter()}
	s.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	})

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           c.Handler(s.router),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	logger.Info(ctx, "Status server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := Health{
		Connected: s.status.Connected(),
		ClientID:  s.status.ClientID(),
		Mode:      s.mode,
	}

	code := http.StatusOK
	if !h.Connected {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, h)
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = jsoniter.NewEncoder(w).Encode(v)
}
