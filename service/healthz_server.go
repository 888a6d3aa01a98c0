package service

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"
)

// Status is the payload served on /status.
type Status struct {
	Running   bool       `json:"running"`
	Runs      int        `json:"runs"`
	LastRunID string     `json:"lastRunId,omitempty"`
	LastEnded *time.Time `json:"lastEnded,omitempty"`
	Total     int        `json:"total"`
	Passed    int        `json:"passed"`
	Failed    int        `json:"failed"`
	Threw     int        `json:"threw"`
	Aborted   int        `json:"aborted"`
	Skipped   int        `json:"skipped"`
	Cancelled bool       `json:"cancelled"`
	LastError string     `json:"lastError,omitempty"`
}

// StatusProvider reports the state of the engine.
type StatusProvider interface {
	Status() Status
}

type HealthzServer struct {
	log    log.Logger
	status StatusProvider
	srv    managedServer
}

func NewHealthzServer(logger log.Logger, status StatusProvider) *HealthzServer {
	return &HealthzServer{log: logger, status: status}
}

// Handler returns the routes of the server.
func (h *HealthzServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.Handle)
	mux.HandleFunc("/status", h.HandleStatus)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return c.Handler(mux)
}

func (h *HealthzServer) Start(ctx context.Context, addr string) error {
	return h.srv.listenAndServe(ctx, addr, h.Handler())
}

func (h *HealthzServer) Shutdown(ctx context.Context) error {
	return h.srv.shutdown(ctx)
}

func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	h.log.Debug("Received health check request", "path", r.URL.Path)
	w.Write([]byte("OK")) //nolint:errcheck
}

func (h *HealthzServer) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		http.Error(w, "status unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.status.Status()); err != nil {
		h.log.Warn("Failed to encode status", "err", err)
	}
}
