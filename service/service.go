// Package service runs the HTTP side of a long-lived test executor: a health
// and status endpoint and a Prometheus metrics endpoint.
package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-testexec/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = 8080

	MetricsHost = "0.0.0.0"
	MetricsPort = 7300
)

type Config struct {
	HealthzEnabled bool
	HealthzHost    string
	HealthzPort    int
	MetricsEnabled bool
	MetricsHost    string
	MetricsPort    int
}

// DefaultConfig enables both servers on their default addresses.
func DefaultConfig() Config {
	return Config{
		HealthzEnabled: true,
		HealthzHost:    HealthzHost,
		HealthzPort:    HealthzPort,
		MetricsEnabled: true,
		MetricsHost:    MetricsHost,
		MetricsPort:    MetricsPort,
	}
}

func (c Config) healthzAddr() string {
	return net.JoinHostPort(c.HealthzHost, itoa(c.HealthzPort))
}

func (c Config) metricsAddr() string {
	return net.JoinHostPort(c.MetricsHost, itoa(c.MetricsPort))
}

type Service struct {
	cfg     Config
	log     log.Logger
	Healthz *HealthzServer
	Metrics *MetricsServer

	wg sync.WaitGroup
}

func New(cfg Config, logger log.Logger, status StatusProvider) *Service {
	return &Service{
		cfg:     cfg,
		log:     logger,
		Healthz: NewHealthzServer(logger.New("server", "healthz"), status),
		Metrics: NewMetricsServer(nil),
	}
}

func (s *Service) Start(ctx context.Context) {
	s.log.Info("service starting")

	if s.cfg.HealthzEnabled {
		s.serve(ctx, "healthz", s.cfg.healthzAddr(), s.Healthz.Start)
	}
	if s.cfg.MetricsEnabled {
		s.serve(ctx, "metrics", s.cfg.metricsAddr(), s.Metrics.Start)
	}

	s.log.Info("service started")
}

func (s *Service) serve(ctx context.Context, name, addr string, start func(context.Context, string) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.log.Info("starting "+name+" server", "addr", addr)
		if err := start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("error starting "+name+" server", "err", err)
			metrics.RecordErrorDetails("error starting "+name+" server", err)
		}
	}()
}

func (s *Service) Shutdown(ctx context.Context) {
	s.log.Info("service shutting down")

	if err := s.Healthz.Shutdown(ctx); err != nil {
		s.log.Warn("healthz shutdown failed", "err", err)
	}
	s.log.Info("healthz stopped")

	if err := s.Metrics.Shutdown(ctx); err != nil {
		s.log.Warn("metrics shutdown failed", "err", err)
	}
	s.log.Info("metrics stopped")

	s.wg.Wait()
	s.log.Info("service stopped")
}
