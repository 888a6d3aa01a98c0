package service

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsServer struct {
	gatherer prometheus.Gatherer
	srv      managedServer
}

// NewMetricsServer serves gatherer on /metrics. A nil gatherer serves the
// default registry.
func NewMetricsServer(gatherer prometheus.Gatherer) *MetricsServer {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &MetricsServer{gatherer: gatherer}
}

func (m *MetricsServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	return mux
}

func (m *MetricsServer) Start(ctx context.Context, addr string) error {
	return m.srv.listenAndServe(ctx, addr, m.Handler())
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.shutdown(ctx)
}
