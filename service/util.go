package service

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
)

func itoa(n int) string { return strconv.Itoa(n) }

// managedServer guards an http.Server that is started on one goroutine and
// shut down from another. Shutdown before start makes start a no-op.
type managedServer struct {
	mu     sync.Mutex
	server *http.Server
	closed bool
}

func (m *managedServer) listenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return http.ErrServerClosed
	}
	srv := &http.Server{
		Handler:     handler,
		Addr:        addr,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	m.server = srv
	m.mu.Unlock()
	return srv.ListenAndServe()
}

func (m *managedServer) shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	srv := m.server
	m.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
