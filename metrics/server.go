package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves the collectors of a Metrics on /metrics.
type MetricsServer struct {
	metrics *Metrics
	srv     *http.Server
}

// New creates the metrics and, if addr is not empty, a server exposing them.
func New(namespace, addr string) (*MetricsServer, error) {
	if namespace == "" {
		return nil, errors.New("metrics namespace is required")
	}

	m := NewMetrics(namespace)
	ms := &MetricsServer{metrics: m}
	if addr == "" {
		return ms, nil
	}

	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry}))
	ms.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return ms, nil
}

// Metrics returns the served collectors.
func (ms *MetricsServer) Metrics() *Metrics {
	return ms.metrics
}

// Handler returns the /metrics handler, or nil without a listen address.
func (ms *MetricsServer) Handler() http.Handler {
	if ms.srv == nil {
		return nil
	}
	return ms.srv.Handler
}

// ListenAndServe blocks serving metrics. Without a listen address it returns immediately.
func (ms *MetricsServer) ListenAndServe() error {
	if ms.srv == nil {
		return nil
	}
	err := ms.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server.
func (ms *MetricsServer) Shutdown(ctx context.Context) error {
	if ms.srv == nil {
		return nil
	}
	return ms.srv.Shutdown(ctx)
}

func statusCode(code int) string {
	return strconv.Itoa(code)
}
