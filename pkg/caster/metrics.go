package caster

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// MetricsServer serves Prometheus's /metrics on its own address,
// deliberately separate from the caster's raw TCP data-plane listener:
// observability never shares a port with subscriber streams.
type MetricsServer struct {
	srv *http.Server
}

// NewMetricsServer builds (but does not start) a metrics server bound to
// addr, serving whatever promReg has accumulated.
func NewMetricsServer(addr string, promReg *prometheus.Registry) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

	return &MetricsServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// ListenAndServe blocks serving metrics until Shutdown is called.
func (m *MetricsServer) ListenAndServe(logger logrus.FieldLogger) error {
	logger.WithField("addr", m.srv.Addr).Info("metrics server listening")
	err := m.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the metrics server, bounded by ctx.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
