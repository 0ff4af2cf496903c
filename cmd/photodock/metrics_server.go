package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"photodock/internal/logging"
)

// metricsServer exposes the default Prometheus registry on /metrics for the
// lifetime of a long-running command.
type metricsServer struct {
	srv    *http.Server
	addr   string
	logger *slog.Logger
}

func startMetricsServer(addr string, logger *slog.Logger) (*metricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	m := &metricsServer{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		addr:   ln.Addr().String(),
		logger: logging.NewComponentLogger(logger, "metrics"),
	}
	go func() {
		if err := m.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Warn("metrics server stopped", logging.Error(err))
		}
	}()
	m.logger.Info("metrics listening", logging.String("addr", m.addr))
	return m, nil
}

func (m *metricsServer) Addr() string { return m.addr }

func (m *metricsServer) Shutdown() {
	if m == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = m.srv.Shutdown(ctx)
}
