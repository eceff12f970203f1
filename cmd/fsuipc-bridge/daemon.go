package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/voneiden/gofsuipc/internal/backend"
	"github.com/voneiden/gofsuipc/internal/config"
	"github.com/voneiden/gofsuipc/pkg/bridge"
)

const shutdownTimeout = 5 * time.Second

// daemon is the bridge server plus its optional metrics endpoint.
type daemon struct {
	logger   *slog.Logger
	upstream *backend.Backend
	server   *bridge.Server
	closeLog func() error

	metricsLn  net.Listener
	metricsSrv *http.Server

	group *errgroup.Group
}

// newDaemon resolves the upstream and binds the metrics listener. The
// bridge itself listens in Start. The sim upstream runs until ctx is done.
func newDaemon(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*daemon, error) {
	protoLog, closeLog, err := backend.ProtocolLog(cfg)
	if err != nil {
		return nil, err
	}
	d := &daemon{logger: logger, closeLog: closeLog}

	d.upstream, err = backend.New(ctx, cfg, cfg.Server.Upstream, backend.Options{Logger: logger, ProtocolLogger: protoLog})
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("upstream: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	d.server, err = bridge.NewServer(bridge.ServerConfig{
		Address:        cfg.Server.Listen,
		Name:           cfg.Server.Name,
		Upstream:       d.upstream.Connector,
		ProcessTimeout: cfg.Timeout,
		RateLimit:      rate.Limit(cfg.Server.RateLimit),
		Burst:          cfg.Server.Burst,
		Advertise:      cfg.Server.Advertise,
		Interface:      cfg.Bridge.Interface,
		Metrics:        bridge.NewMetrics(reg),
		ProtocolLogger: protoLog,
		Logger:         logger,
	})
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	if cfg.Server.Metrics != "" {
		d.metricsLn, err = net.Listen("tcp", cfg.Server.Metrics)
		if err != nil {
			_ = closeLog()
			return nil, fmt.Errorf("metrics listener: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		d.metricsSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}
	return d, nil
}

// Start starts the bridge and the metrics endpoint. They stop when ctx is
// done or one of them fails; Wait collects the outcome.
func (d *daemon) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if err := d.server.Start(ctx); err != nil {
		if d.metricsLn != nil {
			_ = d.metricsLn.Close()
		}
		_ = d.closeLog()
		return err
	}
	d.logger.Info("forwarding", "upstream", d.upstream.Name)

	g.Go(func() error {
		<-ctx.Done()
		return d.server.Stop()
	})

	if d.metricsSrv != nil {
		d.logger.Info("metrics listening", "addr", d.metricsLn.Addr().String())
		g.Go(func() error {
			err := d.metricsSrv.Serve(d.metricsLn)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("metrics: %w", err)
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return d.metricsSrv.Shutdown(shutdownCtx)
		})
	}

	d.group = g
	return nil
}

// Wait blocks until everything Start launched has stopped.
func (d *daemon) Wait() error {
	err := d.group.Wait()
	if cerr := d.closeLog(); cerr != nil {
		d.logger.Warn("protocol log", "error", cerr)
	}
	return err
}
