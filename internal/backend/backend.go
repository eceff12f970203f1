// Package backend turns tool configuration into a connected fsuipc.Client.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/voneiden/gofsuipc/internal/config"
	"github.com/voneiden/gofsuipc/pkg/bridge"
	"github.com/voneiden/gofsuipc/pkg/fsuipc"
	"github.com/voneiden/gofsuipc/pkg/log"
	"github.com/voneiden/gofsuipc/pkg/native"
	"github.com/voneiden/gofsuipc/pkg/offsets"
	"github.com/voneiden/gofsuipc/pkg/sim"
	"github.com/voneiden/gofsuipc/pkg/transport"
	"github.com/voneiden/gofsuipc/pkg/wire"
)

// ErrNativeUnavailable is returned for the native backend in builds
// without the fsuipc_native tag.
var ErrNativeUnavailable = errors.New("native backend needs a windows build with -tags fsuipc_native")

// Backend is a resolved connection method.
type Backend struct {
	Name      string
	Connector fsuipc.Connector

	// Emulator is set for the sim backend.
	Emulator *sim.Emulator
}

// Options carries the loggers handed to transports.
type Options struct {
	Logger         *slog.Logger
	ProtocolLogger log.Logger
}

// New resolves backend name. For the sim backend the emulator's dynamics
// run until ctx is done.
func New(ctx context.Context, cfg *config.Config, name string, opts Options) (*Backend, error) {
	b := &Backend{Name: name}

	switch name {
	case config.BackendWindow:
		b.Connector = fsuipc.Window(transport.WindowOptions{
			SendTimeout: cfg.Window.SendTimeout,
			Retries:     cfg.Window.Retries,
			RetryDelay:  cfg.Window.RetryDelay,
		})

	case config.BackendNative:
		if !native.Available {
			return nil, ErrNativeUnavailable
		}
		b.Connector = native.Connector()

	case config.BackendBridge:
		b.Connector = bridgeConnector(cfg, opts)

	case config.BackendSim:
		simID, err := cfg.SimulatorID()
		if err != nil {
			return nil, err
		}
		emu := sim.New(sim.Config{
			Simulator:   simID,
			Title:       cfg.Sim.Title,
			Latitude:    cfg.Sim.Latitude,
			Longitude:   cfg.Sim.Longitude,
			Altitude:    cfg.Sim.Altitude,
			Heading:     cfg.Sim.Heading,
			GroundSpeed: cfg.Sim.GroundSpeed,
			Logger:      opts.Logger,
		})
		if cfg.Sim.Tick > 0 {
			go func() { _ = emu.Run(ctx, cfg.Sim.Tick) }()
		}
		b.Emulator = emu
		b.Connector = fsuipc.Handler(emu, wire.NativeLayout())

	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
	return b, nil
}

// bridgeConnector dials the configured bridge, discovering one over mDNS
// when no address is set.
func bridgeConnector(cfg *config.Config, opts Options) fsuipc.Connector {
	clientConfig := bridge.ClientConfig{ProtocolLogger: opts.ProtocolLogger}
	if cfg.Bridge.Address != "" {
		return bridge.Connector(cfg.Bridge.Address, clientConfig)
	}

	return func(ctx context.Context) (transport.Transport, error) {
		findCtx, cancel := context.WithTimeout(ctx, cfg.Bridge.Discover)
		svc, err := bridge.Find(findCtx, bridge.BrowseConfig{Interface: cfg.Bridge.Interface})
		cancel()
		if err != nil {
			return nil, wire.WrapError(wire.StatusNoFS, err, "bridge discovery")
		}
		if opts.Logger != nil {
			opts.Logger.Info("found bridge", "instance", svc.Instance, "addr", svc.Address())
		}
		return bridge.Dial(ctx, svc.Address(), clientConfig)
	}
}

// Client builds an unopened client for cfg.Backend.
func Client(ctx context.Context, cfg *config.Config, opts Options) (*fsuipc.Client, *Backend, error) {
	b, err := New(ctx, cfg, cfg.Backend, opts)
	if err != nil {
		return nil, nil, err
	}
	clientOpts := []fsuipc.Option{fsuipc.WithProcessTimeout(cfg.Timeout)}
	if opts.Logger != nil {
		clientOpts = append(clientOpts, fsuipc.WithLogger(opts.Logger))
	}
	if opts.ProtocolLogger != nil {
		clientOpts = append(clientOpts, fsuipc.WithProtocolLogger(opts.ProtocolLogger))
	}
	return fsuipc.NewClient(b.Connector, clientOpts...), b, nil
}

// Open builds a client for cfg and opens it against the configured
// simulator.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*fsuipc.Client, *Backend, error) {
	c, b, err := Client(ctx, cfg, opts)
	if err != nil {
		return nil, nil, err
	}
	simID, err := cfg.SimulatorID()
	if err != nil {
		return nil, nil, err
	}
	if err := c.Open(ctx, simID); err != nil {
		return nil, nil, err
	}
	return c, b, nil
}

// NewLogger returns a text slog logger on w at cfg's level.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// ProtocolLog opens cfg.ProtocolLog. It returns a nil logger and a no-op
// closer when no file is configured.
func ProtocolLog(cfg *config.Config) (log.Logger, func() error, error) {
	if cfg.ProtocolLog == "" {
		return nil, func() error { return nil }, nil
	}
	fl, err := log.NewFileLogger(cfg.ProtocolLog)
	if err != nil {
		return nil, nil, fmt.Errorf("protocol log: %w", err)
	}
	return fl, fl.Close, nil
}

// Catalog returns the embedded offset catalogue merged with cfg.Catalog.
func Catalog(cfg *config.Config) (*offsets.Catalog, error) {
	if cfg.Catalog == "" {
		return offsets.Default(), nil
	}
	extra, err := offsets.LoadFile(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", cfg.Catalog, err)
	}
	return offsets.Default().Merge(extra), nil
}
