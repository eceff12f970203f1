// Command fsuipc-bridge serves a local FSUIPC link to network clients.
//
// It opens the configured upstream (normally the window transport on the
// simulator PC) and forwards request areas from clients using the bridge
// backend, the way WideClient extends FSUIPC over a network.
//
// Usage:
//
//	fsuipc-bridge [flags]
//
// Examples:
//
//	# Serve the local simulator and advertise over mDNS
//	fsuipc-bridge -advertise
//
//	# Serve the built-in emulator with Prometheus metrics on :9100
//	fsuipc-bridge -upstream sim -metrics :9100
//
//	# Cap each client at 30 process requests per second
//	fsuipc-bridge -rate-limit 30 -burst 5
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/voneiden/gofsuipc/internal/backend"
	"github.com/voneiden/gofsuipc/internal/config"
)

func main() {
	fs := flag.NewFlagSet("fsuipc-bridge", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "fsuipc-bridge - FSUIPC network bridge\n\nUsage:\n  fsuipc-bridge [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	flags := config.AddFlags(fs)
	flags.AddServerFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	cfg, err := flags.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := backend.NewLogger(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := newDaemon(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		stop()
		os.Exit(1)
	}
	if err := d.Start(ctx); err != nil {
		logger.Error("startup failed", "error", err)
		stop()
		os.Exit(1)
	}
	if err := d.Wait(); err != nil {
		logger.Error("bridge stopped", "error", err)
		stop()
		os.Exit(1)
	}
	logger.Info("bridge stopped")
}
