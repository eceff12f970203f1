// Command fsuipc reads and writes FSUIPC offsets from the command line.
//
// Usage:
//
//	fsuipc <command> [flags] [arguments]
//
// Commands:
//
//	read     Read offsets once
//	write    Write offsets once
//	watch    Print offsets as they change
//	info     Show the simulator and FSUIPC version
//	offsets  List the offset catalogue
//	shell    Interactive session
//
// Offsets are catalogue names ("heading") or numbers with an optional
// size ("0x66C0:8"). Writes take offset=value pairs.
//
// Examples:
//
//	# Read heading and altitude from the local simulator
//	fsuipc read heading altitude
//
//	# Set the parking brake through a bridge found over mDNS
//	fsuipc write -backend bridge parking_brake=32767
//
//	# Watch the radios against the built-in emulator
//	fsuipc watch -backend sim com1_frequency nav1_frequency
//
// Every command accepts -config and the FSUIPC_* environment; flags win
// over both.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voneiden/gofsuipc/cmd/fsuipc/commands"
	"github.com/voneiden/gofsuipc/cmd/fsuipc/interactive"
	"github.com/voneiden/gofsuipc/internal/backend"
	"github.com/voneiden/gofsuipc/internal/config"
	"github.com/voneiden/gofsuipc/pkg/fsuipc"
	"github.com/voneiden/gofsuipc/pkg/offsets"
)

const usage = `fsuipc - FSUIPC offset tool

Usage:
  fsuipc <command> [flags] [arguments]

Commands:
  read     Read offsets once
  write    Write offsets once
  watch    Print offsets as they change
  info     Show the simulator and FSUIPC version
  offsets  List the offset catalogue
  shell    Interactive session

Use "fsuipc <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "read":
		err = runRead(ctx, args)
	case "write":
		err = runWrite(ctx, args)
	case "watch":
		err = runWatch(ctx, args)
	case "info":
		err = runInfo(ctx, args)
	case "offsets":
		err = runOffsets(args)
	case "shell":
		err = runShell(ctx, args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// session is an open client plus what the commands need around it.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	catalog  *offsets.Catalog
	client   *fsuipc.Client
	backend  string
	closeLog func() error
}

func (s *session) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.logger.Warn("close", "error", err)
		}
	}
	if err := s.closeLog(); err != nil {
		s.logger.Warn("protocol log", "error", err)
	}
}

func newFlagSet(name, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "fsuipc %s\n\nUsage:\n  %s\n\nFlags:\n", name, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// load parses args into fs and returns the merged configuration.
func load(fs *flag.FlagSet, args []string) (*config.Config, error) {
	flags := config.AddFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags.Load()
}

// open connects the configured backend.
func open(ctx context.Context, cfg *config.Config) (*session, error) {
	logger := backend.NewLogger(cfg, os.Stderr)
	catalog, err := backend.Catalog(cfg)
	if err != nil {
		return nil, err
	}
	protoLog, closeLog, err := backend.ProtocolLog(cfg)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger, catalog: catalog, backend: cfg.Backend, closeLog: closeLog}
	openCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	client, _, err := backend.Open(openCtx, cfg, backend.Options{Logger: logger, ProtocolLogger: protoLog})
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	s.client = client
	logger.Debug("link open", "backend", cfg.Backend, "simulator", client.Simulator().String())
	return s, nil
}

func runRead(ctx context.Context, args []string) error {
	fs := newFlagSet("read", "fsuipc read [flags] <offset>...")
	cfg, err := load(fs, args)
	if err != nil {
		return err
	}
	s, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	defs, err := commands.ResolveAll(s.catalog, fs.Args())
	if err != nil {
		return err
	}
	return commands.RunRead(ctx, s.client, defs, os.Stdout)
}

func runWrite(ctx context.Context, args []string) error {
	fs := newFlagSet("write", "fsuipc write [flags] <offset>=<value>...")
	cfg, err := load(fs, args)
	if err != nil {
		return err
	}
	catalog, err := backend.Catalog(cfg)
	if err != nil {
		return err
	}
	// Parse before connecting so typos never reach the simulator.
	assignments, err := commands.ParseAssignments(catalog, fs.Args())
	if err != nil {
		return err
	}

	s, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return commands.RunWrite(ctx, s.client, assignments, os.Stdout)
}

func runWatch(ctx context.Context, args []string) error {
	fs := newFlagSet("watch", "fsuipc watch [flags] <offset>...")
	interval := fs.Duration("interval", 250*time.Millisecond, "Poll interval")
	heartbeat := fs.Duration("heartbeat", 10*time.Second, "Report all values after this long without changes (0 disables)")
	cfg, err := load(fs, args)
	if err != nil {
		return err
	}
	s, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	defs, err := commands.ResolveAll(s.catalog, fs.Args())
	if err != nil {
		return err
	}
	hb := *heartbeat
	if hb == 0 {
		hb = -1
	}
	return commands.RunWatch(ctx, s.client, defs, commands.WatchOptions{
		Interval:  *interval,
		Heartbeat: hb,
		Logger:    s.logger,
	}, os.Stdout)
}

func runInfo(ctx context.Context, args []string) error {
	fs := newFlagSet("info", "fsuipc info [flags]")
	cfg, err := load(fs, args)
	if err != nil {
		return err
	}
	s, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return commands.RunInfo(s.client, s.backend, os.Stdout)
}

func runOffsets(args []string) error {
	fs := newFlagSet("offsets", "fsuipc offsets [flags] [filter]")
	cfg, err := load(fs, args)
	if err != nil {
		return err
	}
	catalog, err := backend.Catalog(cfg)
	if err != nil {
		return err
	}
	return commands.RunOffsets(catalog, fs.Arg(0), os.Stdout)
}

func runShell(ctx context.Context, args []string) error {
	fs := newFlagSet("shell", "fsuipc shell [flags]")
	cfg, err := load(fs, args)
	if err != nil {
		return err
	}
	s, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	shell, err := interactive.New(s.client, s.catalog, s.backend)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	shell.Run(ctx, cancel)
	return nil
}
