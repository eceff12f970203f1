// Package interactive runs the fsuipc shell: a readline prompt over one
// open client.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/voneiden/gofsuipc/cmd/fsuipc/commands"
	"github.com/voneiden/gofsuipc/pkg/fsuipc"
	"github.com/voneiden/gofsuipc/pkg/offsets"
)

// Shell handles interactive mode for fsuipc.
type Shell struct {
	client  *fsuipc.Client
	catalog *offsets.Catalog
	backend string
	rl      *readline.Instance
}

// New creates a shell on the terminal.
func New(client *fsuipc.Client, catalog *offsets.Catalog, backend string) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "fsuipc> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(catalog),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Shell{client: client, catalog: catalog, backend: backend, rl: rl}, nil
}

// Stdout returns a writer that coordinates with the readline input.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Stderr returns a writer that coordinates with the readline input.
func (s *Shell) Stderr() io.Writer {
	return s.rl.Stderr()
}

// Run starts the command loop. It returns on quit, EOF or when ctx is
// done.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		if !s.Exec(ctx, line, s.rl.Stdout()) {
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return
		}
	}
}

// Exec runs one command line, writing output to w. It returns false when
// the line asks to quit.
func (s *Shell) Exec(ctx context.Context, line string, w io.Writer) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		s.printHelpTo(w)

	case "read", "r":
		err = s.cmdRead(ctx, args, w)

	case "write", "w":
		err = s.cmdWrite(ctx, args, w)

	case "watch":
		err = s.cmdWatch(ctx, args, w)

	case "info", "status":
		err = commands.RunInfo(s.client, s.backend, w)

	case "offsets", "ls":
		err = commands.RunOffsets(s.catalog, strings.Join(args, " "), w)

	case "quit", "exit", "q":
		return false

	default:
		fmt.Fprintf(w, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	return true
}

func (s *Shell) cmdRead(ctx context.Context, args []string, w io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: read <offset>...")
	}
	defs, err := commands.ResolveAll(s.catalog, args)
	if err != nil {
		return err
	}
	return commands.RunRead(ctx, s.client, defs, w)
}

func (s *Shell) cmdWrite(ctx context.Context, args []string, w io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: write <offset>=<value>...")
	}
	assignments, err := commands.ParseAssignments(s.catalog, args)
	if err != nil {
		return err
	}
	return commands.RunWrite(ctx, s.client, assignments, w)
}

// cmdWatch watches for a fixed time since the prompt is not free while
// watching.
func (s *Shell) cmdWatch(ctx context.Context, args []string, w io.Writer) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: watch <duration> <offset>...")
	}
	d, err := time.ParseDuration(args[0])
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	defs, err := commands.ResolveAll(s.catalog, args[1:])
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return commands.RunWatch(ctx, s.client, defs, commands.WatchOptions{Heartbeat: -1}, w)
}

func (s *Shell) printHelp() {
	s.printHelpTo(s.rl.Stdout())
}

func (s *Shell) printHelpTo(w io.Writer) {
	fmt.Fprintln(w, `
FSUIPC Shell Commands:
  read <offset>...             - Read offsets (name or 0xNNNN:size)
  write <offset>=<value>...    - Write offsets in one request
  watch <duration> <offset>... - Print changes for a while
  info                         - Show simulator and FSUIPC version
  offsets [filter]             - List the catalogue
  help                         - Show this help
  quit                         - Exit`)
}

func completer(catalog *offsets.Catalog) readline.AutoCompleter {
	names := make([]readline.PrefixCompleterInterface, 0, catalog.Len())
	for _, d := range catalog.All() {
		names = append(names, readline.PcItem(d.Name))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("read", names...),
		readline.PcItem("write", names...),
		readline.PcItem("watch"),
		readline.PcItem("info"),
		readline.PcItem("offsets"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}
