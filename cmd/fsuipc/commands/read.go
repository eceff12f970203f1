// Package commands implements the fsuipc subcommands against an open
// client so the binary and the interactive shell share them.
package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/voneiden/gofsuipc/pkg/fsuipc"
	"github.com/voneiden/gofsuipc/pkg/offsets"
)

// ResolveAll turns command line offset arguments into definitions. An
// argument is a catalogue name, or a numeric offset with an optional
// ":size" suffix ("0x66C0:8").
func ResolveAll(cat *offsets.Catalog, args []string) ([]offsets.Definition, error) {
	defs := make([]offsets.Definition, 0, len(args))
	for _, arg := range args {
		d, err := Resolve(cat, arg)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// Resolve resolves one offset argument.
func Resolve(cat *offsets.Catalog, arg string) (offsets.Definition, error) {
	ref, sizeText, hasSize := strings.Cut(arg, ":")
	size := 0
	if hasSize {
		n, err := strconv.Atoi(sizeText)
		if err != nil || n <= 0 {
			return offsets.Definition{}, fmt.Errorf("invalid size in %q", arg)
		}
		size = n
	}
	return cat.Resolve(ref, size)
}

// RunRead reads defs in one request area and prints one line per value.
func RunRead(ctx context.Context, c *fsuipc.Client, defs []offsets.Definition, w io.Writer) error {
	if len(defs) == 0 {
		return fmt.Errorf("nothing to read")
	}

	b := c.NewBatch()
	results := make([]*fsuipc.Result, len(defs))
	for i, d := range defs {
		r, err := b.Read(d.Offset, d.Size)
		if err != nil {
			return fmt.Errorf("queue %s: %w", d.Name, err)
		}
		results[i] = r
	}
	if err := b.Process(ctx); err != nil {
		return err
	}

	for i, d := range defs {
		v, err := offsets.Decode(d, results[i].Bytes())
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-24s 0x%04X  %s\n", d.Name, d.Offset, offsets.Format(d, v))
	}
	return nil
}
