package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/voneiden/gofsuipc/pkg/fsuipc"
	"github.com/voneiden/gofsuipc/pkg/offsets"
)

// Assignment is one parsed "offset=value" argument.
type Assignment struct {
	Def offsets.Definition
	Raw []byte
}

// ParseAssignments parses "offset=value" arguments. Catalogue offsets must
// be writable; numeric offsets take hex bytes and need no size.
func ParseAssignments(cat *offsets.Catalog, args []string) ([]Assignment, error) {
	out := make([]Assignment, 0, len(args))
	for _, arg := range args {
		ref, text, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("%q: want offset=value", arg)
		}
		d, err := resolveForWrite(cat, ref, text)
		if err != nil {
			return nil, err
		}
		if !d.Writable {
			return nil, fmt.Errorf("%s: %w", d.Name, offsets.ErrReadOnly)
		}
		v, err := offsets.ParseValue(d, text)
		if err != nil {
			return nil, err
		}
		raw, err := offsets.Encode(d, v)
		if err != nil {
			return nil, err
		}
		out = append(out, Assignment{Def: d, Raw: raw})
	}
	return out, nil
}

// resolveForWrite sizes raw numeric offsets from the hex value.
func resolveForWrite(cat *offsets.Catalog, ref, text string) (offsets.Definition, error) {
	if _, ok := cat.Lookup(ref); ok || strings.Contains(ref, ":") {
		return Resolve(cat, ref)
	}
	hexDigits := strings.TrimPrefix(strings.ReplaceAll(text, " ", ""), "0x")
	return cat.Resolve(ref, max(1, len(hexDigits)/2))
}

// RunWrite writes every assignment in one request area.
func RunWrite(ctx context.Context, c *fsuipc.Client, assignments []Assignment, w io.Writer) error {
	if len(assignments) == 0 {
		return fmt.Errorf("nothing to write")
	}

	b := c.NewBatch()
	for _, a := range assignments {
		if err := b.Write(a.Def.Offset, a.Raw); err != nil {
			return fmt.Errorf("queue %s: %w", a.Def.Name, err)
		}
	}
	if err := b.Process(ctx); err != nil {
		return err
	}
	for _, a := range assignments {
		fmt.Fprintf(w, "wrote %s (%d bytes at 0x%04X)\n", a.Def.Name, len(a.Raw), a.Def.Offset)
	}
	return nil
}
