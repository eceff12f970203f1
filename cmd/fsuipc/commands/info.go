package commands

import (
	"fmt"
	"io"

	"github.com/voneiden/gofsuipc/pkg/fsuipc"
)

// RunInfo prints what the open link reported during the handshake.
func RunInfo(c *fsuipc.Client, backend string, w io.Writer) error {
	layout, err := c.Layout()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "backend:   %s\n", backend)
	fmt.Fprintf(w, "simulator: %s\n", c.Simulator())
	fmt.Fprintf(w, "fsuipc:    %s\n", c.Version())
	fmt.Fprintf(w, "layout:    %s\n", layout)
	fmt.Fprintf(w, "session:   %s\n", c.SessionID())
	return nil
}
