package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/voneiden/gofsuipc/pkg/offsets"
)

// RunOffsets lists catalogue entries whose name or description contains
// filter, ignoring case.
func RunOffsets(cat *offsets.Catalog, filter string, w io.Writer) error {
	filter = strings.ToLower(filter)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tOFFSET\tTYPE\tSIZE\tUNIT\tRW\tDESCRIPTION")
	for _, d := range cat.All() {
		if filter != "" &&
			!strings.Contains(strings.ToLower(d.Name), filter) &&
			!strings.Contains(strings.ToLower(d.Description), filter) {
			continue
		}
		rw := "r"
		if d.Writable {
			rw = "rw"
		}
		fmt.Fprintf(tw, "%s\t0x%04X\t%s\t%d\t%s\t%s\t%s\n", d.Name, d.Offset, d.Type, d.Size, d.Unit, rw, d.Description)
	}
	return tw.Flush()
}
