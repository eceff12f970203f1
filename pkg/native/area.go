package native

import "github.com/voneiden/gofsuipc/pkg/wire"

// checkArea rejects areas the vendor library cannot replay: anything
// malformed and records with no payload. It runs before anything is
// queued so a bad record never leaves a partial queue behind.
func checkArea(layout wire.Layout, area []byte) error {
	return wire.WalkArea(layout, area, func(rec wire.Record) error {
		if len(rec.Data) == 0 {
			return wire.NewError(wire.StatusData, "empty record for 0x%04X at %d", rec.Offset, rec.Pos)
		}
		return nil
	})
}
