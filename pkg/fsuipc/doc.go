// Package fsuipc reads and writes flight simulator state through FSUIPC.
//
// FSUIPC exposes the simulator as a 64 KiB space of offsets. A Client opens
// a link through a Connector, verifies the server version and simulator,
// and exchanges request areas of queued reads and writes:
//
//	client := fsuipc.NewClient(fsuipc.Window(transport.WindowOptions{}))
//	if err := client.Open(ctx, wire.SimAny); err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	raw, err := client.Read(ctx, 0x0238, 3) // hour, minute, second
//
// Several reads and writes travel in one exchange through a Batch:
//
//	b := client.NewBatch()
//	hdg, _ := b.Read(0x0580, 4)
//	alt, _ := b.Read(0x0570, 8)
//	if err := b.Process(ctx); err != nil {
//	    return err
//	}
//	heading := float64(hdg.Uint32()) * 360 / (65536 * 65536)
//
// # Errors
//
// Every error carries an FSUIPC result code. Compare with the sentinels
// (errors.Is(err, fsuipc.ErrNotOpen)) or extract it with StatusOf.
//
// # Connectors
//
// Window talks to FSUIPC or WideClient on the local machine (Windows only).
// Handler serves links in process, typically from the sim package emulator.
// The native and bridge packages provide connectors for the vendor client
// library and for remote FSUIPC servers.
package fsuipc
