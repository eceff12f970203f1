// Package sim emulates an FSUIPC server in process.
//
// An Emulator holds a 64 KiB offset space seeded with the handshake values a
// real FSUIPC reports (version at 0x3304, simulator id at 0x3308 and the
// 0xFADE marker at 0x330A) plus a small aircraft: title, clock, position,
// heading, speeds. It serves request areas through transport.Handler, so a
// Loopback transport over an Emulator stands in for a running simulator:
//
//	emu, tr := sim.NewTransport(sim.DefaultConfig())
//	client := fsuipc.NewClient(fsuipc.Static(tr))
//	go emu.Run(ctx, 100*time.Millisecond)
//
// Writes to the handshake offsets and the pause indicator are ignored.
// Writing a nonzero value to the pause control at 0x0262 sets the indicator
// at 0x0264 and freezes the clock and the aircraft.
package sim
