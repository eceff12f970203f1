//go:build fsuipc_native && windows && cgo && (386 || amd64)

package native

/*
#include <stdlib.h>
#include <windows.h>
#include "FSUIPC_User.h"
*/
import "C"

import (
	"context"
	"sync"
	"unsafe"

	"github.com/voneiden/gofsuipc/pkg/transport"
	"github.com/voneiden/gofsuipc/pkg/wire"
)

// Available reports whether the vendor library is linked in.
const Available = true

// The vendor library keeps one link per process.
var (
	mu     sync.Mutex
	active *Transport
)

// Transport replays request areas through the vendor library.
type Transport struct {
	closed bool
}

// Open opens the process-wide vendor link. A second Open while a
// Transport is active fails with StatusOpen.
//
// The simulator check is left to the caller's handshake, so the library is
// always asked for any simulator.
func Open() (*Transport, error) {
	mu.Lock()
	defer mu.Unlock()

	if active != nil {
		return nil, wire.NewError(wire.StatusOpen, "vendor library link in use")
	}

	var result C.DWORD
	if C.FSUIPC_Open(C.DWORD(wire.SimAny), &result) == 0 {
		// The library leaves nothing to release after a failed open.
		return nil, wire.NewError(wire.Status(result), "FSUIPC_Open")
	}
	active = &Transport{}
	return active, nil
}

// Layout returns the layout of the running process. The library builds its
// own area, so the client's area only needs to be readable here.
func (t *Transport) Layout() wire.Layout {
	return wire.NativeLayout()
}

// Process queues every record of area with FSUIPC_Read and FSUIPC_Write,
// calls FSUIPC_Process, and copies the read payloads back into area.
func (t *Transport) Process(ctx context.Context, area []byte) error {
	if err := ctx.Err(); err != nil {
		return wire.WrapError(wire.StatusTimeout, err, "native")
	}

	mu.Lock()
	defer mu.Unlock()
	if t.closed {
		return wire.WrapError(wire.StatusNotOpen, transport.ErrConnectionClosed, "native")
	}

	if err := checkArea(t.Layout(), area); err != nil {
		return err
	}

	// The library keeps read destinations until FSUIPC_Process, so they
	// must live in C memory.
	scratch := C.malloc(C.size_t(len(area)))
	if scratch == nil {
		return wire.NewError(wire.StatusData, "allocate %d bytes", len(area))
	}
	defer C.free(scratch)
	dest := unsafe.Slice((*byte)(scratch), len(area))

	var result C.DWORD
	var reads []wire.Record
	err := wire.WalkArea(t.Layout(), area, func(rec wire.Record) error {
		size := C.DWORD(len(rec.Data))
		switch rec.ID {
		case wire.RecordRead:
			ptr := unsafe.Pointer(&dest[rec.Pos])
			if C.FSUIPC_Read(C.DWORD(rec.Offset), size, ptr, &result) == 0 {
				return wire.NewError(wire.Status(result), "FSUIPC_Read 0x%04X", rec.Offset)
			}
			reads = append(reads, rec)
		case wire.RecordWrite:
			// FSUIPC_Write copies the payload before returning.
			ptr := unsafe.Pointer(&rec.Data[0])
			if C.FSUIPC_Write(C.DWORD(rec.Offset), size, ptr, &result) == 0 {
				return wire.NewError(wire.Status(result), "FSUIPC_Write 0x%04X", rec.Offset)
			}
		}
		return nil
	})
	if err != nil {
		// Only FSUIPC_Process empties the library queue. Run it while the
		// queued read destinations still point at live memory.
		var drained C.DWORD
		C.FSUIPC_Process(&drained)
		return err
	}

	if C.FSUIPC_Process(&result) == 0 {
		return wire.NewError(wire.Status(result), "FSUIPC_Process")
	}
	for _, rec := range reads {
		copy(rec.Data, dest[rec.Pos:rec.Pos+len(rec.Data)])
	}
	return nil
}

// Close closes the vendor link. Safe to call more than once.
func (t *Transport) Close() error {
	mu.Lock()
	defer mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if active == t {
		C.FSUIPC_Close()
		active = nil
	}
	return nil
}

var _ transport.Transport = (*Transport)(nil)
