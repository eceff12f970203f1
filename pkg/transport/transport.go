package transport

import (
	"context"
	"errors"

	"github.com/voneiden/gofsuipc/pkg/wire"
)

// ErrConnectionClosed is returned when sending on or processing through a
// closed connection or transport.
var ErrConnectionClosed = errors.New("connection closed")

// Transport carries request areas to an FSUIPC server.
//
// Process hands a terminated request area to the server and returns once
// the server has filled in the read records. The area is modified in place.
// A Transport processes one area at a time; callers serialize.
type Transport interface {
	// Layout returns the record layout the server expects.
	Layout() wire.Layout

	// Process exchanges the request area with the server.
	Process(ctx context.Context, area []byte) error

	// Close releases the link. Safe to call more than once.
	Close() error
}

// Handler serves request areas in process. The emulator implements it.
type Handler interface {
	Handle(layout wire.Layout, area []byte) error
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(layout wire.Layout, area []byte) error

// Handle calls f.
func (f HandlerFunc) Handle(layout wire.Layout, area []byte) error {
	return f(layout, area)
}
