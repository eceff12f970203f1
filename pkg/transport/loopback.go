package transport

import (
	"context"
	"sync"

	"github.com/voneiden/gofsuipc/pkg/wire"
)

// Loopback is a Transport serving request areas from an in-process Handler.
type Loopback struct {
	handler Handler
	layout  wire.Layout

	mu     sync.Mutex
	closed bool
}

// NewLoopback creates a loopback transport using the native layout.
func NewLoopback(h Handler) *Loopback {
	return NewLoopbackWithLayout(h, wire.NativeLayout())
}

// NewLoopbackWithLayout creates a loopback transport with an explicit
// layout, for exercising 32-bit clients from a 64-bit process.
func NewLoopbackWithLayout(h Handler, layout wire.Layout) *Loopback {
	return &Loopback{handler: h, layout: layout}
}

// Layout returns the layout areas are encoded with.
func (l *Loopback) Layout() wire.Layout {
	return l.layout
}

// Process passes the area to the handler.
func (l *Loopback) Process(ctx context.Context, area []byte) error {
	if err := ctx.Err(); err != nil {
		return wire.WrapError(wire.StatusTimeout, err, "loopback")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return wire.WrapError(wire.StatusNotOpen, ErrConnectionClosed, "loopback")
	}
	return l.handler.Handle(l.layout, area)
}

// Close marks the transport closed.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

var _ Transport = (*Loopback)(nil)
