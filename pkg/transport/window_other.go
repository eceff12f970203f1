//go:build !windows

package transport

import (
	"context"

	"github.com/voneiden/gofsuipc/pkg/wire"
)

// Window is the window message transport. It exists only on Windows.
type Window struct{}

// OpenWindow fails with StatusNoFS: there is no FSUIPC server to find.
func OpenWindow(opts WindowOptions) (*Window, error) {
	return nil, wire.NewError(wire.StatusNoFS, "window transport requires windows")
}

// Layout returns the native layout.
func (w *Window) Layout() wire.Layout {
	return wire.NativeLayout()
}

// Process always fails with StatusNotOpen.
func (w *Window) Process(ctx context.Context, area []byte) error {
	return wire.NewError(wire.StatusNotOpen, "window transport requires windows")
}

// Close does nothing.
func (w *Window) Close() error {
	return nil
}

var _ Transport = (*Window)(nil)
