//go:build !(fsuipc_native && windows && cgo && (386 || amd64))

package native

import (
	"context"

	"github.com/voneiden/gofsuipc/pkg/transport"
	"github.com/voneiden/gofsuipc/pkg/wire"
)

// Available reports whether the vendor library is linked in.
const Available = false

// Transport is unavailable in this build.
type Transport struct{}

// Open fails with StatusNoFS: the vendor library is not linked in.
func Open() (*Transport, error) {
	return nil, wire.NewError(wire.StatusNoFS, "built without fsuipc_native")
}

// Layout returns the layout of the running process.
func (t *Transport) Layout() wire.Layout {
	return wire.NativeLayout()
}

// Process always fails with StatusNotOpen.
func (t *Transport) Process(ctx context.Context, area []byte) error {
	return wire.WrapError(wire.StatusNotOpen, transport.ErrConnectionClosed, "native")
}

// Close does nothing.
func (t *Transport) Close() error {
	return nil
}

var _ transport.Transport = (*Transport)(nil)
