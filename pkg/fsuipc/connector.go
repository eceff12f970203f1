package fsuipc

import (
	"context"

	"github.com/voneiden/gofsuipc/pkg/transport"
	"github.com/voneiden/gofsuipc/pkg/wire"
)

// Connector opens a transport to an FSUIPC server. Open calls it once per
// link; the Client closes the returned transport.
type Connector func(ctx context.Context) (transport.Transport, error)

// Static returns a Connector handing out t. Once the Client closes t a
// second Open fails, unless t tolerates being reused (Loopback does not).
func Static(t transport.Transport) Connector {
	return func(ctx context.Context) (transport.Transport, error) {
		return t, nil
	}
}

// Handler returns a Connector serving every link from h in process,
// with a fresh Loopback per Open.
func Handler(h transport.Handler, layout wire.Layout) Connector {
	return func(ctx context.Context) (transport.Transport, error) {
		return transport.NewLoopbackWithLayout(h, layout), nil
	}
}

// Window returns a Connector for the local FSUIPC or WideClient window.
func Window(opts transport.WindowOptions) Connector {
	return func(ctx context.Context) (transport.Transport, error) {
		if err := ctx.Err(); err != nil {
			return nil, wire.WrapError(wire.StatusTimeout, err, "open window")
		}
		w, err := transport.OpenWindow(opts)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
}
