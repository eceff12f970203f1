package native

import (
	"context"

	"github.com/voneiden/gofsuipc/pkg/fsuipc"
	"github.com/voneiden/gofsuipc/pkg/transport"
	"github.com/voneiden/gofsuipc/pkg/wire"
)

// Connector returns an fsuipc.Connector opening the vendor library link.
func Connector() fsuipc.Connector {
	return func(ctx context.Context) (transport.Transport, error) {
		if err := ctx.Err(); err != nil {
			return nil, wire.WrapError(wire.StatusTimeout, err, "native")
		}
		t, err := Open()
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}
