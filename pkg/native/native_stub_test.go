//go:build !(fsuipc_native && windows && cgo && (386 || amd64))

package native

import (
	"context"
	"errors"
	"testing"

	"github.com/voneiden/gofsuipc/pkg/fsuipc"
	"github.com/voneiden/gofsuipc/pkg/wire"
)

func TestStubOpen(t *testing.T) {
	if Available {
		t.Fatal("stub build reports the library as available")
	}
	tr, err := Open()
	if tr != nil {
		t.Error("expected nil transport")
	}
	if !errors.Is(err, fsuipc.ErrNoFS) {
		t.Errorf("Open = %v, want NOFS", err)
	}
}

func TestStubConnector(t *testing.T) {
	c := fsuipc.NewClient(Connector())
	err := c.Open(context.Background(), wire.SimAny)
	if !errors.Is(err, fsuipc.ErrNoFS) {
		t.Errorf("Open = %v, want NOFS", err)
	}
	if c.IsOpen() {
		t.Error("client should stay closed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Connector()(ctx); !errors.Is(err, fsuipc.ErrTimeout) {
		t.Errorf("cancelled connect = %v, want TIMEOUT", err)
	}
}

func TestStubTransport(t *testing.T) {
	var tr Transport
	if err := tr.Process(context.Background(), []byte{0, 0, 0, 0}); !errors.Is(err, fsuipc.ErrNotOpen) {
		t.Errorf("Process = %v, want NOTOPEN", err)
	}
	if err := tr.Close(); err != nil {
		t.Error(err)
	}
	if !tr.Layout().Valid() {
		t.Error("invalid layout")
	}
}
