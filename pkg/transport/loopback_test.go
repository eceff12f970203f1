package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voneiden/gofsuipc/pkg/wire"
)

func TestLoopbackProcess(t *testing.T) {
	var gotLayout wire.Layout
	h := HandlerFunc(func(layout wire.Layout, area []byte) error {
		gotLayout = layout
		return wire.WalkArea(layout, area, func(rec wire.Record) error {
			if rec.ID == wire.RecordRead {
				for i := range rec.Data {
					rec.Data[i] = byte(rec.Offset) + byte(i)
				}
			}
			return nil
		})
	})

	lb := NewLoopbackWithLayout(h, wire.Layout32)
	assert.Equal(t, wire.Layout32, lb.Layout())

	w := wire.NewAreaWriter(lb.Layout())
	pos, err := w.AppendRead(0x10, 3, 0)
	require.NoError(t, err)
	area := w.Bytes()

	require.NoError(t, lb.Process(context.Background(), area))
	assert.Equal(t, wire.Layout32, gotLayout)
	assert.Equal(t, []byte{0x10, 0x11, 0x12}, area[pos:pos+3])
}

func TestLoopbackClosed(t *testing.T) {
	lb := NewLoopback(HandlerFunc(func(wire.Layout, []byte) error { return nil }))
	require.NoError(t, lb.Close())
	require.NoError(t, lb.Close())

	err := lb.Process(context.Background(), make([]byte, 4))
	assert.Equal(t, wire.StatusNotOpen, wire.StatusOf(err))
	assert.True(t, errors.Is(err, ErrConnectionClosed))
}

func TestLoopbackCancelledContext(t *testing.T) {
	lb := NewLoopback(HandlerFunc(func(wire.Layout, []byte) error {
		t.Fatal("handler must not run")
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := lb.Process(ctx, make([]byte, 4))
	assert.Equal(t, wire.StatusTimeout, wire.StatusOf(err))
}

func TestWindowOptionsDefaults(t *testing.T) {
	o := WindowOptions{}.withDefaults()
	assert.Equal(t, DefaultWindowClasses, o.Classes)
	assert.Equal(t, DefaultSendTimeout, o.SendTimeout)
	assert.Equal(t, DefaultSendRetries, o.Retries)
	assert.Equal(t, DefaultRetryDelay, o.RetryDelay)

	o = WindowOptions{Classes: []string{"FS98MAIN"}, Retries: 1}.withDefaults()
	assert.Equal(t, []string{"FS98MAIN"}, o.Classes)
	assert.Equal(t, 1, o.Retries)
}
