package capi

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voneiden/gofsuipc/pkg/fsuipc"
	"github.com/voneiden/gofsuipc/pkg/sim"
	"github.com/voneiden/gofsuipc/pkg/wire"
)

const userArea = 0x66C0

func emulatorOpener(emu *sim.Emulator) Opener {
	return func(ctx context.Context, _, _ string, s wire.Simulator) (*fsuipc.Client, error) {
		c := fsuipc.NewClient(fsuipc.Handler(emu, wire.Layout64))
		if err := c.Open(ctx, s); err != nil {
			return nil, err
		}
		return c, nil
	}
}

func openSession(t *testing.T) (*Registry, Handle, *sim.Emulator) {
	t.Helper()
	emu := sim.New(sim.DefaultConfig())
	r := NewRegistry(emulatorOpener(emu))
	h, status := r.Open("sim", "", uint32(wire.SimAny))
	require.Equal(t, wire.StatusOK, status)
	require.Greater(t, h, NoHandle)
	t.Cleanup(r.CloseAll)
	return r, h, emu
}

func TestHandleLifecycle(t *testing.T) {
	r, h, _ := openSession(t)
	assert.Equal(t, 1, r.Len())

	h2, status := r.Open("sim", "", 0)
	require.Equal(t, wire.StatusOK, status)
	assert.NotEqual(t, h, h2)
	assert.Equal(t, 2, r.Len())

	assert.Equal(t, wire.StatusOK, r.Close(h))
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, wire.StatusNotOpen, r.Close(h))

	assert.Equal(t, wire.StatusNotOpen, r.Process(h))
	assert.Equal(t, wire.StatusNotOpen, r.Read(h, userArea, make([]byte, 4)))
	assert.Equal(t, wire.StatusNotOpen, r.WriteNow(h, userArea, []byte{1}))
	assert.Equal(t, ErrUnknownHandle.Error(), r.LastError(h))
}

func TestQueuedReadFilledOnProcess(t *testing.T) {
	r, h, emu := openSession(t)
	emu.Poke(userArea, []byte{0xDE, 0xAD, 0xBE, 0xEF})

	dst := make([]byte, 4)
	require.Equal(t, wire.StatusOK, r.Read(h, userArea, dst))
	assert.Equal(t, []byte{0, 0, 0, 0}, dst)

	require.Equal(t, wire.StatusOK, r.Process(h))
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, dst)
}

func TestWriteThenReadInOneProcess(t *testing.T) {
	r, h, emu := openSession(t)

	src := make([]byte, 4)
	binary.LittleEndian.PutUint32(src, 12345)
	dst := make([]byte, 4)
	require.Equal(t, wire.StatusOK, r.Write(h, userArea, src))
	require.Equal(t, wire.StatusOK, r.Read(h, userArea, dst))

	// Written bytes are copied at queue time.
	src[0] = 0
	require.Equal(t, wire.StatusOK, r.Process(h))

	assert.Equal(t, uint32(12345), binary.LittleEndian.Uint32(dst))
	assert.Equal(t, uint32(12345), binary.LittleEndian.Uint32(emu.Peek(userArea, 4)))
}

func TestProcessEmptyQueue(t *testing.T) {
	r, h, _ := openSession(t)
	assert.Equal(t, wire.StatusNoData, r.Process(h))
	assert.NotEmpty(t, r.LastError(h))
}

func TestNowCalls(t *testing.T) {
	r, h, emu := openSession(t)

	require.Equal(t, wire.StatusOK, r.WriteNow(h, userArea, []byte{7, 8}))
	assert.Equal(t, []byte{7, 8}, emu.Peek(userArea, 2))

	dst := make([]byte, 2)
	require.Equal(t, wire.StatusOK, r.ReadNow(h, userArea, dst))
	assert.Equal(t, []byte{7, 8}, dst)
	assert.Empty(t, r.LastError(h))
}

func TestNowCallsLeaveQueueAlone(t *testing.T) {
	r, h, emu := openSession(t)
	emu.Poke(userArea, []byte{1})

	queued := make([]byte, 1)
	require.Equal(t, wire.StatusOK, r.Read(h, userArea, queued))
	require.Equal(t, wire.StatusOK, r.WriteNow(h, userArea, []byte{2}))
	assert.Equal(t, []byte{0}, queued)

	require.Equal(t, wire.StatusOK, r.Process(h))
	assert.Equal(t, []byte{2}, queued)
}

func TestInvalidRequests(t *testing.T) {
	r, h, _ := openSession(t)

	assert.Equal(t, wire.StatusData, r.Read(h, userArea, nil))
	assert.Equal(t, wire.StatusData, r.Write(h, userArea, nil))
	assert.Equal(t, wire.StatusSize, r.Read(h, userArea, make([]byte, wire.MaxAreaSize)))
	assert.Contains(t, r.LastError(h), "full")
}

func TestOpenFailure(t *testing.T) {
	r := NewRegistry(func(context.Context, string, string, wire.Simulator) (*fsuipc.Client, error) {
		return nil, wire.WrapError(wire.StatusNoFS, errors.New("connection refused"), "connect")
	})

	h, status := r.Open("bridge", "127.0.0.1:1", 0)
	assert.Equal(t, NoHandle, h)
	assert.Equal(t, wire.StatusNoFS, status)
	assert.Contains(t, r.LastError(NoHandle), "connection refused")
	assert.Zero(t, r.Len())
}

func TestOpenWrongSimulator(t *testing.T) {
	emu := sim.New(sim.DefaultConfig())
	r := NewRegistry(emulatorOpener(emu))

	h, status := r.Open("sim", "", uint32(wire.SimFSX))
	assert.Equal(t, NoHandle, h)
	assert.Equal(t, wire.StatusWrongFS, status)

	h, status = r.Open("sim", "", uint32(wire.SimMSFS))
	require.Equal(t, wire.StatusOK, status)
	assert.Empty(t, r.LastError(NoHandle))
	r.Close(h)
}

func TestConfigOpenerSimBackend(t *testing.T) {
	t.Setenv("FSUIPC_CONFIG", "")
	r := NewRegistry(nil)
	h, status := r.Open("sim", "", 0)
	require.Equal(t, wire.StatusOK, status, r.LastError(NoHandle))
	defer r.Close(h)

	dst := make([]byte, 4)
	require.Equal(t, wire.StatusOK, r.ReadNow(h, fsuipc.OffsetVersion, dst))
	assert.Equal(t, uint32(sim.DefaultVersion), binary.LittleEndian.Uint32(dst))
}

func TestConfigOpenerRejectsBadBackend(t *testing.T) {
	t.Setenv("FSUIPC_CONFIG", "")
	r := NewRegistry(nil)
	h, status := r.Open("serial", "", 0)
	assert.Equal(t, NoHandle, h)
	assert.Equal(t, wire.StatusNoFS, status)
	assert.Contains(t, r.LastError(NoHandle), "serial")
}
