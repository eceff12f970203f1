package commands

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voneiden/gofsuipc/pkg/fsuipc"
	"github.com/voneiden/gofsuipc/pkg/offsets"
	"github.com/voneiden/gofsuipc/pkg/sim"
	"github.com/voneiden/gofsuipc/pkg/wire"
)

func openClient(t *testing.T) (*fsuipc.Client, *sim.Emulator) {
	t.Helper()
	emu := sim.New(sim.DefaultConfig())
	c := fsuipc.NewClient(fsuipc.Handler(emu, wire.Layout64))
	require.NoError(t, c.Open(context.Background(), wire.SimAny))
	t.Cleanup(func() { _ = c.Close() })
	return c, emu
}

func TestResolve(t *testing.T) {
	cat := offsets.Default()

	d, err := Resolve(cat, "parking_brake")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x0BC8), d.Offset)

	d, err = Resolve(cat, "0x66C0:8")
	require.NoError(t, err)
	assert.Equal(t, 8, d.Size)
	assert.Equal(t, offsets.TypeBytes, d.Type)

	// A bare catalogued offset resolves to its definition.
	d, err = Resolve(cat, "0x0BC8")
	require.NoError(t, err)
	assert.Equal(t, "parking_brake", d.Name)

	_, err = Resolve(cat, "0x66C0:x")
	assert.Error(t, err)
	_, err = Resolve(cat, "no_such_offset")
	assert.ErrorIs(t, err, offsets.ErrUnknownOffset)
}

func TestRunRead(t *testing.T) {
	c, emu := openClient(t)
	emu.Poke(0x0BC8, []byte{0xFF, 0x7F})

	defs, err := ResolveAll(offsets.Default(), []string{"parking_brake", "aircraft_title", "0x66C0:2"})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, RunRead(context.Background(), c, defs, &out))
	assert.Contains(t, out.String(), "parking_brake")
	assert.Contains(t, out.String(), "32767")
	assert.Contains(t, out.String(), `"Cessna Skyhawk G1000 Asobo"`)
	assert.Contains(t, out.String(), "0000")
}

func TestRunReadNothing(t *testing.T) {
	c, _ := openClient(t)
	assert.Error(t, RunRead(context.Background(), c, nil, &bytes.Buffer{}))
}

func TestRunWrite(t *testing.T) {
	c, emu := openClient(t)

	assignments, err := ParseAssignments(offsets.Default(), []string{
		"parking_brake=32767",
		"transponder=7700",
		"0x66C0=cafe",
	})
	require.NoError(t, err)
	require.Len(t, assignments, 3)
	assert.Equal(t, 2, assignments[2].Def.Size)

	var out bytes.Buffer
	require.NoError(t, RunWrite(context.Background(), c, assignments, &out))
	assert.Equal(t, []byte{0xFF, 0x7F}, emu.Peek(0x0BC8, 2))
	assert.Equal(t, []byte{0x00, 0x77}, emu.Peek(0x0354, 2))
	assert.Equal(t, []byte{0xCA, 0xFE}, emu.Peek(0x66C0, 2))
	assert.Contains(t, out.String(), "wrote parking_brake")
}

func TestParseAssignmentsErrors(t *testing.T) {
	cat := offsets.Default()

	_, err := ParseAssignments(cat, []string{"parking_brake"})
	assert.ErrorContains(t, err, "offset=value")

	_, err = ParseAssignments(cat, []string{"aircraft_title=Foo"})
	assert.ErrorIs(t, err, offsets.ErrReadOnly)

	_, err = ParseAssignments(cat, []string{"parking_brake=70000"})
	assert.ErrorIs(t, err, offsets.ErrRange)

	_, err = ParseAssignments(cat, []string{"parking_brake=on"})
	assert.ErrorIs(t, err, offsets.ErrType)
}

func TestRunWatch(t *testing.T) {
	c, emu := openClient(t)
	defs, err := ResolveAll(offsets.Default(), []string{"parking_brake"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- RunWatch(ctx, c, defs, WatchOptions{Interval: 5 * time.Millisecond}, &out)
	}()

	require.Eventually(t, func() bool { return bytes.Contains(out.Bytes(), []byte("PRIME")) }, time.Second, time.Millisecond)
	emu.Poke(0x0BC8, []byte{0xFF, 0x7F})
	require.Eventually(t, func() bool { return bytes.Contains(out.Bytes(), []byte("CHANGE")) }, time.Second, time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
	assert.Contains(t, out.String(), "32767")
}

func TestRunWatchNoDefinitions(t *testing.T) {
	c, _ := openClient(t)
	err := RunWatch(context.Background(), c, nil, WatchOptions{}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunOffsets(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RunOffsets(offsets.Default(), "", &out))
	assert.Contains(t, out.String(), "NAME")
	assert.Contains(t, out.String(), "parking_brake")
	assert.Contains(t, out.String(), "aircraft_title")

	out.Reset()
	require.NoError(t, RunOffsets(offsets.Default(), "PARKING", &out))
	assert.Contains(t, out.String(), "parking_brake")
	assert.NotContains(t, out.String(), "aircraft_title")
}

func TestRunInfo(t *testing.T) {
	c, _ := openClient(t)
	var out bytes.Buffer
	require.NoError(t, RunInfo(c, "sim", &out))
	assert.Contains(t, out.String(), "backend:   sim")
	assert.Contains(t, out.String(), "simulator: MSFS")
	assert.Contains(t, out.String(), "layout:    64-bit")

	require.NoError(t, c.Close())
	assert.ErrorIs(t, RunInfo(c, "sim", &out), fsuipc.ErrNotOpen)
}
