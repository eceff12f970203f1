package interactive

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voneiden/gofsuipc/pkg/fsuipc"
	"github.com/voneiden/gofsuipc/pkg/offsets"
	"github.com/voneiden/gofsuipc/pkg/sim"
	"github.com/voneiden/gofsuipc/pkg/wire"
)

func newShell(t *testing.T) (*Shell, *sim.Emulator) {
	t.Helper()
	emu := sim.New(sim.DefaultConfig())
	c := fsuipc.NewClient(fsuipc.Handler(emu, wire.Layout64))
	require.NoError(t, c.Open(context.Background(), wire.SimAny))
	t.Cleanup(func() { _ = c.Close() })
	return &Shell{client: c, catalog: offsets.Default(), backend: "sim"}, emu
}

func exec(t *testing.T, s *Shell, line string) (string, bool) {
	t.Helper()
	var out bytes.Buffer
	more := s.Exec(context.Background(), line, &out)
	return out.String(), more
}

func TestExecWriteThenRead(t *testing.T) {
	s, emu := newShell(t)

	out, more := exec(t, s, "write parking_brake=32767")
	assert.True(t, more)
	assert.Contains(t, out, "wrote parking_brake")
	assert.Equal(t, []byte{0xFF, 0x7F}, emu.Peek(0x0BC8, 2))

	out, _ = exec(t, s, "R parking_brake")
	assert.Contains(t, out, "32767")
}

func TestExecErrorsKeepRunning(t *testing.T) {
	s, _ := newShell(t)

	out, more := exec(t, s, "read")
	assert.True(t, more)
	assert.Contains(t, out, "usage: read")

	out, _ = exec(t, s, "write aircraft_title=x")
	assert.Contains(t, out, "read only")

	out, _ = exec(t, s, "watch soon parking_brake")
	assert.Contains(t, out, "invalid duration")

	out, _ = exec(t, s, "bogus")
	assert.Contains(t, out, "Unknown command: bogus")
}

func TestExecWatchForDuration(t *testing.T) {
	s, _ := newShell(t)
	out, more := exec(t, s, "watch 50ms parking_brake")
	assert.True(t, more)
	assert.Contains(t, out, "PRIME")
}

func TestExecInfoAndOffsets(t *testing.T) {
	s, _ := newShell(t)

	out, _ := exec(t, s, "info")
	assert.Contains(t, out, "simulator: MSFS")

	out, _ = exec(t, s, "offsets brake")
	assert.Contains(t, out, "parking_brake")

	out, _ = exec(t, s, "help")
	assert.Contains(t, out, "FSUIPC Shell Commands")
}

func TestExecQuit(t *testing.T) {
	s, _ := newShell(t)
	_, more := exec(t, s, "  ")
	assert.True(t, more)
	for _, line := range []string{"quit", "exit", "Q"} {
		_, more = exec(t, s, line)
		assert.False(t, more, line)
	}
}
