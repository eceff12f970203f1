package fsuipc

import (
	"context"
	"encoding/binary"
	"math"
	"strings"
	"sync"

	"github.com/voneiden/gofsuipc/pkg/wire"
)

// Batch queues reads and writes for a single request area, the way the
// FSUIPC SDK queues FSUIPC_Read and FSUIPC_Write until FSUIPC_Process.
//
// Records are applied by the server in queue order, so a read queued after
// a write to the same offset sees the written value.
type Batch struct {
	c *Client

	mu   sync.Mutex
	reqs []request
	used int
}

type request struct {
	offset uint32
	data   []byte  // write payload
	result *Result // set for reads
}

// Result receives the payload of a queued read once its batch is processed.
type Result struct {
	offset uint32
	size   int
	data   []byte
}

// NewBatch returns an empty batch bound to the client.
func (c *Client) NewBatch() *Batch {
	return &Batch{c: c}
}

// Read queues a read of size bytes at offset.
func (b *Batch) Read(offset uint32, size int) (*Result, error) {
	if size <= 0 {
		return nil, wire.NewError(wire.StatusData, "read of %d bytes at 0x%04X", size, offset)
	}
	layout, err := b.c.Layout()
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.reserve(layout.ReadHeaderSize() + size); err != nil {
		return nil, err
	}
	r := &Result{offset: offset, size: size}
	b.reqs = append(b.reqs, request{offset: offset, result: r})
	return r, nil
}

// Write queues a write of data at offset. The data is copied.
func (b *Batch) Write(offset uint32, data []byte) error {
	if len(data) == 0 {
		return wire.NewError(wire.StatusData, "empty write at 0x%04X", offset)
	}
	layout, err := b.c.Layout()
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.reserve(layout.WriteHeaderSize() + len(data)); err != nil {
		return err
	}
	b.reqs = append(b.reqs, request{offset: offset, data: append([]byte(nil), data...)})
	return nil
}

// reserve accounts for n more bytes, keeping room for the terminator.
func (b *Batch) reserve(n int) error {
	if b.used+n+4 > wire.MaxAreaSize {
		return wire.NewError(wire.StatusSize, "request area full")
	}
	b.used += n
	return nil
}

// Len returns the number of queued records.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.reqs)
}

// Process sends the queued records and fills the results. The queue is
// emptied whatever the outcome. An empty batch fails with ErrNoData.
func (b *Batch) Process(ctx context.Context) error {
	b.mu.Lock()
	reqs := b.reqs
	b.reqs = nil
	b.used = 0
	b.mu.Unlock()

	return b.c.process(ctx, reqs)
}

// Offset returns the offset the read addresses.
func (r *Result) Offset() uint32 {
	return r.offset
}

// Ready reports whether the batch holding the read was processed.
func (r *Result) Ready() bool {
	return r.data != nil
}

// Bytes returns the payload, or nil before processing.
func (r *Result) Bytes() []byte {
	return r.data
}

// Uint8 returns the first payload byte.
func (r *Result) Uint8() uint8 {
	if len(r.data) < 1 {
		return 0
	}
	return r.data[0]
}

// Uint16 decodes a little-endian uint16 payload.
func (r *Result) Uint16() uint16 {
	if len(r.data) < 2 {
		return 0
	}
	return binary.LittleEndian.Uint16(r.data)
}

// Uint32 decodes a little-endian uint32 payload.
func (r *Result) Uint32() uint32 {
	if len(r.data) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(r.data)
}

// Int32 decodes a little-endian int32 payload.
func (r *Result) Int32() int32 {
	return int32(r.Uint32())
}

// Uint64 decodes a little-endian uint64 payload.
func (r *Result) Uint64() uint64 {
	if len(r.data) < 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(r.data)
}

// Int64 decodes a little-endian int64 payload.
func (r *Result) Int64() int64 {
	return int64(r.Uint64())
}

// Float64 decodes an IEEE 754 double payload.
func (r *Result) Float64() float64 {
	return math.Float64frombits(r.Uint64())
}

// String returns the payload up to the first NUL.
func (r *Result) String() string {
	s := string(r.data)
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return s
}
