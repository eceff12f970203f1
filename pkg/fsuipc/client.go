package fsuipc

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voneiden/gofsuipc/pkg/log"
	"github.com/voneiden/gofsuipc/pkg/transport"
	"github.com/voneiden/gofsuipc/pkg/wire"
)

// Handshake offsets.
const (
	OffsetVersion   = 0x3304
	OffsetSimulator = 0x3308

	// Marker is the value FSUIPC keeps in the high word at OffsetSimulator.
	Marker = 0xFADE
)

// Link states reported in protocol logs.
const (
	stateClosed = "CLOSED"
	stateOpen   = "OPEN"
)

// Client is a link to an FSUIPC server.
//
// A Client is safe for concurrent use. Request areas are processed one at a
// time, in the order callers reach Process.
type Client struct {
	connect        Connector
	logger         *slog.Logger
	protoLog       log.Logger
	sessionID      string
	processTimeout time.Duration

	mu      sync.Mutex
	tr      transport.Transport
	version Version
	sim     wire.Simulator
}

// NewClient creates a closed client that opens links through connect.
func NewClient(connect Connector, opts ...Option) *Client {
	c := &Client{
		connect:   connect,
		protoLog:  log.NoopLogger{},
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open connects and verifies the server. With sim set to wire.SimAny any
// simulator is accepted; otherwise a different one fails with ErrWrongFS.
//
// Open fails with ErrOpen if the client is already open. On failure the
// transport is closed and the client stays closed.
func (c *Client) Open(ctx context.Context, sim wire.Simulator) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tr != nil {
		return wire.NewError(wire.StatusOpen, "open")
	}

	tr, err := c.connect(ctx)
	if err != nil {
		err = coded(err, wire.StatusNoFS, "connect")
		c.logError("open", err)
		return err
	}

	version, reported, err := c.handshake(ctx, tr)
	if err == nil && sim != wire.SimAny && sim != reported {
		err = wire.NewError(wire.StatusWrongFS, "want %s, running %s", sim, reported)
	}
	if err != nil {
		_ = tr.Close()
		c.logError("open", err)
		c.debugLog("Open: rejected", "error", err)
		return err
	}

	c.tr = tr
	c.version = version
	c.sim = reported
	c.logState(stateClosed, stateOpen, "handshake ok")
	c.debugLog("Open: link open",
		"version", version.String(),
		"simulator", reported.String(),
		"layout", tr.Layout().String())
	return nil
}

// handshake reads the version and simulator words in one area.
func (c *Client) handshake(ctx context.Context, tr transport.Transport) (Version, wire.Simulator, error) {
	w := wire.NewAreaWriter(tr.Layout())
	vPos, err := w.AppendRead(OffsetVersion, 4, 1)
	if err != nil {
		return 0, 0, err
	}
	sPos, err := w.AppendRead(OffsetSimulator, 4, 2)
	if err != nil {
		return 0, 0, err
	}
	area := w.Bytes()

	if err := c.exchange(ctx, tr, area); err != nil {
		return 0, 0, err
	}

	version := Version(binary.LittleEndian.Uint32(area[vPos:]))
	simWord := binary.LittleEndian.Uint32(area[sPos:])
	if !version.Supported() || simWord>>16 != Marker {
		return 0, 0, wire.NewError(wire.StatusVersion, "version 0x%08X marker 0x%04X", uint32(version), simWord>>16)
	}
	return version, wire.Simulator(simWord & 0xFFFF), nil
}

// Close releases the link. Closing a closed client is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked("closed by client")
}

func (c *Client) closeLocked(reason string) error {
	if c.tr == nil {
		return nil
	}
	err := c.tr.Close()
	c.tr = nil
	c.version = 0
	c.sim = wire.SimAny
	c.logState(stateOpen, stateClosed, reason)
	c.debugLog("Close: link closed", "reason", reason)
	return err
}

// IsOpen reports whether the link is open.
func (c *Client) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tr != nil
}

// Version returns the server version, or 0 when closed.
func (c *Client) Version() Version {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Simulator returns the simulator reported by the server.
func (c *Client) Simulator() wire.Simulator {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sim
}

// Layout returns the record layout of the open link.
func (c *Client) Layout() (wire.Layout, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tr == nil {
		return wire.Layout{}, wire.NewError(wire.StatusNotOpen, "layout")
	}
	return c.tr.Layout(), nil
}

// SessionID returns the id used in protocol logs.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Read reads size bytes at offset in a request area of its own.
func (c *Client) Read(ctx context.Context, offset uint32, size int) ([]byte, error) {
	b := c.NewBatch()
	r, err := b.Read(offset, size)
	if err != nil {
		return nil, err
	}
	if err := b.Process(ctx); err != nil {
		return nil, err
	}
	return r.Bytes(), nil
}

// Write writes data at offset in a request area of its own.
func (c *Client) Write(ctx context.Context, offset uint32, data []byte) error {
	b := c.NewBatch()
	if err := b.Write(offset, data); err != nil {
		return err
	}
	return b.Process(ctx)
}

// process encodes the batch, exchanges it and hands read payloads to
// their results.
func (c *Client) process(ctx context.Context, reqs []request) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tr == nil {
		return wire.NewError(wire.StatusNotOpen, "process")
	}
	if len(reqs) == 0 {
		return wire.NewError(wire.StatusNoData, "process")
	}

	w := wire.NewAreaWriter(c.tr.Layout())
	var reads []*Result
	for _, req := range reqs {
		if req.result != nil {
			reads = append(reads, req.result)
			if _, err := w.AppendRead(req.offset, req.result.size, uint64(len(reads))); err != nil {
				return err
			}
			continue
		}
		if err := w.AppendWrite(req.offset, req.data); err != nil {
			return err
		}
	}
	area := w.Bytes()

	if c.processTimeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.processTimeout)
			defer cancel()
		}
	}

	if err := c.exchange(ctx, c.tr, area); err != nil {
		if wire.StatusOf(err) == wire.StatusNotOpen {
			_ = c.closeLocked("transport closed")
		}
		return err
	}

	// The dest pointer of each read record carries its 1-based index.
	return wire.WalkArea(c.tr.Layout(), area, func(rec wire.Record) error {
		if rec.ID != wire.RecordRead {
			return nil
		}
		if rec.Token == 0 || rec.Token > uint64(len(reads)) {
			return wire.NewError(wire.StatusData, "unexpected read token %d", rec.Token)
		}
		r := reads[rec.Token-1]
		if len(rec.Data) != r.size {
			return wire.NewError(wire.StatusData, "read at 0x%04X returned %d bytes", rec.Offset, len(rec.Data))
		}
		r.data = append([]byte(nil), rec.Data...)
		return nil
	})
}

// exchange runs one area through tr and logs it.
func (c *Client) exchange(ctx context.Context, tr transport.Transport, area []byte) error {
	start := time.Now()
	summary := log.SummarizeArea(tr.Layout(), area)
	err := coded(tr.Process(ctx, area), wire.StatusData, "process")

	c.protoLog.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: c.sessionID,
		Direction: log.DirectionOut,
		Layer:     log.LayerClient,
		Category:  log.CategoryMessage,
		LocalRole: log.RoleClient,
		Simulator: c.simName(),
		Area: &log.AreaEvent{
			Size:     len(area),
			Records:  summary,
			Status:   wire.StatusOf(err),
			Duration: time.Since(start),
		},
	})
	if err != nil {
		c.logError("process", err)
	}
	return err
}

func (c *Client) simName() string {
	if c.tr == nil {
		return ""
	}
	return c.sim.String()
}

func (c *Client) logState(oldState, newState, reason string) {
	c.protoLog.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: c.sessionID,
		Layer:     log.LayerClient,
		Category:  log.CategoryState,
		LocalRole: log.RoleClient,
		Simulator: c.simName(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityLink,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (c *Client) logError(op string, err error) {
	c.protoLog.Log(log.NewErrorEvent(c.sessionID, log.LayerClient, op, err))
}

func (c *Client) debugLog(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
