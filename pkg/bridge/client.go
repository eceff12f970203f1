package bridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/voneiden/gofsuipc/pkg/fsuipc"
	"github.com/voneiden/gofsuipc/pkg/log"
	"github.com/voneiden/gofsuipc/pkg/transport"
	"github.com/voneiden/gofsuipc/pkg/wire"
)

// closeTimeout bounds the Close handshake.
const closeTimeout = time.Second

// ClientConfig configures a bridge client.
type ClientConfig struct {
	// Name is reported to the server. Default is the executable name.
	Name string

	// ConnectTimeout bounds dialing (default 10s).
	ConnectTimeout time.Duration

	// ProtocolLogger receives frame events (optional).
	ProtocolLogger log.Logger

	// SessionID tags log events of this connection.
	SessionID string
}

// Client is a transport.Transport over a bridge connection.
type Client struct {
	conn   *transport.ClientConn
	layout wire.Layout
	server string

	mu     sync.Mutex
	nextID uint32
	closed bool
}

// Dial connects to the bridge at address and opens a session. The server
// reports the layout its upstream expects.
func Dial(ctx context.Context, address string, config ClientConfig) (*Client, error) {
	if config.Name == "" {
		config.Name = clientName()
	}

	conn, err := transport.Dial(ctx, address, transport.ClientConfig{
		ConnectTimeout: config.ConnectTimeout,
		Logger:         config.ProtocolLogger,
		SessionID:      config.SessionID,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, wire.WrapError(wire.StatusTimeout, err, "bridge dial")
		}
		return nil, wire.WrapError(wire.StatusNoFS, err, "bridge dial")
	}

	c := &Client{conn: conn}
	resp, err := c.roundTrip(ctx, &wire.Request{Operation: wire.OpOpen, Client: config.Name})
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	c.layout, err = wire.LayoutForPointerSize(int(resp.PointerSize))
	if err != nil {
		_ = conn.Close()
		return nil, wire.WrapError(wire.StatusData, err, "bridge open")
	}
	c.server = resp.Server
	return c, nil
}

// Connector returns a connector dialing address on every open.
func Connector(address string, config ClientConfig) fsuipc.Connector {
	return func(ctx context.Context) (transport.Transport, error) {
		return Dial(ctx, address, config)
	}
}

// Layout returns the layout of the server's upstream.
func (c *Client) Layout() wire.Layout {
	return c.layout
}

// Server returns the name the server reported.
func (c *Client) Server() string {
	return c.server
}

// Process sends area to the server and copies the processed area back.
func (c *Client) Process(ctx context.Context, area []byte) error {
	resp, err := c.roundTrip(ctx, &wire.Request{Operation: wire.OpProcess, Area: area})
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	if len(resp.Area) != len(area) {
		return wire.NewError(wire.StatusData, "bridge returned %d bytes for a %d byte area", len(resp.Area), len(area))
	}
	copy(area, resp.Area)
	return nil
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.roundTrip(ctx, &wire.Request{Operation: wire.OpPing})
	if err != nil {
		return err
	}
	return resp.Err()
}

// Close ends the session and closes the connection. Safe to call more
// than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	_, _ = c.roundTrip(ctx, &wire.Request{Operation: wire.OpClose})
	cancel()

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close()
}

// roundTrip sends req and waits for the response with the same message
// id. Responses to abandoned requests are skipped.
func (c *Client) roundTrip(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, wire.WrapError(wire.StatusNotOpen, transport.ErrConnectionClosed, "bridge")
	}

	c.nextID++
	if c.nextID == 0 {
		c.nextID = 1
	}
	req.MessageID = c.nextID

	data, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, wire.WrapError(wire.StatusData, err, "bridge encode")
	}
	if err := c.conn.Send(data); err != nil {
		return nil, c.linkError(err, "bridge send")
	}

	for {
		data, err := c.conn.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, wire.WrapError(wire.StatusTimeout, ctx.Err(), "bridge")
			}
			return nil, c.linkError(err, "bridge receive")
		}
		resp, err := wire.DecodeResponse(data)
		if err != nil {
			return nil, wire.WrapError(wire.StatusData, err, "bridge decode")
		}
		if resp.MessageID == req.MessageID {
			return resp, nil
		}
	}
}

// linkError maps a broken connection to NotOpen, so the binding layer
// drops the link. Caller holds c.mu.
func (c *Client) linkError(err error, msg string) error {
	c.closed = true
	_ = c.conn.Close()
	if errors.Is(err, transport.ErrConnectionClosed) {
		return wire.WrapError(wire.StatusNotOpen, err, msg)
	}
	return wire.WrapError(wire.StatusNotOpen, fmt.Errorf("connection lost: %w", err), msg)
}

func clientName() string {
	if exe, err := os.Executable(); err == nil {
		return filepath.Base(exe)
	}
	return "gofsuipc"
}

var _ transport.Transport = (*Client)(nil)
