package fsuipc

import (
	"log/slog"
	"time"

	"github.com/voneiden/gofsuipc/pkg/log"
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithProtocolLogger records link state changes and every processed
// request area.
func WithProtocolLogger(l log.Logger) Option {
	return func(c *Client) { c.protoLog = log.OrNoop(l) }
}

// WithSessionID overrides the generated session id used in protocol logs.
func WithSessionID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.sessionID = id
		}
	}
}

// WithProcessTimeout bounds each Process whose context has no deadline.
func WithProcessTimeout(d time.Duration) Option {
	return func(c *Client) { c.processTimeout = d }
}
