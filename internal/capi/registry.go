// Package capi keeps the client sessions behind the C ABI of libfsuipc.
//
// C callers hold small integer handles instead of Go pointers. Reads queued
// with Read name caller memory that is filled when the session is processed,
// the way FSUIPC_Read fills its destination on FSUIPC_Process.
package capi

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/voneiden/gofsuipc/internal/backend"
	"github.com/voneiden/gofsuipc/internal/config"
	"github.com/voneiden/gofsuipc/pkg/fsuipc"
	"github.com/voneiden/gofsuipc/pkg/wire"
)

// Handle identifies an open session. Valid handles are positive.
type Handle int32

// NoHandle holds the error of the last failed Open.
const NoHandle Handle = 0

// DefaultTimeout bounds each process call.
const DefaultTimeout = 5 * time.Second

// ErrUnknownHandle is reported for handles that were never opened or are
// already closed.
var ErrUnknownHandle = wire.NewError(wire.StatusNotOpen, "unknown handle")

// Opener connects a client. backend and target come straight from the C
// caller; target is the bridge address for the bridge backend. ctx lives
// as long as the session.
type Opener func(ctx context.Context, backendName, target string, sim wire.Simulator) (*fsuipc.Client, error)

// Registry maps handles to sessions.
type Registry struct {
	// Opener defaults to ConfigOpener.
	Opener Opener

	// Timeout bounds process calls. Defaults to DefaultTimeout.
	Timeout time.Duration

	Logger *slog.Logger

	mu       sync.Mutex
	next     Handle
	sessions map[Handle]*session
	openErr  error
}

type session struct {
	mu      sync.Mutex
	client  *fsuipc.Client
	batch   *fsuipc.Batch
	pending []pendingRead
	lastErr error
	cancel  context.CancelFunc
}

type pendingRead struct {
	result *fsuipc.Result
	dst    []byte
}

// NewRegistry returns an empty registry using opener, or ConfigOpener when
// opener is nil.
func NewRegistry(opener Opener) *Registry {
	if opener == nil {
		opener = ConfigOpener
	}
	return &Registry{
		Opener:   opener,
		sessions: make(map[Handle]*session),
	}
}

// ConfigOpener loads the tool configuration (FSUIPC_CONFIG and FSUIPC_*
// environment), then overrides the backend and bridge address when given.
func ConfigOpener(ctx context.Context, backendName, target string, sim wire.Simulator) (*fsuipc.Client, error) {
	cfg, err := config.Load(os.Getenv("FSUIPC_CONFIG"))
	if err != nil {
		return nil, wire.WrapError(wire.StatusNoFS, err, "config")
	}
	if backendName != "" {
		cfg.Backend = backendName
	}
	if target != "" {
		cfg.Bridge.Address = target
	}
	if err := cfg.Validate(); err != nil {
		return nil, wire.WrapError(wire.StatusNoFS, err, "config")
	}

	c, _, err := backend.Client(ctx, cfg, backend.Options{})
	if err != nil {
		return nil, wire.WrapError(wire.StatusNoFS, err, "backend")
	}
	openCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := c.Open(openCtx, sim); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Registry) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultTimeout
}

// Open connects a new session. On failure it returns NoHandle and the
// status; the error is kept for LastError(NoHandle).
func (r *Registry) Open(backendName, target string, sim uint32) (Handle, wire.Status) {
	ctx, cancel := context.WithCancel(context.Background())
	c, err := r.Opener(ctx, backendName, target, wire.Simulator(sim))

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		cancel()
		r.openErr = err
		r.debugLog("Open: failed", "backend", backendName, "error", err)
		return NoHandle, wire.StatusOf(err)
	}

	r.next++
	h := r.next
	r.sessions[h] = &session{client: c, batch: c.NewBatch(), cancel: cancel}
	r.openErr = nil
	r.debugLog("Open: session open", "handle", h, "backend", backendName, "simulator", c.Simulator().String())
	return h, wire.StatusOK
}

func (r *Registry) lookup(h Handle) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[h]
	return s, ok
}

// Read queues a read of len(dst) bytes at offset. dst is filled by the
// next successful Process.
func (r *Registry) Read(h Handle, offset uint32, dst []byte) wire.Status {
	s, ok := r.lookup(h)
	if !ok {
		return wire.StatusNotOpen
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.batch.Read(offset, len(dst))
	if err != nil {
		return s.fail(err)
	}
	s.pending = append(s.pending, pendingRead{result: res, dst: dst})
	return wire.StatusOK
}

// Write queues a write of src at offset. src is copied.
func (r *Registry) Write(h Handle, offset uint32, src []byte) wire.Status {
	s, ok := r.lookup(h)
	if !ok {
		return wire.StatusNotOpen
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.batch.Write(offset, src); err != nil {
		return s.fail(err)
	}
	return wire.StatusOK
}

// Process sends the queued records and copies read results to their
// destinations. The queue is emptied whatever the outcome.
func (r *Registry) Process(h Handle) wire.Status {
	s, ok := r.lookup(h)
	if !ok {
		return wire.StatusNotOpen
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout())
	defer cancel()

	pending := s.pending
	s.pending = nil
	if err := s.batch.Process(ctx); err != nil {
		return s.fail(err)
	}
	for _, p := range pending {
		copy(p.dst, p.result.Bytes())
	}
	return wire.StatusOK
}

// ReadNow reads len(dst) bytes at offset in a request area of its own.
// Queued records are left alone.
func (r *Registry) ReadNow(h Handle, offset uint32, dst []byte) wire.Status {
	s, ok := r.lookup(h)
	if !ok {
		return wire.StatusNotOpen
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout())
	defer cancel()

	data, err := s.client.Read(ctx, offset, len(dst))
	if err != nil {
		return s.fail(err)
	}
	copy(dst, data)
	return wire.StatusOK
}

// WriteNow writes src at offset in a request area of its own.
func (r *Registry) WriteNow(h Handle, offset uint32, src []byte) wire.Status {
	s, ok := r.lookup(h)
	if !ok {
		return wire.StatusNotOpen
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout())
	defer cancel()

	if err := s.client.Write(ctx, offset, src); err != nil {
		return s.fail(err)
	}
	return wire.StatusOK
}

// Close releases the session and its handle. Queued records are dropped.
func (r *Registry) Close(h Handle) wire.Status {
	r.mu.Lock()
	s, ok := r.sessions[h]
	delete(r.sessions, h)
	r.mu.Unlock()
	if !ok {
		return wire.StatusNotOpen
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.client.Close()
	s.cancel()
	s.pending = nil
	r.debugLog("Close: session closed", "handle", h)
	if err != nil {
		return wire.StatusOf(err)
	}
	return wire.StatusOK
}

// CloseAll closes every open session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	handles := make([]Handle, 0, len(r.sessions))
	for h := range r.sessions {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	for _, h := range handles {
		r.Close(h)
	}
}

// LastError returns the message of the last failure on h, or of the last
// failed Open for NoHandle. It is empty when nothing failed.
func (r *Registry) LastError(h Handle) string {
	if h == NoHandle {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.openErr == nil {
			return ""
		}
		return r.openErr.Error()
	}

	s, ok := r.lookup(h)
	if !ok {
		return ErrUnknownHandle.Error()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr == nil {
		return ""
	}
	return s.lastErr.Error()
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// fail records err and maps it to a status.
func (s *session) fail(err error) wire.Status {
	s.lastErr = err
	return wire.StatusOf(err)
}

func (r *Registry) debugLog(msg string, args ...any) {
	if r.Logger != nil {
		r.Logger.Debug(msg, args...)
	}
}
