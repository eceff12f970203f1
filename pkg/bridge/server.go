package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/voneiden/gofsuipc/pkg/connection"
	"github.com/voneiden/gofsuipc/pkg/fsuipc"
	"github.com/voneiden/gofsuipc/pkg/log"
	"github.com/voneiden/gofsuipc/pkg/transport"
	"github.com/voneiden/gofsuipc/pkg/wire"
)

// DefaultPort is the bridge TCP port.
const DefaultPort = 8998

// DefaultProcessTimeout bounds one upstream exchange.
const DefaultProcessTimeout = 5 * time.Second

// Bridge errors.
var (
	ErrNoUpstream    = errors.New("upstream connector is required")
	ErrUnavailable   = errors.New("upstream unavailable")
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrSessionClosed = errors.New("session not open")
)

// ServerConfig configures a bridge server.
type ServerConfig struct {
	// Address to listen on. Default ":8998".
	Address string

	// Name is reported to clients and used as the mDNS instance name.
	// Default is the host name.
	Name string

	// Upstream opens the link to the FSUIPC server. Required.
	Upstream fsuipc.Connector

	// Backoff paces upstream reopen attempts (optional).
	Backoff *connection.Backoff

	// ProcessTimeout bounds one upstream exchange. Default 5s.
	ProcessTimeout time.Duration

	// RateLimit caps process requests per second per connection. Zero
	// means unlimited.
	RateLimit rate.Limit

	// Burst is the rate limit bucket size. Default 1 when RateLimit is set.
	Burst int

	// Advertise registers the server over mDNS once it listens.
	Advertise bool

	// Interface restricts mDNS to one network interface (optional).
	Interface string

	// Metrics is optional.
	Metrics *Metrics

	// ProtocolLogger receives frame, message and upstream events (optional).
	ProtocolLogger log.Logger

	// Logger is optional. If nil, no operational logging is emitted.
	Logger *slog.Logger
}

// Server forwards request areas from network clients to one upstream.
type Server struct {
	config  ServerConfig
	srv     *transport.Server
	manager *connection.Manager
	adv     *Advertiser

	// upMu guards upstream and serializes upstream exchanges.
	upMu     sync.Mutex
	upstream transport.Transport

	// connectMu serializes explicit upstream opens.
	connectMu sync.Mutex

	sessMu   sync.Mutex
	sessions map[*transport.ServerConn]*session
}

// session is the per-connection state.
type session struct {
	id      string
	remote  string
	limiter *rate.Limiter

	mu     sync.Mutex
	open   bool
	client string
}

// NewServer creates a bridge server.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Upstream == nil {
		return nil, ErrNoUpstream
	}
	if config.Address == "" {
		config.Address = ":" + strconv.Itoa(DefaultPort)
	}
	if config.Name == "" {
		config.Name, _ = os.Hostname()
		if config.Name == "" {
			config.Name = "fsuipc-bridge"
		}
	}
	if config.ProcessTimeout <= 0 {
		config.ProcessTimeout = DefaultProcessTimeout
	}
	if config.RateLimit > 0 && config.Burst <= 0 {
		config.Burst = 1
	}

	s := &Server{
		config:   config,
		sessions: make(map[*transport.ServerConn]*session),
	}

	var opts []connection.ManagerOption
	if config.Backoff != nil {
		opts = append(opts, connection.WithBackoff(config.Backoff))
	}
	s.manager = connection.NewManager(s.connectUpstream, opts...)
	s.manager.OnStateChange(s.upstreamStateChanged)
	s.manager.OnReconnecting(func(attempt int, delay time.Duration) {
		s.debugLog("upstream reopen scheduled", "attempt", attempt, "delay", delay)
	})
	config.Metrics.setUpstreamState(connection.StateDisconnected)

	srv, err := transport.NewServer(transport.ServerConfig{
		Address:      config.Address,
		Logger:       config.ProtocolLogger,
		OnConnect:    s.handleConnect,
		OnDisconnect: s.handleDisconnect,
		OnMessage:    s.handleMessage,
		OnError: func(conn *transport.ServerConn, err error) {
			s.logError(conn, "connection", err)
		},
	})
	if err != nil {
		return nil, err
	}
	s.srv = srv
	return s, nil
}

// Start listens and begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if err := s.srv.Start(ctx); err != nil {
		return err
	}
	s.manager.StartReconnectLoop()

	if s.config.Advertise {
		port := DefaultPort
		if addr, ok := s.srv.Addr().(*net.TCPAddr); ok {
			port = addr.Port
		}
		adv, err := Advertise(AdvertiseInfo{
			Instance:  s.config.Name,
			Port:      port,
			Interface: s.config.Interface,
		})
		if err != nil {
			_ = s.srv.Stop()
			return err
		}
		s.adv = adv
	}

	if s.config.Logger != nil {
		s.config.Logger.Info("bridge listening", "addr", s.srv.Addr().String(), "name", s.config.Name)
	}
	return nil
}

// Stop closes all connections, the upstream link and the advertisement.
func (s *Server) Stop() error {
	if s.adv != nil {
		s.adv.Shutdown()
		s.adv = nil
	}
	err := s.srv.Stop()
	s.manager.Close()

	s.upMu.Lock()
	tr := s.upstream
	s.upstream = nil
	s.upMu.Unlock()
	if tr != nil {
		_ = tr.Close()
	}
	return err
}

// Addr returns the listen address.
func (s *Server) Addr() net.Addr {
	return s.srv.Addr()
}

// ConnectionCount returns the number of connected clients.
func (s *Server) ConnectionCount() int {
	return s.srv.ConnectionCount()
}

// UpstreamState returns the state of the upstream link.
func (s *Server) UpstreamState() connection.State {
	return s.manager.State()
}

func (s *Server) handleConnect(conn *transport.ServerConn) {
	sess := &session{id: conn.SessionID(), remote: conn.RemoteAddr().String()}
	if s.config.RateLimit > 0 {
		sess.limiter = rate.NewLimiter(s.config.RateLimit, s.config.Burst)
	}

	s.sessMu.Lock()
	s.sessions[conn] = sess
	s.sessMu.Unlock()

	if s.config.Metrics != nil {
		s.config.Metrics.Connections.Inc()
	}
	s.debugLog("client connected", "session", sess.id, "remote", sess.remote)
}

func (s *Server) handleDisconnect(conn *transport.ServerConn) {
	s.sessMu.Lock()
	sess := s.sessions[conn]
	delete(s.sessions, conn)
	s.sessMu.Unlock()

	if s.config.Metrics != nil {
		s.config.Metrics.Connections.Dec()
	}
	if sess != nil {
		s.debugLog("client disconnected", "session", sess.id, "client", sess.client)
	}
}

func (s *Server) session(conn *transport.ServerConn) *session {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	return s.sessions[conn]
}

func (s *Server) handleMessage(conn *transport.ServerConn, data []byte) {
	start := time.Now()

	req, err := wire.DecodeRequest(data)
	if err != nil {
		s.logError(conn, "decode request", err)
		var id uint32
		if req != nil {
			id = req.MessageID
		}
		s.send(conn, wire.ErrorResponse(id, wire.WrapError(wire.StatusData, err, "bad request")), 0, start)
		return
	}
	s.logMessage(conn, log.DirectionIn, log.MessageEvent{
		Type:      log.MessageTypeRequest,
		MessageID: req.MessageID,
		Operation: &req.Operation,
		AreaSize:  len(req.Area),
	})

	sess := s.session(conn)
	if sess == nil {
		return
	}

	resp := s.dispatch(sess, req)
	s.send(conn, resp, req.Operation, start)
}

func (s *Server) dispatch(sess *session, req *wire.Request) *wire.Response {
	switch req.Operation {
	case wire.OpPing:
		return &wire.Response{MessageID: req.MessageID, Server: s.config.Name}

	case wire.OpOpen:
		ctx, cancel := context.WithTimeout(context.Background(), s.config.ProcessTimeout)
		defer cancel()
		tr, err := s.ensureUpstream(ctx)
		if err != nil {
			return wire.ErrorResponse(req.MessageID, err)
		}
		sess.mu.Lock()
		sess.open = true
		sess.client = req.Client
		sess.mu.Unlock()
		s.debugLog("session opened", "session", sess.id, "client", req.Client)
		return &wire.Response{
			MessageID:   req.MessageID,
			PointerSize: uint8(tr.Layout().PointerSize),
			Server:      s.config.Name,
		}

	case wire.OpClose:
		sess.mu.Lock()
		sess.open = false
		sess.mu.Unlock()
		return &wire.Response{MessageID: req.MessageID}

	case wire.OpProcess:
		sess.mu.Lock()
		open := sess.open
		sess.mu.Unlock()
		if !open {
			return wire.ErrorResponse(req.MessageID, wire.WrapError(wire.StatusNotOpen, ErrSessionClosed, "bridge"))
		}
		if sess.limiter != nil && !sess.limiter.Allow() {
			if s.config.Metrics != nil {
				s.config.Metrics.RateLimited.Inc()
			}
			return wire.ErrorResponse(req.MessageID, wire.WrapError(wire.StatusTimeout, ErrRateLimited, "bridge"))
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.config.ProcessTimeout)
		defer cancel()
		if err := s.process(ctx, req.Area); err != nil {
			return wire.ErrorResponse(req.MessageID, err)
		}
		if s.config.Metrics != nil {
			s.config.Metrics.AreaBytes.Observe(float64(len(req.Area)))
		}
		return &wire.Response{MessageID: req.MessageID, Area: req.Area}
	}
	return wire.ErrorResponse(req.MessageID, wire.NewError(wire.StatusData, "operation %s", req.Operation))
}

func (s *Server) send(conn *transport.ServerConn, resp *wire.Response, op wire.Operation, start time.Time) {
	elapsed := time.Since(start)
	if m := s.config.Metrics; m != nil {
		m.RequestsTotal.WithLabelValues(op.String(), resp.Status.String()).Inc()
		m.RequestDuration.WithLabelValues(op.String()).Observe(elapsed.Seconds())
	}

	data, err := wire.EncodeResponse(resp)
	if err != nil {
		s.logError(conn, "encode response", err)
		return
	}
	s.logMessage(conn, log.DirectionOut, log.MessageEvent{
		Type:           log.MessageTypeResponse,
		MessageID:      resp.MessageID,
		Status:         &resp.Status,
		AreaSize:       len(resp.Area),
		ProcessingTime: &elapsed,
	})
	if err := conn.Send(data); err != nil && !errors.Is(err, transport.ErrConnectionClosed) {
		s.logError(conn, "send response", err)
	}
}

// ensureUpstream returns the open upstream, opening it if no open is
// pending. A failed open starts background reopening.
func (s *Server) ensureUpstream(ctx context.Context) (transport.Transport, error) {
	if tr := s.current(); tr != nil {
		return tr, nil
	}

	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	if tr := s.current(); tr != nil {
		return tr, nil
	}
	if s.manager.State() != connection.StateDisconnected {
		return nil, wire.WrapError(wire.StatusNoFS, ErrUnavailable, s.manager.State().String())
	}

	if err := s.manager.Connect(ctx); err != nil && !errors.Is(err, connection.ErrAlreadyConnected) {
		s.manager.Reconnect()
		var coded *wire.Error
		if !errors.As(err, &coded) {
			return nil, wire.WrapError(wire.StatusNoFS, err, "upstream")
		}
		return nil, err
	}
	if tr := s.current(); tr != nil {
		return tr, nil
	}
	return nil, wire.WrapError(wire.StatusNoFS, ErrUnavailable, "upstream")
}

func (s *Server) current() transport.Transport {
	s.upMu.Lock()
	defer s.upMu.Unlock()
	return s.upstream
}

// process exchanges area with the upstream. Link failures drop the
// upstream and start background reopening.
func (s *Server) process(ctx context.Context, area []byte) error {
	if _, err := s.ensureUpstream(ctx); err != nil {
		return err
	}

	s.upMu.Lock()
	defer s.upMu.Unlock()

	tr := s.upstream
	if tr == nil {
		return wire.WrapError(wire.StatusNoFS, ErrUnavailable, "upstream")
	}

	// Upstreams copy the area over whatever the previous request left, so
	// an unterminated area would run into stale records.
	if err := wire.ValidateArea(tr.Layout(), area); err != nil {
		return err
	}

	start := time.Now()
	err := tr.Process(ctx, area)
	s.logArea(tr.Layout(), area, err, time.Since(start))
	if err == nil {
		return nil
	}

	switch wire.StatusOf(err) {
	case wire.StatusNotOpen, wire.StatusSendMsg:
		s.upstream = nil
		_ = tr.Close()
		s.manager.NotifyConnectionLost()
	}
	return err
}

func (s *Server) connectUpstream(ctx context.Context) error {
	tr, err := s.config.Upstream(ctx)
	if err != nil {
		return err
	}

	s.upMu.Lock()
	old := s.upstream
	s.upstream = tr
	s.upMu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	if s.config.Metrics != nil {
		s.config.Metrics.UpstreamOpens.Inc()
	}
	return nil
}

func (s *Server) upstreamStateChanged(oldState, newState connection.State) {
	s.config.Metrics.setUpstreamState(newState)
	if s.config.Logger != nil {
		s.config.Logger.Info("upstream state", "from", oldState.String(), "to", newState.String())
	}
	if s.config.ProtocolLogger == nil {
		return
	}
	s.config.ProtocolLogger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerClient,
		Category:  log.CategoryState,
		LocalRole: log.RoleServer,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityUpstream,
			OldState: oldState.String(),
			NewState: newState.String(),
		},
	})
}

func (s *Server) logMessage(conn *transport.ServerConn, dir log.Direction, msg log.MessageEvent) {
	if s.config.ProtocolLogger == nil {
		return
	}
	s.config.ProtocolLogger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  conn.SessionID(),
		Direction:  dir,
		Layer:      log.LayerWire,
		Category:   log.CategoryMessage,
		LocalRole:  log.RoleServer,
		RemoteAddr: conn.RemoteAddr().String(),
		Message:    &msg,
	})
}

func (s *Server) logArea(layout wire.Layout, area []byte, err error, d time.Duration) {
	if s.config.ProtocolLogger == nil {
		return
	}
	s.config.ProtocolLogger.Log(log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionOut,
		Layer:     log.LayerClient,
		Category:  log.CategoryMessage,
		LocalRole: log.RoleServer,
		Area: &log.AreaEvent{
			Size:     len(area),
			Records:  log.SummarizeArea(layout, area),
			Status:   wire.StatusOf(err),
			Duration: d,
		},
	})
}

func (s *Server) logError(conn *transport.ServerConn, op string, err error) {
	if s.config.Logger != nil {
		s.config.Logger.Warn("bridge error", "op", op, "error", err)
	}
	if s.config.ProtocolLogger == nil {
		return
	}
	var id string
	if conn != nil {
		id = conn.SessionID()
	}
	ev := log.NewErrorEvent(id, log.LayerWire, op, err)
	ev.LocalRole = log.RoleServer
	s.config.ProtocolLogger.Log(ev)
}

func (s *Server) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}

// String describes the server for logs.
func (s *Server) String() string {
	return fmt.Sprintf("bridge %q on %s", s.config.Name, s.config.Address)
}
