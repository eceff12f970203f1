package connection

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Manager errors.
var (
	ErrManagerClosed    = errors.New("connection manager closed")
	ErrAlreadyConnected = errors.New("already connected")
)

// DefaultConnectTimeout bounds one background reconnection attempt.
const DefaultConnectTimeout = 10 * time.Second

// State is the link state tracked by a Manager.
type State uint8

const (
	// StateDisconnected indicates no link and no retry pending.
	StateDisconnected State = iota

	// StateConnecting indicates an explicit Connect is in progress.
	StateConnecting

	// StateConnected indicates an open link.
	StateConnected

	// StateReconnecting indicates background retries with backoff.
	StateReconnecting

	// StateClosed indicates the manager has been closed.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ConnectFunc opens the link. It returns nil on success.
type ConnectFunc func(ctx context.Context) error

// Manager supervises a link: it opens it on demand and, after the owner
// reports a loss, reopens it in the background with exponential backoff.
type Manager struct {
	mu sync.RWMutex

	state          State
	backoff        *Backoff
	connectFn      ConnectFunc
	autoReconnect  bool
	connectTimeout time.Duration

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	reconnectCh chan struct{}
	loopStarted bool

	onStateChange  func(oldState, newState State)
	onConnected    func()
	onDisconnected func()
	onReconnecting func(attempt int, delay time.Duration)
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithBackoff replaces the default backoff.
func WithBackoff(b *Backoff) ManagerOption {
	return func(m *Manager) { m.backoff = b }
}

// WithConnectTimeout bounds each background attempt.
func WithConnectTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.connectTimeout = d
		}
	}
}

// NewManager creates a connection manager for connectFn.
func NewManager(connectFn ConnectFunc, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		state:          StateDisconnected,
		backoff:        NewBackoff(),
		connectFn:      connectFn,
		autoReconnect:  true,
		connectTimeout: DefaultConnectTimeout,
		ctx:            ctx,
		cancel:         cancel,
		reconnectCh:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected returns true if the link is open.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// SetAutoReconnect enables or disables background reopening.
func (m *Manager) SetAutoReconnect(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoReconnect = enabled
}

// Connect opens the link now.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateConnected:
		m.mu.Unlock()
		return ErrAlreadyConnected
	case StateClosed:
		m.mu.Unlock()
		return ErrManagerClosed
	}
	oldState := m.state
	m.state = StateConnecting
	m.mu.Unlock()
	m.notifyState(oldState, StateConnecting)

	err := m.connectFn(ctx)

	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	if err != nil {
		m.state = StateDisconnected
		m.mu.Unlock()
		m.notifyState(StateConnecting, StateDisconnected)
		return err
	}
	m.state = StateConnected
	m.backoff.Reset()
	onConnected := m.onConnected
	m.mu.Unlock()

	m.notifyState(StateConnecting, StateConnected)
	if onConnected != nil {
		onConnected()
	}
	return nil
}

// NotifyConnectionLost reports that the open link failed. With
// auto-reconnect enabled, background reopening starts.
func (m *Manager) NotifyConnectionLost() {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return
	}
	newState := StateDisconnected
	if m.autoReconnect {
		newState = StateReconnecting
	}
	m.state = newState
	onDisconnected := m.onDisconnected
	m.mu.Unlock()

	m.notifyState(StateConnected, newState)
	if onDisconnected != nil {
		onDisconnected()
	}
	if newState == StateReconnecting {
		m.triggerReconnect()
	}
}

// Reconnect starts background reopening from the disconnected state, for
// example after the initial Connect failed.
func (m *Manager) Reconnect() {
	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return
	}
	m.state = StateReconnecting
	m.mu.Unlock()

	m.notifyState(StateDisconnected, StateReconnecting)
	m.triggerReconnect()
}

// StartReconnectLoop starts the background reconnection goroutine.
// Calling it more than once has no effect.
func (m *Manager) StartReconnectLoop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loopStarted || m.state == StateClosed {
		return
	}
	m.loopStarted = true
	m.wg.Add(1)
	go m.reconnectLoop()
}

// Close stops reconnection and waits for the loop to exit.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	oldState := m.state
	m.state = StateClosed
	m.mu.Unlock()

	m.notifyState(oldState, StateClosed)
	m.cancel()
	m.wg.Wait()
}

// BackoffAttempts returns the number of reconnection attempts since the
// last successful open.
func (m *Manager) BackoffAttempts() int {
	return m.backoff.Attempts()
}

// OnStateChange sets a callback for state changes.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// OnConnected sets a callback for successful opens.
func (m *Manager) OnConnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConnected = fn
}

// OnDisconnected sets a callback for reported losses.
func (m *Manager) OnDisconnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDisconnected = fn
}

// OnReconnecting sets a callback invoked before each background attempt.
func (m *Manager) OnReconnecting(fn func(attempt int, delay time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnecting = fn
}

func (m *Manager) notifyState(oldState, newState State) {
	m.mu.RLock()
	fn := m.onStateChange
	m.mu.RUnlock()
	if fn != nil {
		fn(oldState, newState)
	}
}

func (m *Manager) triggerReconnect() {
	select {
	case m.reconnectCh <- struct{}{}:
	default:
	}
}

func (m *Manager) reconnectLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.reconnectCh:
			m.attemptReconnect()
		}
	}
}

func (m *Manager) attemptReconnect() {
	for {
		if m.State() != StateReconnecting {
			return
		}

		delay := m.backoff.Next()
		m.mu.RLock()
		onReconnecting := m.onReconnecting
		m.mu.RUnlock()
		if onReconnecting != nil {
			onReconnecting(m.backoff.Attempts(), delay)
		}

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(delay):
		}

		if m.State() != StateReconnecting {
			return
		}

		ctx, cancel := context.WithTimeout(m.ctx, m.connectTimeout)
		err := m.connectFn(ctx)
		cancel()
		if err != nil {
			continue
		}

		m.mu.Lock()
		if m.state != StateReconnecting {
			m.mu.Unlock()
			return
		}
		m.state = StateConnected
		m.backoff.Reset()
		onConnected := m.onConnected
		m.mu.Unlock()

		m.notifyState(StateReconnecting, StateConnected)
		if onConnected != nil {
			onConnected()
		}
		return
	}
}
