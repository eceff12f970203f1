package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voneiden/gofsuipc/pkg/fsuipc"
	"github.com/voneiden/gofsuipc/pkg/offsets"
)

// Default watcher timing.
const (
	DefaultInterval  = 250 * time.Millisecond
	DefaultHeartbeat = 10 * time.Second
)

// ErrNoDefinitions is returned by NewWatcher for an empty definition list.
var ErrNoDefinitions = errors.New("no offsets to watch")

// Kind says why a notification was sent.
type Kind uint8

const (
	// KindPrime is the first report, carrying every value.
	KindPrime Kind = iota

	// KindChange carries only the values that changed.
	KindChange

	// KindHeartbeat re-sends every value after a quiet period.
	KindHeartbeat
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindPrime:
		return "PRIME"
	case KindChange:
		return "CHANGE"
	case KindHeartbeat:
		return "HEARTBEAT"
	default:
		return "UNKNOWN"
	}
}

// Value is one decoded offset value.
type Value struct {
	Def   offsets.Definition
	Value any
	Raw   []byte
}

// Notification is a batch of values reported together.
type Notification struct {
	Kind   Kind
	Time   time.Time
	Values []Value
}

// Source hands out request batches. *fsuipc.Client implements it.
type Source interface {
	NewBatch() *fsuipc.Batch
}

// Config holds watcher configuration.
type Config struct {
	// Interval is the polling period. Default DefaultInterval.
	Interval time.Duration

	// Heartbeat is the longest silence before all values are re-sent.
	// Zero means DefaultHeartbeat, negative disables heartbeats.
	Heartbeat time.Duration

	// MinInterval coalesces changes: a change is reported once it has
	// been pending this long. Zero reports on the next poll.
	MinInterval time.Duration

	// Logger is optional. If nil, no operational logging is emitted.
	Logger *slog.Logger
}

// Watcher polls a fixed set of definitions.
type Watcher struct {
	src    Source
	defs   []offsets.Definition
	byName map[string]int
	config Config
	now    func() time.Time

	mu       sync.Mutex
	state    *state
	onNotify func(Notification)
	onError  func(error)
}

// NewWatcher creates a watcher over defs. Definitions are reported in the
// order given; duplicate names keep the first.
func NewWatcher(src Source, defs []offsets.Definition, config Config) (*Watcher, error) {
	if len(defs) == 0 {
		return nil, ErrNoDefinitions
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Heartbeat == 0 {
		config.Heartbeat = DefaultHeartbeat
	}

	w := &Watcher{
		src:    src,
		byName: make(map[string]int, len(defs)),
		config: config,
		now:    time.Now,
		state:  newState(config.MinInterval, config.Heartbeat),
	}
	for _, d := range defs {
		if d.Size <= 0 {
			return nil, fmt.Errorf("%s: invalid size %d", d.Name, d.Size)
		}
		if _, dup := w.byName[d.Name]; dup {
			continue
		}
		w.byName[d.Name] = len(w.defs)
		w.defs = append(w.defs, d)
	}
	return w, nil
}

// OnNotification sets the callback for notifications.
func (w *Watcher) OnNotification(fn func(Notification)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onNotify = fn
}

// OnError sets the callback for poll errors.
func (w *Watcher) OnError(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

// Definitions returns the watched definitions.
func (w *Watcher) Definitions() []offsets.Definition {
	return append([]offsets.Definition(nil), w.defs...)
}

// Run polls until ctx is done and returns ctx.Err().
func (w *Watcher) Run(ctx context.Context) error {
	w.debugLog("watcher started", "offsets", len(w.defs), "interval", w.config.Interval)
	defer w.debugLog("watcher stopped")

	w.pollAndReport(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.pollAndReport(ctx)
		}
	}
}

func (w *Watcher) pollAndReport(ctx context.Context) {
	err := w.Poll(ctx)
	if err == nil || ctx.Err() != nil {
		return
	}

	w.mu.Lock()
	onError := w.onError
	w.mu.Unlock()

	w.debugLog("poll failed", "error", err)
	if onError != nil {
		onError(err)
	}
}

// Poll reads every definition once and sends whatever notification is due.
func (w *Watcher) Poll(ctx context.Context) error {
	raws, err := w.read(ctx)
	if err != nil {
		if errors.Is(err, fsuipc.ErrNotOpen) {
			w.mu.Lock()
			w.state.reset()
			w.mu.Unlock()
		}
		return err
	}

	w.mu.Lock()
	now := w.now()
	var (
		kind  Kind
		names []string
	)
	switch {
	case !w.state.primed:
		w.state.prime(raws, now)
		kind, names = KindPrime, w.allNames()
	default:
		for _, d := range w.defs {
			w.state.record(d.Name, raws[d.Name], now)
		}
		if changed := w.state.flush(now); changed != nil {
			kind, names = KindChange, w.ordered(changed)
		} else if w.state.needsHeartbeat(now) {
			w.state.recordHeartbeat(now)
			kind, names = KindHeartbeat, w.allNames()
		}
	}
	values := w.values(names)
	onNotify := w.onNotify
	w.mu.Unlock()

	if len(values) == 0 {
		return nil
	}

	n := Notification{Kind: kind, Time: now, Values: values}
	var decodeErr error
	for i := range n.Values {
		v := &n.Values[i]
		v.Value, err = offsets.Decode(v.Def, v.Raw)
		if err != nil && decodeErr == nil {
			decodeErr = err
		}
	}

	w.debugLog("notify", "kind", kind, "values", len(values))
	if onNotify != nil {
		onNotify(n)
	}
	return decodeErr
}

func (w *Watcher) read(ctx context.Context) (map[string][]byte, error) {
	b := w.src.NewBatch()
	results := make([]*fsuipc.Result, len(w.defs))
	for i, d := range w.defs {
		r, err := b.Read(d.Offset, d.Size)
		if err != nil {
			return nil, fmt.Errorf("queue %s: %w", d.Name, err)
		}
		results[i] = r
	}
	if err := b.Process(ctx); err != nil {
		return nil, err
	}

	raws := make(map[string][]byte, len(w.defs))
	for i, d := range w.defs {
		raws[d.Name] = results[i].Bytes()
	}
	return raws, nil
}

// values builds the reported values from the last reported bytes. Caller
// holds w.mu.
func (w *Watcher) values(names []string) []Value {
	out := make([]Value, 0, len(names))
	for _, name := range names {
		raw := w.state.lastValues[name]
		out = append(out, Value{
			Def: w.defs[w.byName[name]],
			Raw: append([]byte(nil), raw...),
		})
	}
	return out
}

func (w *Watcher) allNames() []string {
	names := make([]string, len(w.defs))
	for i, d := range w.defs {
		names[i] = d.Name
	}
	return names
}

// ordered sorts names into definition order.
func (w *Watcher) ordered(names []string) []string {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	out := make([]string, 0, len(names))
	for _, d := range w.defs {
		if set[d.Name] {
			out = append(out, d.Name)
		}
	}
	return out
}

func (w *Watcher) debugLog(msg string, args ...any) {
	if w.config.Logger != nil {
		w.config.Logger.Debug(msg, args...)
	}
}
