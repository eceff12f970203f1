package monitor

import (
	"bytes"
	"time"
)

// state tracks reported values for one watcher.
type state struct {
	// MinInterval is the coalescing window for changes.
	MinInterval time.Duration

	// MaxInterval is the longest silence before a heartbeat. Zero or
	// negative disables heartbeats.
	MaxInterval time.Duration

	primed bool

	// lastNotified is when anything was last reported.
	lastNotified time.Time

	// lastValues holds the last reported raw bytes per definition name.
	lastValues map[string][]byte

	// pending accumulates changes during the coalescing window.
	pending map[string][]byte

	// windowStart is when the first pending change was seen.
	windowStart time.Time
}

func newState(minInterval, maxInterval time.Duration) *state {
	s := &state{MinInterval: minInterval, MaxInterval: maxInterval}
	s.reset()
	return s
}

// reset forgets everything so the next poll primes again.
func (s *state) reset() {
	s.primed = false
	s.lastValues = make(map[string][]byte)
	s.pending = make(map[string][]byte)
	s.windowStart = time.Time{}
}

// prime stores the initial values.
func (s *state) prime(values map[string][]byte, now time.Time) {
	for name, raw := range values {
		s.lastValues[name] = raw
	}
	s.primed = true
	s.lastNotified = now
}

// record notes the current bytes of name. Values equal to the last report
// are only recorded while a window is open, so a bounce back can cancel
// an earlier change. Returns true if this starts a coalescing window.
func (s *state) record(name string, raw []byte, now time.Time) bool {
	_, isPending := s.pending[name]
	if !isPending && bytes.Equal(s.lastValues[name], raw) {
		return false
	}

	isNewWindow := len(s.pending) == 0
	if isNewWindow {
		s.windowStart = now
	}
	s.pending[name] = raw
	return isNewWindow
}

// flush returns the names whose pending bytes differ from the last report,
// once the coalescing window has elapsed. Returns nil if nothing is due.
func (s *state) flush(now time.Time) []string {
	if len(s.pending) == 0 || now.Sub(s.windowStart) < s.MinInterval {
		return nil
	}

	var changed []string
	for name, raw := range s.pending {
		if bytes.Equal(s.lastValues[name], raw) {
			continue
		}
		s.lastValues[name] = raw
		changed = append(changed, name)
	}
	s.pending = make(map[string][]byte)

	if len(changed) == 0 {
		return nil
	}
	s.lastNotified = now
	return changed
}

// needsHeartbeat returns true if MaxInterval has elapsed since the last
// report.
func (s *state) needsHeartbeat(now time.Time) bool {
	if !s.primed || s.MaxInterval <= 0 {
		return false
	}
	return now.Sub(s.lastNotified) >= s.MaxInterval
}

// recordHeartbeat records that a heartbeat was sent.
func (s *state) recordHeartbeat(now time.Time) {
	s.lastNotified = now
}
