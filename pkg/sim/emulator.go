package sim

import (
	"encoding/binary"
	"log/slog"
	"sync"
	"time"

	"github.com/voneiden/gofsuipc/pkg/transport"
	"github.com/voneiden/gofsuipc/pkg/wire"
)

// Config holds the initial state of an emulated simulator.
type Config struct {
	// Simulator is reported at OffsetSimulator. Defaults to SimMSFS.
	Simulator wire.Simulator

	// Version is reported at OffsetVersion. Defaults to DefaultVersion.
	Version uint32

	// Title is the aircraft title at OffsetTitle.
	Title string

	// Position in degrees and metres above mean sea level.
	Latitude  float64
	Longitude float64
	Altitude  float64

	// Heading in degrees true.
	Heading float64

	// GroundSpeed in knots.
	GroundSpeed float64

	// VerticalSpeed in metres per second.
	VerticalSpeed float64

	// Clock is the initial simulator time. Defaults to time.Now in UTC.
	Clock time.Time

	// Logger is the optional logger for debug output.
	Logger *slog.Logger
}

// DefaultConfig returns an aircraft parked at EFHK heading north.
func DefaultConfig() Config {
	return Config{
		Simulator: wire.SimMSFS,
		Version:   DefaultVersion,
		Title:     "Cessna Skyhawk G1000 Asobo",
		Latitude:  60.3172,
		Longitude: 24.9633,
		Altitude:  55,
	}
}

// Emulator is an in-process FSUIPC server over a 64 KiB offset space.
// It implements transport.Handler and is safe for concurrent use.
type Emulator struct {
	mu       sync.Mutex
	mem      [MemorySize]byte
	clock    time.Time
	requests uint64
	logger   *slog.Logger
}

// New creates an emulator seeded from cfg.
func New(cfg Config) *Emulator {
	if cfg.Simulator == wire.SimAny {
		cfg.Simulator = wire.SimMSFS
	}
	if cfg.Version == 0 {
		cfg.Version = DefaultVersion
	}
	if cfg.Clock.IsZero() {
		cfg.Clock = time.Now().UTC()
	}

	e := &Emulator{clock: cfg.Clock, logger: cfg.Logger}

	binary.LittleEndian.PutUint32(e.mem[OffsetVersion:], cfg.Version)
	binary.LittleEndian.PutUint16(e.mem[OffsetSimulator:], uint16(cfg.Simulator))
	binary.LittleEndian.PutUint16(e.mem[OffsetMarker:], Marker)
	e.setTitle(cfg.Title)

	e.setLatitude(cfg.Latitude)
	e.setLongitude(cfg.Longitude)
	e.setAltitude(cfg.Altitude)
	e.setHeading(cfg.Heading)
	e.setGroundSpeed(cfg.GroundSpeed * metresPerSecondPerKnot)
	e.setVerticalSpeed(cfg.VerticalSpeed)
	e.updateDerived()
	e.writeClock()

	return e
}

// NewTransport returns a loopback transport served by a new emulator.
func NewTransport(cfg Config) (*Emulator, *transport.Loopback) {
	e := New(cfg)
	return e, transport.NewLoopback(e)
}

// Handle serves one request area: writes update memory, reads copy memory
// into the record payload. Records are applied in order.
func (e *Emulator) Handle(layout wire.Layout, area []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.requests++
	var reads, writes int
	err := wire.WalkArea(layout, area, func(rec wire.Record) error {
		size := uint32(len(rec.Data))
		if uint64(rec.Offset)+uint64(size) > MemorySize {
			return wire.NewError(wire.StatusData, "offset 0x%04X+%d outside emulated memory", rec.Offset, size)
		}
		switch rec.ID {
		case wire.RecordRead:
			copy(rec.Data, e.mem[rec.Offset:rec.Offset+size])
			reads++
		case wire.RecordWrite:
			e.write(rec.Offset, rec.Data)
			writes++
		}
		return nil
	})
	if err != nil {
		e.debugLog("Handle: rejected area", "error", err)
		return err
	}
	e.debugLog("Handle: processed area", "reads", reads, "writes", writes)
	return nil
}

// write applies a write record byte by byte, skipping read-only offsets.
func (e *Emulator) write(offset uint32, data []byte) {
	for i, b := range data {
		o := offset + uint32(i)
		if isReadOnly(o) {
			continue
		}
		e.mem[o] = b
	}

	size := uint32(len(data))
	if overlaps(offset, size, OffsetPauseControl, OffsetPauseControl+2) {
		pause := binary.LittleEndian.Uint16(e.mem[OffsetPauseControl:])
		indicator := uint16(0)
		if pause != 0 {
			indicator = 1
		}
		binary.LittleEndian.PutUint16(e.mem[OffsetPauseIndicator:], indicator)
	}
	if overlaps(offset, size, OffsetClockHour, OffsetClockSecond+1) {
		e.readClock()
	}
	if overlaps(offset, size, OffsetGroundSpeed, OffsetGroundSpeed+4) ||
		overlaps(offset, size, OffsetAltitude, OffsetAltitude+8) {
		e.updateDerived()
	}
}

// Peek returns a copy of size bytes at offset.
func (e *Emulator) Peek(offset uint32, size int) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	if size <= 0 || uint64(offset)+uint64(size) > MemorySize {
		return nil
	}
	out := make([]byte, size)
	copy(out, e.mem[offset:])
	return out
}

// Poke stores data at offset, including read-only offsets.
// Used to stage handshake values in tests.
func (e *Emulator) Poke(offset uint32, data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if uint64(offset)+uint64(len(data)) > MemorySize {
		return
	}
	copy(e.mem[offset:], data)
}

// Paused reports whether the pause indicator is set.
func (e *Emulator) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused()
}

// Clock returns the simulator time.
func (e *Emulator) Clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock
}

// Requests returns the number of areas handled.
func (e *Emulator) Requests() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requests
}

func (e *Emulator) paused() bool {
	return binary.LittleEndian.Uint16(e.mem[OffsetPauseIndicator:]) != 0
}

func (e *Emulator) setTitle(title string) {
	clear(e.mem[OffsetTitle : OffsetTitle+TitleSize])
	if len(title) > TitleSize-1 {
		title = title[:TitleSize-1]
	}
	copy(e.mem[OffsetTitle:], title)
}

func (e *Emulator) writeClock() {
	e.mem[OffsetClockHour] = byte(e.clock.Hour())
	e.mem[OffsetClockMinute] = byte(e.clock.Minute())
	e.mem[OffsetClockSecond] = byte(e.clock.Second())
	binary.LittleEndian.PutUint16(e.mem[OffsetDayOfYear:], uint16(e.clock.YearDay()))
	binary.LittleEndian.PutUint16(e.mem[OffsetYear:], uint16(e.clock.Year()))
}

// readClock takes hour, minute and second from memory, keeping the date.
func (e *Emulator) readClock() {
	h := int(e.mem[OffsetClockHour]) % 24
	m := int(e.mem[OffsetClockMinute]) % 60
	s := int(e.mem[OffsetClockSecond]) % 60
	y, mo, d := e.clock.Date()
	e.clock = time.Date(y, mo, d, h, m, s, 0, e.clock.Location())
	e.writeClock()
}

func (e *Emulator) debugLog(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

var _ transport.Handler = (*Emulator)(nil)
