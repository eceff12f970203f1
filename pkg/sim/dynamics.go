package sim

import (
	"context"
	"encoding/binary"
	"math"
	"time"
)

const earthRadius = 6371000.0 // metres

// Run advances the emulator every tick until ctx is done.
func (e *Emulator) Run(ctx context.Context, tick time.Duration) error {
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			e.Step(now.Sub(last))
			last = now
		}
	}
}

// Step advances the clock and the aircraft by dt. Nothing moves while paused.
func (e *Emulator) Step(dt time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if dt <= 0 || e.paused() {
		return
	}
	secs := dt.Seconds()

	e.clock = e.clock.Add(dt)
	e.writeClock()

	gs := e.groundSpeed()
	if gs != 0 {
		dist := gs * secs
		hdg := e.heading() * math.Pi / 180
		lat := e.latitude()
		dLat := dist * math.Cos(hdg) / earthRadius * 180 / math.Pi
		dLon := 0.0
		if c := math.Cos(lat * math.Pi / 180); c > 1e-9 {
			dLon = dist * math.Sin(hdg) / (earthRadius * c) * 180 / math.Pi
		}
		e.setLatitude(math.Max(-90, math.Min(90, lat+dLat)))
		e.setLongitude(e.longitude() + dLon)
	}

	if vs := e.verticalSpeed(); vs != 0 {
		alt := e.altitude() + vs*secs
		if alt <= 0 {
			alt = 0
			e.setVerticalSpeed(0)
		}
		e.setAltitude(alt)
	}
	e.updateDerived()
}

// updateDerived refreshes indicated airspeed and the on-ground flag.
func (e *Emulator) updateDerived() {
	knots := e.groundSpeed() / metresPerSecondPerKnot
	binary.LittleEndian.PutUint32(e.mem[OffsetIAS:], uint32(toRaw(knots, iasScale)))

	onGround := uint16(0)
	if e.altitude() < 1 && e.verticalSpeed() <= 0 {
		onGround = 1
	}
	binary.LittleEndian.PutUint16(e.mem[OffsetOnGround:], onGround)
}

func (e *Emulator) latitude() float64 {
	return float64(int64(binary.LittleEndian.Uint64(e.mem[OffsetLatitude:]))) * latitudeScale
}

func (e *Emulator) setLatitude(deg float64) {
	binary.LittleEndian.PutUint64(e.mem[OffsetLatitude:], uint64(toRaw(deg, latitudeScale)))
}

func (e *Emulator) longitude() float64 {
	return float64(int64(binary.LittleEndian.Uint64(e.mem[OffsetLongitude:]))) * longitudeScale
}

// setLongitude wraps deg into [-180, 180).
func (e *Emulator) setLongitude(deg float64) {
	deg = math.Mod(deg+180, 360)
	if deg < 0 {
		deg += 360
	}
	deg -= 180
	binary.LittleEndian.PutUint64(e.mem[OffsetLongitude:], uint64(toRaw(deg, longitudeScale)))
}

func (e *Emulator) altitude() float64 {
	return float64(int64(binary.LittleEndian.Uint64(e.mem[OffsetAltitude:]))) * altitudeScale
}

func (e *Emulator) setAltitude(m float64) {
	binary.LittleEndian.PutUint64(e.mem[OffsetAltitude:], uint64(toRaw(m, altitudeScale)))
}

func (e *Emulator) heading() float64 {
	return float64(binary.LittleEndian.Uint32(e.mem[OffsetHeading:])) * headingScale
}

// setHeading wraps deg into [0, 360).
func (e *Emulator) setHeading(deg float64) {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	raw := toRaw(deg, headingScale)
	if raw > math.MaxUint32 {
		raw = 0
	}
	binary.LittleEndian.PutUint32(e.mem[OffsetHeading:], uint32(raw))
}

// groundSpeed returns metres per second.
func (e *Emulator) groundSpeed() float64 {
	return float64(binary.LittleEndian.Uint32(e.mem[OffsetGroundSpeed:])) * speedScale
}

func (e *Emulator) setGroundSpeed(mps float64) {
	if mps < 0 {
		mps = 0
	}
	binary.LittleEndian.PutUint32(e.mem[OffsetGroundSpeed:], uint32(toRaw(mps, speedScale)))
}

// verticalSpeed returns metres per second.
func (e *Emulator) verticalSpeed() float64 {
	return float64(int32(binary.LittleEndian.Uint32(e.mem[OffsetVerticalSpeed:]))) * vsScale
}

func (e *Emulator) setVerticalSpeed(mps float64) {
	binary.LittleEndian.PutUint32(e.mem[OffsetVerticalSpeed:], uint32(int32(toRaw(mps, vsScale))))
}
