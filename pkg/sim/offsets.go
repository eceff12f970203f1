package sim

import "math"

// MemorySize is the size of the emulated offset space.
const MemorySize = 0x10000

// Offsets served by the emulator. Scalings follow the FSUIPC offset
// documentation so values read here decode with the offsets catalogue.
const (
	OffsetClockHour   = 0x0238 // uint8
	OffsetClockMinute = 0x0239 // uint8
	OffsetClockSecond = 0x023A // uint8
	OffsetDayOfYear   = 0x023E // uint16
	OffsetYear        = 0x0240 // uint16

	OffsetPauseControl   = 0x0262 // uint16, write nonzero to pause
	OffsetPauseIndicator = 0x0264 // uint16, read only

	OffsetGroundSpeed   = 0x02B4 // uint32, m/s * 65536
	OffsetIAS           = 0x02BC // uint32, knots * 128
	OffsetVerticalSpeed = 0x02C8 // int32, m/s * 256
	OffsetOnGround      = 0x0366 // uint16

	OffsetLatitude  = 0x0560 // int64, see latitudeScale
	OffsetLongitude = 0x0568 // int64, see longitudeScale
	OffsetAltitude  = 0x0570 // int64, metres * 2^32
	OffsetHeading   = 0x0580 // uint32, degrees * 2^32 / 360

	OffsetParkingBrake = 0x0BC8 // uint16

	OffsetVersion   = 0x3304 // uint32
	OffsetSimulator = 0x3308 // uint16
	OffsetMarker    = 0x330A // uint16

	OffsetTitle = 0x3D00 // 256 byte NUL-terminated string
	TitleSize   = 256
)

// Marker is the value FSUIPC keeps at OffsetMarker.
const Marker = 0xFADE

// DefaultVersion reports FSUIPC 7.012 with no build letter.
const DefaultVersion uint32 = 0x70120000

const (
	latitudeScale  = 90.0 / (10001750.0 * 65536.0 * 65536.0)
	longitudeScale = 360.0 / (65536.0 * 65536.0 * 65536.0 * 65536.0)
	altitudeScale  = 1.0 / (65536.0 * 65536.0)
	headingScale   = 360.0 / (65536.0 * 65536.0)
	speedScale     = 1.0 / 65536.0
	vsScale        = 1.0 / 256.0
	iasScale       = 1.0 / 128.0

	metresPerSecondPerKnot = 0.514444
)

// readOnly lists ranges writes are ignored for.
var readOnly = []struct{ start, end uint32 }{
	{OffsetPauseIndicator, OffsetPauseIndicator + 2},
	{OffsetVersion, OffsetMarker + 2},
}

func isReadOnly(offset uint32) bool {
	for _, r := range readOnly {
		if offset >= r.start && offset < r.end {
			return true
		}
	}
	return false
}

func overlaps(offset, size, start, end uint32) bool {
	return offset < end && offset+size > start
}

func toRaw(v, scale float64) int64 {
	return int64(math.Round(v / scale))
}
