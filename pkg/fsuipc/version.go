package fsuipc

import "fmt"

// Version is the FSUIPC version word read from offset 0x3304.
//
// The high word holds the version in BCD (0x7012 is 7.012), the low word the
// build letter (1 is 'a', 0 is none).
type Version uint32

// MinVersion is the oldest FSUIPC the request-area protocol works with.
const MinVersion Version = 0x19980005

// Major returns the major version digit.
func (v Version) Major() int {
	return int(v>>28) & 0xF
}

// Minor returns the three BCD digits after the point as a number.
func (v Version) Minor() int {
	hi := uint32(v >> 16)
	return int((hi>>8)&0xF)*100 + int((hi>>4)&0xF)*10 + int(hi&0xF)
}

// Build returns the build letter, or 0 when there is none.
func (v Version) Build() rune {
	lo := uint32(v) & 0xFFFF
	if lo == 0 || lo > 26 {
		return 0
	}
	return rune('a' + lo - 1)
}

// Supported reports whether v is at least MinVersion.
func (v Version) Supported() bool {
	return v >= MinVersion
}

// String formats the version as "7.012a".
// Words that are not BCD are printed in hex.
func (v Version) String() string {
	hi := uint32(v >> 16)
	for i := 0; i < 4; i++ {
		if (hi>>(4*i))&0xF > 9 {
			return fmt.Sprintf("0x%08X", uint32(v))
		}
	}
	s := fmt.Sprintf("%d.%03d", v.Major(), v.Minor())
	if b := v.Build(); b != 0 {
		s += string(b)
	}
	return s
}
