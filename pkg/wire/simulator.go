package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// Simulator identifies the flight simulator behind an FSUIPC server.
type Simulator uint16

const (
	SimAny   Simulator = 0
	SimFS98  Simulator = 1
	SimFS2K  Simulator = 2
	SimCFS2  Simulator = 3
	SimCFS1  Simulator = 4
	SimFly   Simulator = 5
	SimFS2K2 Simulator = 6
	SimFS2K4 Simulator = 7
	SimFSX   Simulator = 8
	SimESP   Simulator = 9
	SimP3D   Simulator = 10
	SimFSX64 Simulator = 11
	SimP3D64 Simulator = 12
	SimMSFS  Simulator = 13
)

var simulatorNames = map[Simulator]string{
	SimAny:   "ANY",
	SimFS98:  "FS98",
	SimFS2K:  "FS2K",
	SimCFS2:  "CFS2",
	SimCFS1:  "CFS1",
	SimFly:   "FLY",
	SimFS2K2: "FS2K2",
	SimFS2K4: "FS2K4",
	SimFSX:   "FSX",
	SimESP:   "ESP",
	SimP3D:   "P3D",
	SimFSX64: "FSX64",
	SimP3D64: "P3D64",
	SimMSFS:  "MSFS",
}

// String returns the simulator name.
func (s Simulator) String() string {
	if name, ok := simulatorNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SIM(%d)", uint16(s))
}

// Known returns true if s is a simulator id FSUIPC defines.
func (s Simulator) Known() bool {
	_, ok := simulatorNames[s]
	return ok
}

// ParseSimulator parses a simulator name (case-insensitive) or number.
func ParseSimulator(s string) (Simulator, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SimAny, nil
	}
	if n, err := strconv.ParseUint(s, 0, 16); err == nil {
		return Simulator(n), nil
	}
	upper := strings.ToUpper(s)
	for sim, name := range simulatorNames {
		if name == upper {
			return sim, nil
		}
	}
	return SimAny, fmt.Errorf("unknown simulator %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Simulator) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so simulators can be
// named in YAML files and environment variables.
func (s *Simulator) UnmarshalText(text []byte) error {
	sim, err := ParseSimulator(string(text))
	if err != nil {
		return err
	}
	*s = sim
	return nil
}
