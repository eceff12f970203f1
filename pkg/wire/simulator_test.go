package wire

import "testing"

func TestParseSimulator(t *testing.T) {
	tests := []struct {
		in      string
		want    Simulator
		wantErr bool
	}{
		{"", SimAny, false},
		{"any", SimAny, false},
		{"FSX", SimFSX, false},
		{"p3d64", SimP3D64, false},
		{"msfs", SimMSFS, false},
		{"13", SimMSFS, false},
		{"0x0A", SimP3D, false},
		{"xplane", SimAny, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSimulator(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSimulator(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSimulator(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSimulatorText(t *testing.T) {
	var s Simulator
	if err := s.UnmarshalText([]byte("FS2K4")); err != nil {
		t.Fatal(err)
	}
	if s != SimFS2K4 || uint16(s) != 7 {
		t.Errorf("got %v (%d)", s, uint16(s))
	}

	text, _ := SimP3D.MarshalText()
	if string(text) != "P3D" {
		t.Errorf("MarshalText: got %q", text)
	}
	if Simulator(40).Known() {
		t.Error("40 should be unknown")
	}
	if Simulator(40).String() != "SIM(40)" {
		t.Errorf("String: got %q", Simulator(40).String())
	}
}
