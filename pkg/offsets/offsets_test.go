package offsets

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voneiden/gofsuipc/pkg/fsuipc"
	"github.com/voneiden/gofsuipc/pkg/sim"
	"github.com/voneiden/gofsuipc/pkg/wire"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	require.Greater(t, c.Len(), 20)

	d, ok := Lookup("HEADING")
	require.True(t, ok)
	assert.Equal(t, uint32(0x0580), d.Offset)
	assert.Equal(t, TypeUint32, d.Type)
	assert.Equal(t, 4, d.Size)
	assert.Equal(t, "deg", d.Unit)

	title, ok := c.Lookup("aircraft_title")
	require.True(t, ok)
	assert.Equal(t, 256, title.Size)
	assert.Equal(t, 1.0, title.Scale)

	_, ok = c.Lookup("nope")
	assert.False(t, ok)

	all := c.All()
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Offset, all[i].Offset)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"UnknownType", "offsets:\n  - {name: a, offset: 0x10, type: int128}\n"},
		{"StringWithoutSize", "offsets:\n  - {name: a, offset: 0x10, type: string}\n"},
		{"SizeMismatch", "offsets:\n  - {name: a, offset: 0x10, type: uint16, size: 4}\n"},
		{"MissingName", "offsets:\n  - {offset: 0x10, type: uint16}\n"},
		{"Duplicate", "offsets:\n  - {name: a, offset: 0x10, type: uint8}\n  - {name: A, offset: 0x11, type: uint8}\n"},
		{"UnknownField", "offsets:\n  - {name: a, offset: 0x10, type: uint8, colour: red}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadEmpty(t *testing.T) {
	c, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestMerge(t *testing.T) {
	extra, err := Load(strings.NewReader(`
offsets:
  - name: heading
    offset: 0x0580
    type: uint32
    unit: raw
  - name: fuel_total
    offset: 0x126C
    type: uint32
    unit: gal
`))
	require.NoError(t, err)

	merged := Default().Merge(extra)
	assert.Equal(t, Default().Len()+1, merged.Len())

	d, ok := merged.Lookup("heading")
	require.True(t, ok)
	assert.Equal(t, "raw", d.Unit)
	_, ok = merged.Lookup("fuel_total")
	assert.True(t, ok)

	// The embedded catalogue is untouched.
	d, _ = Lookup("heading")
	assert.Equal(t, "deg", d.Unit)
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
		err  bool
	}{
		{"0x0560", 0x0560, false},
		{"0X3D00", 0x3D00, false},
		{"$0238", 0x0238, false},
		{"1376", 1376, false},
		{" 0x66C0 ", 0x66C0, false},
		{"0x10000", 0, true},
		{"heading", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseOffset(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestResolve(t *testing.T) {
	c := Default()

	d, err := c.Resolve("altitude", 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x0570), d.Offset)

	d, err = c.Resolve("0x0570", 0)
	require.NoError(t, err)
	assert.Equal(t, "altitude", d.Name)

	d, err = c.Resolve("0x1234", 3)
	require.NoError(t, err)
	assert.Equal(t, TypeBytes, d.Type)
	assert.Equal(t, 3, d.Size)
	assert.True(t, d.Writable)

	_, err = c.Resolve("0x1234", 0)
	assert.ErrorIs(t, err, ErrUnknownOffset)
	_, err = c.Resolve("bogus", 4)
	assert.ErrorIs(t, err, ErrUnknownOffset)
}

func TestDecodeEncodeTypes(t *testing.T) {
	tests := []struct {
		name  string
		def   Definition
		value float64
		raw   []byte
	}{
		{"int8", Definition{Type: TypeInt8, Size: 1, Scale: 1}, -2, []byte{0xFE}},
		{"uint8", Definition{Type: TypeUint8, Size: 1, Scale: 1}, 200, []byte{200}},
		{"int16", Definition{Type: TypeInt16, Size: 2, Scale: 1}, -4096, []byte{0x00, 0xF0}},
		{"uint16", Definition{Type: TypeUint16, Size: 2, Scale: 0.0625}, 1013.25, []byte{0x54, 0x3F}},
		{"int32", Definition{Type: TypeInt32, Size: 4, Scale: 0.00390625}, -2.5, []byte{0x80, 0xFD, 0xFF, 0xFF}},
		{"uint32", Definition{Type: TypeUint32, Size: 4, Scale: 1}, 16383, []byte{0xFF, 0x3F, 0, 0}},
		{"int64", Definition{Type: TypeInt64, Size: 8, Scale: 1}, -1, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}},
		{"uint64", Definition{Type: TypeUint64, Size: 8, Scale: 1}, 258, []byte{2, 1, 0, 0, 0, 0, 0, 0}},
		{"float32", Definition{Type: TypeFloat32, Size: 4, Scale: 1}, 1.5, []byte{0, 0, 0xC0, 0x3F}},
		{"float64", Definition{Type: TypeFloat64, Size: 8, Scale: 1}, 1.5, []byte{0, 0, 0, 0, 0, 0, 0xF8, 0x3F}},
		{"bcd16", Definition{Type: TypeBCD16, Size: 2, Scale: 0.01, Bias: 100}, 123.45, []byte{0x45, 0x23}},
		{"squawk", Definition{Type: TypeBCD16, Size: 2, Scale: 1}, 7700, []byte{0x00, 0x77}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.def.Name = tt.name

			got, err := Decode(tt.def, tt.raw)
			require.NoError(t, err)
			assert.InDelta(t, tt.value, got.(float64), 1e-9)

			raw, err := Encode(tt.def, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.raw, raw)
		})
	}
}

func TestDecodeCatalogueScales(t *testing.T) {
	hdg, _ := Lookup("heading")
	raw, err := Encode(hdg, 90.0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0x40}, raw)

	lat, _ := Lookup("latitude")
	raw, err = Encode(lat, 60.3172)
	require.NoError(t, err)
	v, err := Decode(lat, raw)
	require.NoError(t, err)
	assert.InDelta(t, 60.3172, v.(float64), 1e-9)
}

func TestEncodeRounding(t *testing.T) {
	d := Definition{Name: "ias", Type: TypeUint32, Size: 4, Scale: 0.0078125}
	raw, err := Encode(d, 100.003) // raw 12800.384
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x32, 0, 0}, raw)
	v, _ := Decode(d, raw)
	assert.InDelta(t, 100.0, v.(float64), 0.01)
}

func TestEncodeErrors(t *testing.T) {
	u8 := Definition{Name: "u8", Type: TypeUint8, Size: 1, Scale: 1}
	_, err := Encode(u8, 256)
	assert.ErrorIs(t, err, ErrRange)
	_, err = Encode(u8, -1)
	assert.ErrorIs(t, err, ErrRange)
	_, err = Encode(u8, "x")
	assert.ErrorIs(t, err, ErrType)

	i16 := Definition{Name: "i16", Type: TypeInt16, Size: 2, Scale: 1}
	_, err = Encode(i16, 32768)
	assert.ErrorIs(t, err, ErrRange)

	bcd := Definition{Name: "bcd", Type: TypeBCD16, Size: 2, Scale: 1}
	_, err = Encode(bcd, 10000)
	assert.ErrorIs(t, err, ErrRange)

	str := Definition{Name: "s", Type: TypeString, Size: 4}
	_, err = Encode(str, "abcd")
	assert.ErrorIs(t, err, ErrRange)
	_, err = Encode(str, 3)
	assert.ErrorIs(t, err, ErrType)

	b := Definition{Name: "b", Type: TypeBytes, Size: 2}
	_, err = Encode(b, []byte{1})
	assert.ErrorIs(t, err, ErrRange)
}

func TestEncodeNonFinite(t *testing.T) {
	nan, inf := math.NaN(), math.Inf(1)
	tests := []struct {
		typ   Type
		value float64
	}{
		{TypeInt64, nan},
		{TypeInt32, nan},
		{TypeUint16, nan},
		{TypeBCD16, nan},
		{TypeUint64, inf},
		{TypeInt8, -inf},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%g", tt.typ, tt.value), func(t *testing.T) {
			d := Definition{Name: "x", Type: tt.typ, Size: tt.typ.Size(), Scale: 1}
			_, err := Encode(d, tt.value)
			assert.ErrorIs(t, err, ErrRange)
		})
	}

	alt := Definition{Name: "altitude", Type: TypeInt64, Size: 8, Scale: 1, Writable: true}
	v, err := ParseValue(alt, "NaN")
	require.NoError(t, err)
	_, err = Encode(alt, v)
	assert.ErrorIs(t, err, ErrRange)

	f64 := Definition{Name: "f", Type: TypeFloat64, Size: 8, Scale: 1}
	raw, err := Encode(f64, nan)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(math.Float64frombits(binary.LittleEndian.Uint64(raw))))
}

func TestDecodeStringsAndBytes(t *testing.T) {
	str := Definition{Name: "s", Type: TypeString, Size: 8}
	v, err := Decode(str, []byte("abc\x00zzzz"))
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	raw, err := Encode(str, "abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc\x00\x00\x00\x00\x00"), raw)

	b := Definition{Name: "b", Type: TypeBytes, Size: 2}
	v, err = Decode(b, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, v)

	_, err = Decode(b, []byte{1})
	assert.Error(t, err)

	bcd := Definition{Name: "bcd", Type: TypeBCD16, Size: 2, Scale: 1}
	_, err = Decode(bcd, []byte{0x0A, 0x00})
	assert.Error(t, err)
}

func TestParseValueAndFormat(t *testing.T) {
	hdg, _ := Lookup("heading")
	v, err := ParseValue(hdg, "270.5")
	require.NoError(t, err)
	assert.Equal(t, 270.5, v)
	assert.Equal(t, "270.50000000 deg", Format(hdg, 270.5))

	gear, _ := Lookup("gear_control")
	v, err = ParseValue(gear, "0x3FFF")
	require.NoError(t, err)
	assert.Equal(t, 16383.0, v)
	assert.Equal(t, "16383", Format(gear, 16383.0))

	com, _ := Lookup("com1_frequency")
	assert.Equal(t, "123.45 MHz", Format(com, 123.45))

	user, _ := Lookup("user_area")
	v, err = ParseValue(user, "0a0b")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0A, 0x0B}, v)
	assert.Equal(t, "0a0b", Format(user, []byte{0x0A, 0x0B}))

	title, _ := Lookup("aircraft_title")
	assert.Equal(t, `"Cessna"`, Format(title, "Cessna"))

	_, err = ParseValue(hdg, "north")
	assert.ErrorIs(t, err, ErrType)
}

func TestGetSetAgainstEmulator(t *testing.T) {
	emu := sim.New(sim.DefaultConfig())
	client := fsuipc.NewClient(fsuipc.Handler(emu, wire.Layout64))
	ctx := context.Background()
	require.NoError(t, client.Open(ctx, wire.SimAny))
	defer client.Close()

	title, _ := Lookup("aircraft_title")
	v, err := Get(ctx, client, title)
	require.NoError(t, err)
	assert.Equal(t, "Cessna Skyhawk G1000 Asobo", v)

	lat, _ := Lookup("latitude")
	v, err = Get(ctx, client, lat)
	require.NoError(t, err)
	assert.InDelta(t, 60.3172, v.(float64), 1e-6)

	pause, _ := Lookup("pause_control")
	require.NoError(t, Set(ctx, client, pause, 1))
	indicator, _ := Lookup("pause_indicator")
	v, err = Get(ctx, client, indicator)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
	assert.True(t, emu.Paused())

	err = Set(ctx, client, indicator, 0)
	assert.ErrorIs(t, err, ErrReadOnly)

	require.NoError(t, client.Close())
	_, err = Get(ctx, client, lat)
	assert.True(t, errors.Is(err, fsuipc.ErrNotOpen))
}
