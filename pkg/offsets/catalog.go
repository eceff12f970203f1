package offsets

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Catalogue errors.
var (
	ErrUnknownOffset = errors.New("unknown offset")
	ErrReadOnly      = errors.New("offset is read only")
	ErrRange         = errors.New("value out of range")
	ErrType          = errors.New("unsupported value")
)

// Type is the byte layout of an offset value.
type Type string

// Value types.
const (
	TypeInt8    Type = "int8"
	TypeUint8   Type = "uint8"
	TypeInt16   Type = "int16"
	TypeUint16  Type = "uint16"
	TypeInt32   Type = "int32"
	TypeUint32  Type = "uint32"
	TypeInt64   Type = "int64"
	TypeUint64  Type = "uint64"
	TypeFloat32 Type = "float32"
	TypeFloat64 Type = "float64"
	TypeString  Type = "string"
	TypeBytes   Type = "bytes"
	TypeBCD16   Type = "bcd16"
)

// Size returns the fixed size of t, or 0 for string and bytes.
func (t Type) Size() int {
	switch t {
	case TypeInt8, TypeUint8:
		return 1
	case TypeInt16, TypeUint16, TypeBCD16:
		return 2
	case TypeInt32, TypeUint32, TypeFloat32:
		return 4
	case TypeInt64, TypeUint64, TypeFloat64:
		return 8
	default:
		return 0
	}
}

// IsNumeric reports whether values of t decode to float64.
func (t Type) IsNumeric() bool {
	return t != TypeString && t != TypeBytes && t.Size() > 0
}

// Definition describes one offset.
type Definition struct {
	Name        string  `yaml:"name"`
	Offset      uint32  `yaml:"offset"`
	Type        Type    `yaml:"type"`
	Size        int     `yaml:"size,omitempty"`
	Scale       float64 `yaml:"scale,omitempty"`
	Bias        float64 `yaml:"bias,omitempty"`
	Unit        string  `yaml:"unit,omitempty"`
	Writable    bool    `yaml:"writable,omitempty"`
	Description string  `yaml:"description,omitempty"`
}

// normalize fills defaults and checks the definition.
func (d *Definition) normalize() error {
	if d.Name == "" {
		return fmt.Errorf("offset 0x%04X: missing name", d.Offset)
	}
	switch d.Type {
	case TypeString, TypeBytes:
		if d.Size <= 0 {
			return fmt.Errorf("%s: %s needs a size", d.Name, d.Type)
		}
	default:
		n := d.Type.Size()
		if n == 0 {
			return fmt.Errorf("%s: unknown type %q", d.Name, d.Type)
		}
		if d.Size != 0 && d.Size != n {
			return fmt.Errorf("%s: size %d does not match %s", d.Name, d.Size, d.Type)
		}
		d.Size = n
	}
	if d.Scale == 0 {
		d.Scale = 1
	}
	return nil
}

// Catalog is a set of named offset definitions.
type Catalog struct {
	defs   []Definition
	byName map[string]int
}

type catalogFile struct {
	Offsets []Definition `yaml:"offsets"`
}

// Load parses a YAML catalogue.
func Load(r io.Reader) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}

	c := &Catalog{byName: make(map[string]int, len(f.Offsets))}
	for _, d := range f.Offsets {
		if err := c.add(d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// LoadFile parses the YAML catalogue at path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

func (c *Catalog) add(d Definition) error {
	if err := d.normalize(); err != nil {
		return err
	}
	key := strings.ToLower(d.Name)
	if _, dup := c.byName[key]; dup {
		return fmt.Errorf("duplicate offset name %q", d.Name)
	}
	c.byName[key] = len(c.defs)
	c.defs = append(c.defs, d)
	return nil
}

// Merge returns a catalogue holding c's definitions replaced or extended
// by other's.
func (c *Catalog) Merge(other *Catalog) *Catalog {
	out := &Catalog{byName: make(map[string]int, len(c.defs)+len(other.defs))}
	for _, src := range []*Catalog{c, other} {
		for _, d := range src.defs {
			key := strings.ToLower(d.Name)
			if i, ok := out.byName[key]; ok {
				out.defs[i] = d
				continue
			}
			out.byName[key] = len(out.defs)
			out.defs = append(out.defs, d)
		}
	}
	return out
}

// Lookup finds a definition by name, ignoring case.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	i, ok := c.byName[strings.ToLower(name)]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// Resolve accepts a catalogue name or a numeric offset. A numeric offset
// with no catalogue entry becomes a bytes definition of size bytes.
func (c *Catalog) Resolve(ref string, size int) (Definition, error) {
	if d, ok := c.Lookup(ref); ok {
		return d, nil
	}
	offset, err := ParseOffset(ref)
	if err != nil {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownOffset, ref)
	}
	if size <= 0 {
		for _, d := range c.defs {
			if d.Offset == offset {
				return d, nil
			}
		}
		return Definition{}, fmt.Errorf("%w: 0x%04X needs a size", ErrUnknownOffset, offset)
	}
	return Definition{
		Name:     fmt.Sprintf("0x%04X", offset),
		Offset:   offset,
		Type:     TypeBytes,
		Size:     size,
		Scale:    1,
		Writable: true,
	}, nil
}

// All returns the definitions ordered by offset.
func (c *Catalog) All() []Definition {
	out := append([]Definition(nil), c.defs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := Load(bytes.NewReader(catalogYAML))
	if err != nil {
		panic("offsets: embedded catalogue: " + err.Error())
	}
	return c
})

// Default returns the embedded catalogue.
func Default() *Catalog {
	return defaultCatalog()
}

// Lookup finds a definition in the embedded catalogue.
func Lookup(name string) (Definition, bool) {
	return Default().Lookup(name)
}

// ParseOffset parses hex with a "0x" or "$" prefix ("0x0560", "$0560")
// and decimal otherwise ("1376").
func ParseOffset(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	digits, base := s, 10
	if rest, ok := strings.CutPrefix(s, "$"); ok {
		digits, base = rest, 16
	} else if rest, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		digits, base = rest, 16
	}
	v, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q", s)
	}
	if v > 0xFFFF {
		return 0, fmt.Errorf("offset %q outside 0x0000-0xFFFF", s)
	}
	return uint32(v), nil
}
