package wire

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

// MaxAreaSize is the largest request area FSUIPC accepts, terminator included.
const MaxAreaSize = 0x7F00

// MappingSize is the size of the shared file mapping backing a request area.
// FSUIPC expects some slack past MaxAreaSize.
const MappingSize = MaxAreaSize + 256

// Record ids.
const (
	// RecordEnd terminates a request area.
	RecordEnd uint32 = 0

	// RecordRead is a ReadStateData record.
	RecordRead uint32 = 1

	// RecordWrite is a WriteStateData record.
	RecordWrite uint32 = 2
)

// terminatorSize is the size of the trailing zero id.
const terminatorSize = 4

// writeHeaderSize is the size of a WriteStateData header on every layout.
const writeHeaderSize = 12

// Layout describes the record layout used by a client of a given bitness.
// Only the width of the dest pointer in read records differs.
type Layout struct {
	// PointerSize is 4 for 32-bit clients and 8 for 64-bit clients.
	PointerSize int
}

// Layout32 is the layout spoken by 32-bit clients.
var Layout32 = Layout{PointerSize: 4}

// Layout64 is the layout spoken by 64-bit clients.
// The 8-byte pointer is naturally aligned, so 4 bytes of padding follow nBytes.
var Layout64 = Layout{PointerSize: 8}

// NativeLayout returns the layout matching the running process.
func NativeLayout() Layout {
	if strconv.IntSize == 64 {
		return Layout64
	}
	return Layout32
}

// LayoutForPointerSize returns the layout for a pointer width.
func LayoutForPointerSize(n int) (Layout, error) {
	switch n {
	case 4:
		return Layout32, nil
	case 8:
		return Layout64, nil
	default:
		return Layout{}, fmt.Errorf("unsupported pointer size %d", n)
	}
}

// Valid returns true if the layout is one FSUIPC knows.
func (l Layout) Valid() bool {
	return l.PointerSize == 4 || l.PointerSize == 8
}

// ReadHeaderSize returns the size of a ReadStateData header.
func (l Layout) ReadHeaderSize() int {
	if l.PointerSize == 8 {
		return 24
	}
	return 16
}

// WriteHeaderSize returns the size of a WriteStateData header.
func (l Layout) WriteHeaderSize() int {
	return writeHeaderSize
}

// pointerOffset is the position of the dest pointer within a read header.
func (l Layout) pointerOffset() int {
	if l.PointerSize == 8 {
		return 16
	}
	return 12
}

// String returns "32-bit" or "64-bit".
func (l Layout) String() string {
	return fmt.Sprintf("%d-bit", l.PointerSize*8)
}

// AreaWriter builds a request area.
// The zero value is not usable; create one with NewAreaWriter.
type AreaWriter struct {
	layout Layout
	buf    []byte
	count  int
}

// NewAreaWriter creates an empty request area for the given layout.
func NewAreaWriter(layout Layout) *AreaWriter {
	return &AreaWriter{
		layout: layout,
		buf:    make([]byte, 0, 256),
	}
}

// Layout returns the area's layout.
func (w *AreaWriter) Layout() Layout {
	return w.layout
}

// Len returns the number of bytes used by records, terminator excluded.
func (w *AreaWriter) Len() int {
	return len(w.buf)
}

// Count returns the number of records appended.
func (w *AreaWriter) Count() int {
	return w.count
}

// Remaining returns how many payload bytes a further write record could carry.
func (w *AreaWriter) Remaining() int {
	n := MaxAreaSize - terminatorSize - len(w.buf) - writeHeaderSize
	if n < 0 {
		return 0
	}
	return n
}

func (w *AreaWriter) fits(header, size int) bool {
	return len(w.buf)+header+size+terminatorSize <= MaxAreaSize
}

// AppendRead adds a read record and returns the position of its payload
// within the area. The payload is zero until the server fills it.
func (w *AreaWriter) AppendRead(offset uint32, size int, token uint64) (int, error) {
	if size <= 0 {
		return 0, NewError(StatusData, "read of %d bytes at 0x%04X", size, offset)
	}
	header := w.layout.ReadHeaderSize()
	if !w.fits(header, size) {
		return 0, NewError(StatusSize, "read of %d bytes at 0x%04X", size, offset)
	}

	start := len(w.buf)
	w.buf = append(w.buf, make([]byte, header+size)...)
	rec := w.buf[start:]
	binary.LittleEndian.PutUint32(rec[0:], RecordRead)
	binary.LittleEndian.PutUint32(rec[4:], offset)
	binary.LittleEndian.PutUint32(rec[8:], uint32(size))
	p := w.layout.pointerOffset()
	if w.layout.PointerSize == 8 {
		binary.LittleEndian.PutUint64(rec[p:], token)
	} else {
		binary.LittleEndian.PutUint32(rec[p:], uint32(token))
	}
	w.count++
	return start + header, nil
}

// AppendWrite adds a write record carrying data.
func (w *AreaWriter) AppendWrite(offset uint32, data []byte) error {
	if len(data) == 0 {
		return NewError(StatusData, "empty write at 0x%04X", offset)
	}
	if !w.fits(writeHeaderSize, len(data)) {
		return NewError(StatusSize, "write of %d bytes at 0x%04X", len(data), offset)
	}

	var hdr [writeHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], RecordWrite)
	binary.LittleEndian.PutUint32(hdr[4:], offset)
	binary.LittleEndian.PutUint32(hdr[8:], uint32(len(data)))
	w.buf = append(w.buf, hdr[:]...)
	w.buf = append(w.buf, data...)
	w.count++
	return nil
}

// Bytes returns a terminated copy of the area suitable for Process.
func (w *AreaWriter) Bytes() []byte {
	out := make([]byte, len(w.buf)+terminatorSize)
	copy(out, w.buf)
	return out
}

// Reset discards all records.
func (w *AreaWriter) Reset() {
	w.buf = w.buf[:0]
	w.count = 0
}

// Record is one entry of a request area as seen by WalkArea.
type Record struct {
	// ID is RecordRead or RecordWrite.
	ID uint32
	// Offset is the FSUIPC offset addressed.
	Offset uint32
	// Token is the dest pointer field of a read record.
	Token uint64
	// Data aliases the record payload inside the area.
	// For reads the server writes into it.
	Data []byte
	// Pos is the position of Data within the area.
	Pos int
}

// WalkArea calls fn for each record of area until the terminator.
// Returning an error from fn stops the walk and returns that error.
// A record with an unknown id or running past the end of the area fails
// with StatusData.
func WalkArea(layout Layout, area []byte, fn func(rec Record) error) error {
	if !layout.Valid() {
		return NewError(StatusData, "invalid layout with pointer size %d", layout.PointerSize)
	}

	pos := 0
	for {
		if pos+terminatorSize > len(area) {
			return NewError(StatusData, "missing terminator at %d", pos)
		}
		id := binary.LittleEndian.Uint32(area[pos:])
		if id == RecordEnd {
			return nil
		}

		var header int
		switch id {
		case RecordRead:
			header = layout.ReadHeaderSize()
		case RecordWrite:
			header = writeHeaderSize
		default:
			return NewError(StatusData, "unknown record id %d at %d", id, pos)
		}
		if pos+header > len(area) {
			return NewError(StatusData, "truncated header at %d", pos)
		}

		rec := Record{
			ID:     id,
			Offset: binary.LittleEndian.Uint32(area[pos+4:]),
		}
		size := int(binary.LittleEndian.Uint32(area[pos+8:]))
		if id == RecordRead {
			p := pos + layout.pointerOffset()
			if layout.PointerSize == 8 {
				rec.Token = binary.LittleEndian.Uint64(area[p:])
			} else {
				rec.Token = uint64(binary.LittleEndian.Uint32(area[p:]))
			}
		}

		rec.Pos = pos + header
		if size < 0 || rec.Pos+size > len(area) || rec.Pos+size > MaxAreaSize {
			return NewError(StatusData, "record at %d overruns area", pos)
		}
		rec.Data = area[rec.Pos : rec.Pos+size : rec.Pos+size]

		if err := fn(rec); err != nil {
			return err
		}
		pos = rec.Pos + size
	}
}

// ValidateArea checks that area is a well formed request area for layout
// without touching it.
func ValidateArea(layout Layout, area []byte) error {
	return WalkArea(layout, area, func(Record) error { return nil })
}
