package offsets

import (
	"context"
	"fmt"
)

// Reader reads raw offset bytes. *fsuipc.Client implements it.
type Reader interface {
	Read(ctx context.Context, offset uint32, size int) ([]byte, error)
}

// Writer writes raw offset bytes. *fsuipc.Client implements it.
type Writer interface {
	Write(ctx context.Context, offset uint32, data []byte) error
}

// Get reads and decodes the value of d.
func Get(ctx context.Context, r Reader, d Definition) (any, error) {
	raw, err := r.Read(ctx, d.Offset, d.Size)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.Name, err)
	}
	return Decode(d, raw)
}

// Set encodes value and writes it to d. Definitions not marked writable
// fail with ErrReadOnly before anything is sent.
func Set(ctx context.Context, w Writer, d Definition, value any) error {
	if !d.Writable {
		return fmt.Errorf("%s: %w", d.Name, ErrReadOnly)
	}
	raw, err := Encode(d, value)
	if err != nil {
		return err
	}
	if err := w.Write(ctx, d.Offset, raw); err != nil {
		return fmt.Errorf("write %s: %w", d.Name, err)
	}
	return nil
}
