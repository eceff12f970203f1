package fsuipc

import (
	"errors"

	"github.com/voneiden/gofsuipc/pkg/wire"
)

// Status is an FSUIPC result code.
type Status = wire.Status

// Error is an error carrying an FSUIPC result code.
type Error = wire.Error

// Sentinel errors, one per result code. errors.Is matches any error
// carrying the same code, whatever its message:
//
//	if errors.Is(err, fsuipc.ErrNoFS) {
//	    // simulator not running
//	}
var (
	ErrOpen    = &wire.Error{Status: wire.StatusOpen}
	ErrNoFS    = &wire.Error{Status: wire.StatusNoFS}
	ErrRegMsg  = &wire.Error{Status: wire.StatusRegMsg}
	ErrAtom    = &wire.Error{Status: wire.StatusAtom}
	ErrMap     = &wire.Error{Status: wire.StatusMap}
	ErrView    = &wire.Error{Status: wire.StatusView}
	ErrVersion = &wire.Error{Status: wire.StatusVersion}
	ErrWrongFS = &wire.Error{Status: wire.StatusWrongFS}
	ErrNotOpen = &wire.Error{Status: wire.StatusNotOpen}
	ErrNoData  = &wire.Error{Status: wire.StatusNoData}
	ErrTimeout = &wire.Error{Status: wire.StatusTimeout}
	ErrSendMsg = &wire.Error{Status: wire.StatusSendMsg}
	ErrData    = &wire.Error{Status: wire.StatusData}
	ErrRunning = &wire.Error{Status: wire.StatusRunning}
	ErrSize    = &wire.Error{Status: wire.StatusSize}
)

// StatusOf returns the result code carried by err.
func StatusOf(err error) Status {
	return wire.StatusOf(err)
}

// coded ensures err carries a result code, using fallback for plain errors.
func coded(err error, fallback Status, message string) error {
	if err == nil {
		return nil
	}
	var fErr *wire.Error
	if errors.As(err, &fErr) {
		return err
	}
	return wire.WrapError(fallback, err, message)
}
