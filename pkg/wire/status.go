package wire

import (
	"errors"
	"fmt"
)

// Status is an FSUIPC result code.
//
// The numeric values match the FSUIPC_ERR_* constants of the FSUIPC SDK so
// they can cross the C ABI and the bridge unchanged.
type Status uint32

const (
	// StatusOK indicates success.
	StatusOK Status = 0

	// StatusOpen indicates an attempt to open a link that is already open.
	StatusOpen Status = 1

	// StatusNoFS indicates no FSUIPC or WideClient server could be found.
	StatusNoFS Status = 2

	// StatusRegMsg indicates the IPC window message could not be registered.
	StatusRegMsg Status = 3

	// StatusAtom indicates the global atom naming the area could not be created.
	StatusAtom Status = 4

	// StatusMap indicates the shared file mapping could not be created.
	StatusMap Status = 5

	// StatusView indicates the shared file mapping could not be mapped into memory.
	StatusView Status = 6

	// StatusVersion indicates the server version is incompatible or unreadable.
	StatusVersion Status = 7

	// StatusWrongFS indicates the running simulator is not the one requested.
	StatusWrongFS Status = 8

	// StatusNotOpen indicates a request on a link that is not open.
	StatusNotOpen Status = 9

	// StatusNoData indicates Process was called with no requests queued.
	StatusNoData Status = 10

	// StatusTimeout indicates the server did not answer in time.
	StatusTimeout Status = 11

	// StatusSendMsg indicates the IPC message could not be delivered.
	StatusSendMsg Status = 12

	// StatusData indicates the server rejected or corrupted the request area.
	StatusData Status = 13

	// StatusRunning indicates the link is in use. Reserved by FSUIPC.
	StatusRunning Status = 14

	// StatusSize indicates the request area is full.
	StatusSize Status = 15
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusOpen:
		return "OPEN"
	case StatusNoFS:
		return "NOFS"
	case StatusRegMsg:
		return "REGMSG"
	case StatusAtom:
		return "ATOM"
	case StatusMap:
		return "MAP"
	case StatusView:
		return "VIEW"
	case StatusVersion:
		return "VERSION"
	case StatusWrongFS:
		return "WRONGFS"
	case StatusNotOpen:
		return "NOTOPEN"
	case StatusNoData:
		return "NODATA"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusSendMsg:
		return "SENDMSG"
	case StatusData:
		return "DATA"
	case StatusRunning:
		return "RUNNING"
	case StatusSize:
		return "SIZE"
	default:
		return "UNKNOWN"
	}
}

// Description returns the human-readable explanation used by the FSUIPC SDK.
func (s Status) Description() string {
	switch s {
	case StatusOK:
		return "okay"
	case StatusOpen:
		return "attempt to open when already open"
	case StatusNoFS:
		return "cannot link to FSUIPC or WideClient"
	case StatusRegMsg:
		return "failed to register common message with Windows"
	case StatusAtom:
		return "failed to create atom for mapping filename"
	case StatusMap:
		return "failed to create a file mapping object"
	case StatusView:
		return "failed to open a view to the file map"
	case StatusVersion:
		return "incorrect version of FSUIPC, or not FSUIPC"
	case StatusWrongFS:
		return "simulator is not the version requested"
	case StatusNotOpen:
		return "call cannot execute, link not open"
	case StatusNoData:
		return "call cannot execute: no requests accumulated"
	case StatusTimeout:
		return "IPC timed out all retries"
	case StatusSendMsg:
		return "IPC sendmessage failed all retries"
	case StatusData:
		return "IPC request contains bad data"
	case StatusRunning:
		return "maybe running on WideClient, but FS not running on server, or wrong FSUIPC"
	case StatusSize:
		return "read or write request cannot be added, memory for process is full"
	default:
		return fmt.Sprintf("unknown result code %d", uint32(s))
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusOK
}

// Error is an FSUIPC failure carrying a result code.
//
// Use errors.As to recover the code:
//
//	var fErr *wire.Error
//	if errors.As(err, &fErr) && fErr.Status == wire.StatusNoFS {
//	    // simulator not running
//	}
type Error struct {
	// Status is the FSUIPC result code.
	Status Status
	// Message is optional context describing the failing operation.
	Message string
	// Err is the underlying system error, if any.
	Err error
}

// NewError creates an Error with a formatted message.
func NewError(status Status, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an Error wrapping an underlying error.
func WrapError(status Status, err error, message string) *Error {
	return &Error{Status: status, Message: message, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Status.Description()
	if e.Message != "" {
		msg = e.Message + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying system error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same status.
// This lets sentinel values such as &Error{Status: StatusNotOpen} match any
// error carrying that code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Status == e.Status
}

// StatusOf extracts the result code from err.
// Returns StatusOK for nil and StatusData for errors without a code.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var fErr *Error
	if errors.As(err, &fErr) {
		return fErr.Status
	}
	return StatusData
}
