//go:build windows

package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/voneiden/gofsuipc/pkg/wire"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procFindWindowW            = user32.NewProc("FindWindowW")
	procRegisterWindowMessageW = user32.NewProc("RegisterWindowMessageW")
	procSendMessageTimeoutW    = user32.NewProc("SendMessageTimeoutW")
	procGlobalAddAtomW         = kernel32.NewProc("GlobalAddAtomW")
	procGlobalDeleteAtom       = kernel32.NewProc("GlobalDeleteAtom")
)

const smtoBlock = 0x0001

// atomCounter makes mapping names unique within the process.
var atomCounter atomic.Uint32

// Window is a Transport talking to FSUIPC through a registered window
// message and a named shared memory mapping.
type Window struct {
	opts WindowOptions

	mu      sync.Mutex
	hwnd    uintptr
	msg     uint32
	atom    uint16
	mapping windows.Handle
	view    uintptr
	closed  bool
}

// OpenWindow links to a running FSUIPC (or WideClient) server.
func OpenWindow(opts WindowOptions) (*Window, error) {
	opts = opts.withDefaults()
	w := &Window{opts: opts}

	for _, class := range opts.Classes {
		name, err := windows.UTF16PtrFromString(class)
		if err != nil {
			return nil, wire.WrapError(wire.StatusNoFS, err, "window class")
		}
		hwnd, _, _ := procFindWindowW.Call(uintptr(unsafe.Pointer(name)), 0)
		if hwnd != 0 {
			w.hwnd = hwnd
			break
		}
	}
	if w.hwnd == 0 {
		return nil, wire.NewError(wire.StatusNoFS, "no window of class %v", opts.Classes)
	}

	msgName, _ := windows.UTF16PtrFromString(IPCMessageName)
	msg, _, callErr := procRegisterWindowMessageW.Call(uintptr(unsafe.Pointer(msgName)))
	if msg == 0 {
		return nil, wire.WrapError(wire.StatusRegMsg, callErr, "RegisterWindowMessage")
	}
	w.msg = uint32(msg)

	mapName := fmt.Sprintf("%s:%X:%X", IPCMessageName, windows.GetCurrentProcessId(), atomCounter.Add(1)-1)
	mapNamePtr, _ := windows.UTF16PtrFromString(mapName)

	atom, _, callErr := procGlobalAddAtomW.Call(uintptr(unsafe.Pointer(mapNamePtr)))
	if atom == 0 {
		return nil, wire.WrapError(wire.StatusAtom, callErr, "GlobalAddAtom")
	}
	w.atom = uint16(atom)

	mapping, err := windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_READWRITE, 0, wire.MappingSize, mapNamePtr)
	if err != nil {
		if mapping != 0 {
			// ERROR_ALREADY_EXISTS: someone else owns this name.
			windows.CloseHandle(mapping)
		}
		w.release()
		return nil, wire.WrapError(wire.StatusMap, err, "CreateFileMapping "+mapName)
	}
	w.mapping = mapping

	view, err := windows.MapViewOfFile(mapping, windows.FILE_MAP_WRITE, 0, 0, 0)
	if err != nil || view == 0 {
		w.release()
		return nil, wire.WrapError(wire.StatusView, err, "MapViewOfFile")
	}
	w.view = view

	// Empty area.
	*(*uint32)(unsafe.Pointer(view)) = 0
	return w, nil
}

// Layout returns the native layout: FSUIPC reads the dest pointer with the
// width of the calling process.
func (w *Window) Layout() wire.Layout {
	return wire.NativeLayout()
}

// Process copies the area into the mapping, signals the server and copies
// the result back.
func (w *Window) Process(ctx context.Context, area []byte) error {
	if len(area) > wire.MaxAreaSize {
		return wire.NewError(wire.StatusSize, "area of %d bytes", len(area))
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.view == 0 {
		return wire.WrapError(wire.StatusNotOpen, ErrConnectionClosed, "window")
	}

	shared := unsafe.Slice((*byte)(unsafe.Pointer(w.view)), wire.MappingSize)
	copy(shared, area)

	timeout := uintptr(w.opts.SendTimeout / time.Millisecond)
	var lastErr error
	for attempt := 0; attempt < w.opts.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return wire.WrapError(wire.StatusTimeout, ctx.Err(), "process")
			case <-time.After(w.opts.RetryDelay):
			}
		}

		var result uintptr
		ok, _, callErr := procSendMessageTimeoutW.Call(
			w.hwnd,
			uintptr(w.msg),
			uintptr(w.atom),
			0,
			smtoBlock,
			timeout,
			uintptr(unsafe.Pointer(&result)),
		)
		if ok == 0 {
			lastErr = callErr
			continue
		}
		if result != ipcSuccess {
			return wire.NewError(wire.StatusData, "server replied %d", result)
		}

		copy(area, shared[:len(area)])
		return nil
	}

	var errno syscall.Errno
	if lastErr == nil || (errors.As(lastErr, &errno) && errno == 0) {
		return wire.NewError(wire.StatusTimeout, "after %d attempts", w.opts.Retries)
	}
	return wire.WrapError(wire.StatusSendMsg, lastErr, fmt.Sprintf("after %d attempts", w.opts.Retries))
}

// Close unmaps the view and releases the mapping and atom.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.release()
	return nil
}

func (w *Window) release() {
	if w.view != 0 {
		windows.UnmapViewOfFile(w.view)
		w.view = 0
	}
	if w.mapping != 0 {
		windows.CloseHandle(w.mapping)
		w.mapping = 0
	}
	if w.atom != 0 {
		procGlobalDeleteAtom.Call(uintptr(w.atom))
		w.atom = 0
	}
	w.hwnd = 0
}

var _ Transport = (*Window)(nil)
