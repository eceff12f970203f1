// Command libfsuipc builds a C shared library over the Go client for
// scripting runtimes such as Python ctypes:
//
//	go build -buildmode=c-shared -o libfsuipc.so ./cmd/libfsuipc
//
// Every call except fsuipc_open and fsuipc_last_error returns an FSUIPC
// result code (0 is success). fsuipc_open returns a positive handle, or a
// negated result code on failure; the failure text is then available from
// fsuipc_last_error(0).
//
// The backend and target arguments of fsuipc_open may be NULL, in which
// case the configuration file named by FSUIPC_CONFIG and the FSUIPC_*
// environment decide.
package main

/*
#include <stdint.h>
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"github.com/voneiden/gofsuipc/internal/capi"
	"github.com/voneiden/gofsuipc/pkg/wire"
)

var registry = capi.NewRegistry(nil)

func main() {}

// buffer views n bytes of caller memory. The memory stays owned by the
// caller.
func buffer(p unsafe.Pointer, n C.int32_t) []byte {
	if p == nil || n <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(p), int(n))
}

func status(s wire.Status) C.uint32_t {
	return C.uint32_t(s)
}

//export fsuipc_open
func fsuipc_open(backend, target *C.char, sim C.uint32_t) C.int32_t {
	h, s := registry.Open(C.GoString(backend), C.GoString(target), uint32(sim))
	if s != wire.StatusOK {
		return -C.int32_t(s)
	}
	return C.int32_t(h)
}

// fsuipc_read queues a read. dst must stay valid until fsuipc_process.
//
//export fsuipc_read
func fsuipc_read(h C.int32_t, offset C.uint32_t, size C.int32_t, dst unsafe.Pointer) C.uint32_t {
	return status(registry.Read(capi.Handle(h), uint32(offset), buffer(dst, size)))
}

//export fsuipc_write
func fsuipc_write(h C.int32_t, offset C.uint32_t, size C.int32_t, src unsafe.Pointer) C.uint32_t {
	return status(registry.Write(capi.Handle(h), uint32(offset), buffer(src, size)))
}

//export fsuipc_process
func fsuipc_process(h C.int32_t) C.uint32_t {
	return status(registry.Process(capi.Handle(h)))
}

//export fsuipc_read_now
func fsuipc_read_now(h C.int32_t, offset C.uint32_t, size C.int32_t, dst unsafe.Pointer) C.uint32_t {
	return status(registry.ReadNow(capi.Handle(h), uint32(offset), buffer(dst, size)))
}

//export fsuipc_write_now
func fsuipc_write_now(h C.int32_t, offset C.uint32_t, size C.int32_t, src unsafe.Pointer) C.uint32_t {
	return status(registry.WriteNow(capi.Handle(h), uint32(offset), buffer(src, size)))
}

//export fsuipc_close
func fsuipc_close(h C.int32_t) C.uint32_t {
	return status(registry.Close(capi.Handle(h)))
}

// fsuipc_last_error returns a copy the caller releases with fsuipc_free,
// or NULL when there is no error.
//
//export fsuipc_last_error
func fsuipc_last_error(h C.int32_t) *C.char {
	msg := registry.LastError(capi.Handle(h))
	if msg == "" {
		return nil
	}
	return C.CString(msg)
}

//export fsuipc_free
func fsuipc_free(p *C.char) {
	C.free(unsafe.Pointer(p))
}
