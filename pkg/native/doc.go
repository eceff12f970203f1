// Package native binds the vendor FSUIPC_User client library through cgo.
//
// The binding is compiled only with the fsuipc_native build tag on
// windows/386 and windows/amd64:
//
//	go build -tags fsuipc_native ./...
//
// Every other build gets a stub whose Open fails with StatusNoFS.
//
// Place FSUIPC_User.h in pkg/native/include and the libraries in
// pkg/native/lib. windows/386 links FSUIPC_User and windows/amd64 links
// FSUIPC_User64; both add the Windows system libraries the vendor code
// depends on (advapi32, user32, kernel32, ole32, oleaut32, gdi32, gdiplus,
// imm32).
//
// Without the tag, Open fails with StatusNoFS and Available is false. The
// pure Go window transport in package transport speaks the same protocol
// and needs no vendor library.
//
// The vendor library holds a single link per process. Process replays each
// record of a request area through FSUIPC_Read and FSUIPC_Write and then
// calls FSUIPC_Process, so callers keep using the fsuipc Client unchanged.
package native
