// Package wire defines the byte layouts spoken between FSUIPC clients and
// servers.
//
// # Request Area
//
// FSUIPC clients exchange data with the simulator through a request area: a
// block of at most MaxAreaSize bytes holding a sequence of little-endian
// records terminated by a zero id.
//
//	read:  id=1 | offset | nBytes | dest pointer | nBytes payload (filled by server)
//	write: id=2 | offset | nBytes | nBytes payload
//	end:   id=0
//
// The width of the dest pointer depends on the client's bitness, so the area
// encoding is parameterised by a Layout. Clients store an opaque token in the
// pointer field; servers never interpret it.
//
// # Status Codes
//
// Status carries the FSUIPC result codes (FSUIPC_ERR_*). Error wraps a status
// with context and is the error type returned by every layer of this module.
//
// # Bridge Messages
//
// The network bridge carries request areas inside CBOR messages with integer
// keys, length-prefixed on a TCP stream. See Request and Response.
package wire
