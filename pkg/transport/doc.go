// Package transport moves FSUIPC request areas between a client and a server.
//
// A Transport processes one terminated request area at a time:
//
//   - Window: the FSUIPC IPC mechanism on Windows. The area is placed in a
//     named page-file mapping whose name is passed to the server as a global
//     atom in a registered window message.
//   - Loopback: an in-process Handler, normally the emulator in pkg/sim.
//
// The package also provides the length-prefixed TCP framing used by the
// network bridge:
//
//	┌────────────────────────────────┐
//	│      CBOR bridge messages      │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│              TCP               │
//	└────────────────────────────────┘
package transport
