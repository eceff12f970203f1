// Package bridge carries FSUIPC request areas over TCP, in the manner of
// WideFS.
//
// A Server runs next to the simulator and forwards request areas from any
// number of network clients to one shared upstream transport, processing
// them one at a time. A Client is a transport.Transport that dials a
// Server; plug it into fsuipc.NewClient through Connector.
//
// Messages are CBOR maps (see wire.Request and wire.Response) inside
// 4-byte big-endian length-prefixed frames. Servers can advertise
// themselves over mDNS as "_fsuipc._tcp"; Browse finds them.
package bridge
