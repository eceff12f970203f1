// Package connection supervises links to FSUIPC servers.
//
// A Manager opens a link through a ConnectFunc and, once the owner reports
// the link lost, reopens it in the background:
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s
//  3. Maximum delay: 30 seconds, repeated until the link opens
//  4. Reset to 1s after a successful open
//
// Each delay gets up to 25% random jitter so that several clients waiting
// for the same simulator do not retry in lockstep:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
//
// A link counts as open when the ConnectFunc returns nil, which for FSUIPC
// means the version handshake succeeded.
package connection
