// Package monitor polls a set of FSUIPC offsets and reports changes.
//
// A Watcher reads every watched definition in one request area per
// interval. The first successful poll produces a priming notification
// carrying all values. Later polls report only values whose raw bytes
// changed, coalesced over MinInterval; a value that changes and returns
// to its last reported bytes inside the window is not reported. When
// nothing was reported for Heartbeat, the last known values are re-sent.
//
// Poll errors go to the error callback and the loop keeps running. A
// NotOpen error resets the watcher so the next successful poll primes
// again.
package monitor
