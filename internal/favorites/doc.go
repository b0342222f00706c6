// Package favorites implements the favorites engine.
//
// The engine is an explicit state machine over Loading, LocalBacked and
// RemoteBacked. Identity changes are the only trigger for choosing a backend:
// anonymous or backend-unreachable identities are served from the device
// list, signed-in identities from the remote adapter. A transition replaces
// the visible list wholesale; anonymous favorites are not merged into the
// remote set on sign-in.
//
// Toggles are optimistic. The in-memory list changes first and the write
// follows. Remote writes go through a single-writer FIFO queue drained by
// Run, so two rapid opposite toggles of one product reach the backend in
// order. A remote write that still fails after retries is reported with a
// notice and is not rolled back.
package favorites
