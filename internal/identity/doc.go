// Package identity tracks who the current user is and tells the rest of the
// core when that changes.
//
// An auth provider is consumed through Feed. The Watcher performs one initial
// check, then relays provider events to its listeners as ordered Change
// values. Whether the backend answered the initial check is recorded once in
// Identity.BackendReachable and never re-probed.
package identity
