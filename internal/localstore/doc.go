// Package localstore is the local persistence adapter: JSON-encoded lists and
// single values kept in durable per-device storage under fixed keys.
//
// Persistence is best-effort. Load never fails outward: absent or corrupt
// data yields the empty value and a logged StorageParse error. Save failures
// (quota, serialization, I/O) are logged and swallowed so that the in-memory
// operation that triggered them is never blocked.
//
// Separate List and Value instances under distinct keys never share state.
package localstore
