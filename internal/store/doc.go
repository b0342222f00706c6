// Package store provides SQLite-backed durable storage for the storefront.
//
// Two tables live in one database file:
//   - kv: device-local key/value pairs (the browser local storage analogue).
//     Values are opaque strings; callers encode them.
//   - records: JSON documents grouped by collection, used by the SQL record
//     service that stands in for the remote backend.
//
// Every write is stamped with a monotonic logical sequence number. The clock
// resumes from the highest stored seq when a database is reopened, so
// last-write-wins ordering survives restarts.
//
// # Quota
//
// The kv table enforces a byte quota across all keys (default 5 MiB). A Set
// that would exceed it fails with a syncerr Quota error and leaves the previous
// value untouched.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
