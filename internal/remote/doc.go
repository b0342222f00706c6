// Package remote is the remote persistence adapter for favorites.
//
// The backend is consumed through RecordStore, a deliberately narrow
// filtered-query contract over named collections: select by id list, select
// by equality filters, insert one, delete by equality filters. Two backends
// implement it: sqlstore (SQLite) and firestore (Cloud Firestore).
//
// Favorites are association records (user_id, product_id) in the "favorites"
// collection; product records live in "products". Every failure other than a
// duplicate insert is reported as a syncerr Backend error. Falling back is the
// caller's job, not this package's.
package remote
