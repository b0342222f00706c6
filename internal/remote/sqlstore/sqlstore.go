// Package sqlstore implements remote.RecordStore on the SQLite store.
//
// It backs the favorites service when no hosted backend is configured and is
// the backend used by tests and the scenario harness.
package sqlstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/storefront/internal/codec"
	"github.com/roach88/storefront/internal/remote"
	"github.com/roach88/storefront/internal/store"
)

// Store adapts *store.Store to remote.RecordStore.
type Store struct {
	st *store.Store
}

var _ remote.RecordStore = (*Store)(nil)

// New wraps st.
func New(st *store.Store) *Store {
	return &Store{st: st}
}

// SelectByIDs returns the records of collection whose id is in ids.
func (s *Store) SelectByIDs(ctx context.Context, collection string, ids []string) ([]remote.Record, error) {
	rows, err := s.st.RecordsByIDs(ctx, collection, ids)
	if err != nil {
		return nil, err
	}
	return decodeAll(rows)
}

// SelectWhere returns the records of collection matching every filter.
func (s *Store) SelectWhere(ctx context.Context, collection string, filters ...remote.Filter) ([]remote.Record, error) {
	rows, err := s.st.RecordsWhere(ctx, collection, toMatches(filters)...)
	if err != nil {
		return nil, err
	}
	return decodeAll(rows)
}

// Insert adds rec under id. Duplicate ids fail with a syncerr Conflict error.
func (s *Store) Insert(ctx context.Context, collection, id string, rec remote.Record) error {
	data, err := codec.Marshal(map[string]any(rec))
	if err != nil {
		return fmt.Errorf("encode record %s/%s: %w", collection, id, err)
	}
	return s.st.InsertRecord(ctx, collection, id, string(data))
}

// DeleteWhere removes the records of collection matching every filter.
func (s *Store) DeleteWhere(ctx context.Context, collection string, filters ...remote.Filter) error {
	_, err := s.st.DeleteRecordsWhere(ctx, collection, toMatches(filters)...)
	return err
}

func toMatches(filters []remote.Filter) []store.Match {
	matches := make([]store.Match, len(filters))
	for i, f := range filters {
		matches[i] = store.Match{Field: f.Field, Value: f.Value}
	}
	return matches
}

func decodeAll(rows []store.Record) ([]remote.Record, error) {
	out := make([]remote.Record, 0, len(rows))
	for _, row := range rows {
		rec := remote.Record{}
		dec := json.NewDecoder(bytes.NewReader([]byte(row.Data)))
		dec.UseNumber()
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode record %s/%s: %w", row.Collection, row.ID, err)
		}
		rec["id"] = row.ID
		out = append(out, rec)
	}
	return out, nil
}
