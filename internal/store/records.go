package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/storefront/internal/syncerr"
)

// Record is a stored JSON document.
type Record struct {
	Collection string
	ID         string
	Data       string
	Seq        int64
}

// Match is an equality filter on a top-level JSON field of a record.
type Match struct {
	Field string
	Value string
}

// InsertRecord inserts a new document.
// Returns a syncerr Conflict error if (collection, id) already exists.
func (s *Store) InsertRecord(ctx context.Context, collection, id, data string) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO records (collection, id, data, seq) VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, id) DO NOTHING
	`, collection, id, data, s.clock.Next())
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert record: rows affected: %w", err)
	}
	if n == 0 {
		return syncerr.Conflict("records.insert", collection+"/"+id)
	}
	return nil
}

// PutRecord inserts or replaces a document.
func (s *Store) PutRecord(ctx context.Context, collection, id, data string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (collection, id, data, seq) VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data, seq = excluded.seq
	`, collection, id, data, s.clock.Next())
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

// RecordsByIDs returns the documents of collection whose id is in ids.
// Missing ids are skipped. Results are ordered by write sequence.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) RecordsByIDs(ctx context.Context, collection string, ids []string) ([]Record, error) {
	if len(ids) == 0 {
		return []Record{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, collection)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT collection, id, data, seq FROM records
		WHERE collection = ? AND id IN (`+placeholders+`)
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query records by id: %w", err)
	}
	return scanRecords(rows)
}

// RecordsWhere returns the documents of collection matching every filter.
// Results are ordered by write sequence.
func (s *Store) RecordsWhere(ctx context.Context, collection string, matches ...Match) ([]Record, error) {
	where, args := matchClause(collection, matches)

	rows, err := s.db.QueryContext(ctx, `
		SELECT collection, id, data, seq FROM records
		WHERE `+where+`
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	return scanRecords(rows)
}

// DeleteRecordsWhere deletes the documents of collection matching every filter
// and returns how many were removed. Deleting nothing is not an error.
func (s *Store) DeleteRecordsWhere(ctx context.Context, collection string, matches ...Match) (int64, error) {
	where, args := matchClause(collection, matches)

	result, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE `+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete records: rows affected: %w", err)
	}
	return n, nil
}

// matchClause builds a WHERE clause. JSON paths are bound as parameters,
// never interpolated.
func matchClause(collection string, matches []Match) (string, []any) {
	clauses := []string{"collection = ?"}
	args := []any{collection}
	for _, m := range matches {
		clauses = append(clauses, "json_extract(data, ?) = ?")
		args = append(args, "$."+m.Field, m.Value)
	}
	return strings.Join(clauses, " AND "), args
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Collection, &r.ID, &r.Data, &r.Seq); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}
