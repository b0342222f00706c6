// Package firestore implements remote.RecordStore on Cloud Firestore.
//
// Collections map one-to-one onto top-level Firestore collections and record
// ids onto document ids.
package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/roach88/storefront/internal/remote"
	"github.com/roach88/storefront/internal/syncerr"
)

// Store adapts a Firestore client to remote.RecordStore.
type Store struct {
	client *firestore.Client
}

var _ remote.RecordStore = (*Store)(nil)

// New wraps client. The caller owns the client and closes it.
func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

// SelectByIDs fetches the documents for ids in one batched read.
// Missing documents are skipped.
func (s *Store) SelectByIDs(ctx context.Context, collection string, ids []string) ([]remote.Record, error) {
	if len(ids) == 0 {
		return []remote.Record{}, nil
	}

	col := s.client.Collection(collection)
	refs := make([]*firestore.DocumentRef, len(ids))
	for i, id := range ids {
		refs[i] = col.Doc(id)
	}

	snaps, err := s.client.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("firestore get %s: %w", collection, err)
	}

	out := make([]remote.Record, 0, len(snaps))
	for _, snap := range snaps {
		if snap == nil || !snap.Exists() {
			continue
		}
		out = append(out, toRecord(snap))
	}
	return out, nil
}

// SelectWhere runs an equality query.
func (s *Store) SelectWhere(ctx context.Context, collection string, filters ...remote.Filter) ([]remote.Record, error) {
	it := s.query(collection, filters).Documents(ctx)
	defer it.Stop()

	out := []remote.Record{}
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("firestore query %s: %w", collection, err)
		}
		out = append(out, toRecord(snap))
	}
}

// Insert creates the document. An existing document is a syncerr Conflict.
func (s *Store) Insert(ctx context.Context, collection, id string, rec remote.Record) error {
	data := make(map[string]any, len(rec))
	for k, v := range rec {
		if k == "id" {
			continue
		}
		data[k] = v
	}

	_, err := s.client.Collection(collection).Doc(id).Create(ctx, data)
	if status.Code(err) == codes.AlreadyExists {
		return syncerr.Conflict("firestore.insert", collection+"/"+id)
	}
	if err != nil {
		return fmt.Errorf("firestore create %s/%s: %w", collection, id, err)
	}
	return nil
}

// DeleteWhere deletes every document matching filters.
func (s *Store) DeleteWhere(ctx context.Context, collection string, filters ...remote.Filter) error {
	it := s.query(collection, filters).Documents(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("firestore query %s: %w", collection, err)
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			return fmt.Errorf("firestore delete %s/%s: %w", collection, snap.Ref.ID, err)
		}
	}
}

func (s *Store) query(collection string, filters []remote.Filter) firestore.Query {
	q := s.client.Collection(collection).Query
	for _, f := range filters {
		q = q.Where(f.Field, "==", f.Value)
	}
	return q
}

func toRecord(snap *firestore.DocumentSnapshot) remote.Record {
	rec := remote.Record(snap.Data())
	if rec == nil {
		rec = remote.Record{}
	}
	rec["id"] = snap.Ref.ID
	return rec
}
