package remote

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/roach88/storefront/internal/shop"
	"github.com/roach88/storefront/internal/syncerr"
)

// createdAtLayout is fixed width so that timestamps sort lexicographically.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

// DefaultProductCacheTTL bounds how long a fetched product record is reused.
const DefaultProductCacheTTL = time.Minute

// Favorites reads and writes a user's favorites through a RecordStore.
// Safe for concurrent use.
type Favorites struct {
	records RecordStore
	cache   *ttlcache.Cache[string, shop.Product]
	now     func() time.Time
	logger  *slog.Logger
}

// FavoritesOption configures Favorites.
type FavoritesOption func(*favoritesConfig)

type favoritesConfig struct {
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// WithProductCacheTTL sets the product cache lifetime. Zero disables caching.
func WithProductCacheTTL(ttl time.Duration) FavoritesOption {
	return func(c *favoritesConfig) { c.ttl = ttl }
}

// WithNow overrides the clock used for association timestamps.
func WithNow(now func() time.Time) FavoritesOption {
	return func(c *favoritesConfig) { c.now = now }
}

// WithLogger sets the adapter logger.
func WithLogger(l *slog.Logger) FavoritesOption {
	return func(c *favoritesConfig) { c.logger = l }
}

// NewFavorites creates the adapter.
func NewFavorites(records RecordStore, opts ...FavoritesOption) *Favorites {
	cfg := favoritesConfig{ttl: DefaultProductCacheTTL, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	f := &Favorites{records: records, now: cfg.now, logger: cfg.logger}
	if cfg.ttl > 0 {
		f.cache = ttlcache.New[string, shop.Product](
			ttlcache.WithTTL[string, shop.Product](cfg.ttl),
			ttlcache.WithDisableTouchOnHit[string, shop.Product](),
		)
	}
	return f
}

// AssociationID is the document id of the (user, product) favorite record.
// The user id is length-prefixed so that distinct pairs never share an id,
// whatever characters the ids contain.
func AssociationID(userID, productID string) string {
	return fmt.Sprintf("%d:%s__%s", len(userID), userID, productID)
}

// FetchAll returns the products favorited by userID, oldest favorite first.
// Associations whose product record no longer exists are skipped.
func (f *Favorites) FetchAll(ctx context.Context, userID string) ([]shop.Product, error) {
	assocs, err := f.records.SelectWhere(ctx, FavoritesCollection, Eq("user_id", userID))
	if err != nil {
		return nil, syncerr.Backend("favorites.fetch", err)
	}

	sort.SliceStable(assocs, func(i, j int) bool {
		return assocs[i].String("created_at") < assocs[j].String("created_at")
	})

	seen := make(map[string]struct{}, len(assocs))
	ids := make([]string, 0, len(assocs))
	for _, a := range assocs {
		pid := a.String("product_id")
		if pid == "" {
			continue
		}
		if _, dup := seen[pid]; dup {
			continue
		}
		seen[pid] = struct{}{}
		ids = append(ids, pid)
	}

	if len(ids) == 0 {
		return []shop.Product{}, nil
	}

	products, err := f.Products(ctx, ids)
	if err != nil {
		return nil, err
	}
	if missing := len(ids) - len(products); missing > 0 {
		f.logger.Debug("favorites reference missing products", "user", userID, "missing", missing)
	}
	return products, nil
}

// Add records that userID favorited productID.
// Returns a syncerr Conflict error if the association already exists.
func (f *Favorites) Add(ctx context.Context, userID, productID string) error {
	id := AssociationID(userID, productID)
	err := f.records.Insert(ctx, FavoritesCollection, id, Record{
		"user_id":    userID,
		"product_id": productID,
		"created_at": f.now().UTC().Format(createdAtLayout),
	})
	switch {
	case err == nil:
		return nil
	case syncerr.IsConflict(err):
		return syncerr.Conflict("favorites.add", id)
	default:
		return syncerr.Backend("favorites.add", err)
	}
}

// Remove deletes the association. Removing an absent association succeeds.
func (f *Favorites) Remove(ctx context.Context, userID, productID string) error {
	err := f.records.DeleteWhere(ctx, FavoritesCollection, Eq("user_id", userID), Eq("product_id", productID))
	if err != nil {
		return syncerr.Backend("favorites.remove", err)
	}
	return nil
}

// Products returns the product records for ids in the order given, skipping
// unknown ids. Cached records are not refetched.
func (f *Favorites) Products(ctx context.Context, ids []string) ([]shop.Product, error) {
	found := make(map[string]shop.Product, len(ids))
	var misses []string
	for _, id := range ids {
		if f.cache != nil {
			if item := f.cache.Get(id); item != nil {
				found[id] = item.Value()
				continue
			}
		}
		misses = append(misses, id)
	}

	if len(misses) > 0 {
		recs, err := f.records.SelectByIDs(ctx, ProductsCollection, misses)
		if err != nil {
			return nil, syncerr.Backend("products.fetch", err)
		}
		for _, rec := range recs {
			p, err := productFromRecord(rec)
			if err != nil {
				f.logger.Warn("skipping malformed product record", "id", rec.String("id"), "error", err)
				continue
			}
			found[p.ID] = p
			if f.cache != nil {
				f.cache.Set(p.ID, p, ttlcache.DefaultTTL)
			}
		}
	}

	out := make([]shop.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := found[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// PutProduct inserts a product record. Returns a syncerr Conflict error if
// the product already exists.
func (f *Favorites) PutProduct(ctx context.Context, p shop.Product) error {
	err := f.records.Insert(ctx, ProductsCollection, p.ID, productToRecord(p))
	switch {
	case err == nil:
		return nil
	case syncerr.IsConflict(err):
		return syncerr.Conflict("products.insert", p.ID)
	default:
		return syncerr.Backend("products.insert", err)
	}
}

func productToRecord(p shop.Product) Record {
	return Record{"id": p.ID, "name": p.Name, "price": p.Price, "image": p.Image}
}

func productFromRecord(rec Record) (shop.Product, error) {
	id := rec.String("id")
	if id == "" {
		return shop.Product{}, fmt.Errorf("product record without id")
	}
	price, err := rec.Int("price")
	if err != nil {
		return shop.Product{}, err
	}
	return shop.Product{
		ID:    id,
		Name:  rec.String("name"),
		Price: price,
		Image: rec.String("image"),
	}, nil
}
