// Package memstore is an in-memory store.Store, used by unit tests in
// place of a real MongoDB deployment. It mirrors the teacher repo's
// mem package, which backs sql.Database/sql.Table with plain Go
// slices instead of a real storage engine.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sidm01890/reconciler/internal/store"
)

// New creates an empty in-memory Store.
func New() *Store {
	return &Store{collections: map[string]*Collection{}}
}

// Store is an in-memory store.Store.
type Store struct {
	mu          sync.Mutex
	collections map[string]*Collection
}

// Collection returns (creating if absent) the named collection.
func (s *Store) Collection(name string) store.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = &Collection{name: name}
		s.collections[name] = c
	}
	return c
}

// Close is a no-op for the in-memory store.
func (s *Store) Close(ctx context.Context) error { return nil }

// Collection is an in-memory store.Collection backed by a slice of
// documents, each carrying a synthetic "_id".
type Collection struct {
	mu      sync.Mutex
	name    string
	docs    []store.Row
	nextID  int64
	indexes [][]string
}

func (c *Collection) Name() string { return c.name }

func (c *Collection) InsertOne(ctx context.Context, doc store.Row) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insertLocked(doc), nil
}

func (c *Collection) insertLocked(doc store.Row) any {
	c.nextID++
	id := c.nextID
	clone := cloneRow(doc)
	if _, ok := clone["_id"]; !ok {
		clone["_id"] = id
	}
	c.docs = append(c.docs, clone)
	return clone["_id"]
}

func (c *Collection) InsertMany(ctx context.Context, docs []store.Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range docs {
		c.insertLocked(d)
	}
	return nil
}

func (c *Collection) Find(ctx context.Context, filter store.Filter, opts store.FindOptions) (store.Cursor, error) {
	c.mu.Lock()
	matched := make([]store.Row, 0)
	for _, d := range c.docs {
		if matches(d, filter) {
			matched = append(matched, cloneRow(d))
		}
	}
	c.mu.Unlock()

	if len(opts.Sort) > 0 {
		sortRows(matched, opts.Sort)
	}

	return &cursor{rows: matched, pos: -1}, nil
}

func (c *Collection) FindOne(ctx context.Context, filter store.Filter) (store.Row, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.docs {
		if matches(d, filter) {
			return cloneRow(d), true, nil
		}
	}
	return nil, false, nil
}

func (c *Collection) CountDocuments(ctx context.Context, filter store.Filter) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, d := range c.docs {
		if matches(d, filter) {
			n++
		}
	}
	return n, nil
}

func (c *Collection) UpdateOne(ctx context.Context, filter store.Filter, update store.Row, upsert bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, d := range c.docs {
		if matches(d, filter) {
			for k, v := range update {
				c.docs[i][k] = v
			}
			return nil
		}
	}

	if !upsert {
		return nil
	}

	doc := store.Row{}
	for k, v := range filter {
		if isScalarField(k) {
			doc[k] = v
		}
	}
	for k, v := range update {
		doc[k] = v
	}
	c.insertLocked(doc)
	return nil
}

func (c *Collection) DeleteMany(ctx context.Context, filter store.Filter) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.docs[:0:0]
	var deleted int64
	for _, d := range c.docs {
		if matches(d, filter) {
			deleted++
			continue
		}
		kept = append(kept, d)
	}
	c.docs = kept
	return deleted, nil
}

func (c *Collection) BulkWrite(ctx context.Context, models []store.WriteModel) (store.BulkResult, error) {
	var res store.BulkResult
	for _, m := range models {
		switch op := m.(type) {
		case store.InsertModel:
			if _, err := c.InsertOne(ctx, op.Document); err != nil {
				res.Errors++
				continue
			}
			res.Inserted++
		case store.UpsertModel:
			before, _ := c.CountDocuments(ctx, op.Filter)
			if err := c.UpdateOne(ctx, op.Filter, op.Update, true); err != nil {
				res.Errors++
				continue
			}
			after, _ := c.CountDocuments(ctx, op.Filter)
			if after > before {
				res.Upserted++
			} else {
				res.Modified++
			}
		case store.UpdateModel:
			if err := c.UpdateOne(ctx, op.Filter, op.Update, false); err != nil {
				res.Errors++
				continue
			}
			res.Modified++
		case store.DeleteModel:
			n, err := c.DeleteMany(ctx, op.Filter)
			if err != nil {
				res.Errors++
				continue
			}
			res.Deleted += n
		default:
			return res, fmt.Errorf("memstore: unsupported write model %T", m)
		}
	}
	return res, nil
}

func (c *Collection) EnsureIndex(ctx context.Context, fields ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indexes = append(c.indexes, fields)
	return nil
}

func isScalarField(key string) bool {
	return key != "" && key[0] != '$'
}

func cloneRow(r store.Row) store.Row {
	out := make(store.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func sortRows(rows []store.Row, fields []string) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, f := range fields {
			ci := compare(rows[i][f], rows[j][f])
			if ci != 0 {
				return ci < 0
			}
		}
		return false
	})
}

type cursor struct {
	rows []store.Row
	pos  int
}

func (cur *cursor) Next(ctx context.Context) bool {
	cur.pos++
	return cur.pos < len(cur.rows)
}

func (cur *cursor) Decode(out *store.Row) error {
	if cur.pos < 0 || cur.pos >= len(cur.rows) {
		return fmt.Errorf("memstore: decode called out of range")
	}
	*out = cur.rows[cur.pos]
	return nil
}

func (cur *cursor) Err() error { return nil }

func (cur *cursor) Close(ctx context.Context) error { return nil }
