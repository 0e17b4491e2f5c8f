// Package cursorcache persists an advisory resume point per
// collection so a crashed promotion run (C5) does not rescan the raw
// collection from the beginning (SPEC_FULL.md §1 domain stack). It is
// backed by github.com/boltdb/bolt, a direct teacher dependency, used
// here the way the teacher uses it as an embedded single-file store
// rather than as the engine's primary SQL storage.
//
// The cache is never a correctness dependency: a missing or corrupt
// file simply restarts the scan from the top, which promotion already
// tolerates under §8 property 3 (identity stability) and property 5
// (backup monotonicity).
package cursorcache

import (
	"github.com/boltdb/bolt"
)

var bucketName = []byte("cursors")

// Cache wraps a bolt.DB used purely as a key-value resume-point store.
type Cache struct {
	db *bolt.DB
}

// Open opens (creating if absent) the bolt file at path.
func Open(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying bolt file.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the last resume cursor recorded for collection, or ""
// with ok=false when none is recorded.
func (c *Cache) Get(collection string) (cursor string, ok bool, err error) {
	err = c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		v := b.Get([]byte(collection))
		if v != nil {
			cursor = string(v)
			ok = true
		}
		return nil
	})
	return cursor, ok, err
}

// Set records the resume cursor for collection, overwriting any prior
// value. Called between batches (§5 suspension points), never mid-batch.
func (c *Cache) Set(collection, cursor string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.Put([]byte(collection), []byte(cursor))
	})
}

// Clear removes the resume cursor for collection, called when a
// promotion run completes a collection fully (the next run should
// scan from the top again rather than skip newly-ingested rows with
// smaller ids than the stale cursor).
func (c *Cache) Clear(collection string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.Delete([]byte(collection))
	})
}
