// Package store defines the document-store abstraction the whole
// pipeline is written against. Two implementations satisfy it:
// mongostore (production, go.mongodb.org/mongo-driver) and memstore
// (in-memory, used by unit tests) — mirroring the way the teacher
// repo's mem package implements sql.Table as an in-memory stand-in for
// a real storage engine.
package store

import "context"

// Row is the document shape used throughout the pipeline: a loosely
// typed attribute map (§3, §9 "Row as map<string, Value>").
type Row = map[string]any

// Filter is a MongoDB-style query document. Operators used by this
// pipeline are $eq, $ne, $gt, $lt, $gte, $lte, $in, $nin, $or, $set.
type Filter = map[string]any

// Store opens named collections. A Store is safe for concurrent use
// by multiple jobs (§5 "document store is the sole shared mutable resource").
type Store interface {
	Collection(name string) Collection
	Close(ctx context.Context) error
}

// FindOptions configures a batched cursor read.
type FindOptions struct {
	BatchSize int
	Sort      []string
}

// Cursor streams documents without materializing the whole result set
// in memory (§5 memory discipline).
type Cursor interface {
	Next(ctx context.Context) bool
	Decode(out *Row) error
	Err() error
	Close(ctx context.Context) error
}

// WriteModel is one operation in a BulkWrite call (§4.3 step 4f "Emit
// the batch as bulk unordered writes").
type WriteModel interface {
	isWriteModel()
}

// InsertModel inserts a single new document.
type InsertModel struct {
	Document Row
}

func (InsertModel) isWriteModel() {}

// UpsertModel updates a document matching Filter with Update, or
// inserts Update's fields (plus the filter's) as a new document when
// no match exists.
type UpsertModel struct {
	Filter Filter
	Update Row
}

func (UpsertModel) isWriteModel() {}

// UpdateModel updates a document matching Filter with Update without
// inserting when absent.
type UpdateModel struct {
	Filter Filter
	Update Row
}

func (UpdateModel) isWriteModel() {}

// DeleteModel deletes documents matching Filter.
type DeleteModel struct {
	Filter Filter
}

func (DeleteModel) isWriteModel() {}

// BulkResult aggregates the outcome of a BulkWrite call.
type BulkResult struct {
	Inserted int64
	Upserted int64
	Modified int64
	Deleted  int64
	Errors   int64
}

// Collection is a single named collection (the teacher's sql.Table
// analog, but document-shaped and without a fixed schema).
type Collection interface {
	Name() string

	InsertOne(ctx context.Context, doc Row) (id any, err error)
	InsertMany(ctx context.Context, docs []Row) error

	Find(ctx context.Context, filter Filter, opts FindOptions) (Cursor, error)
	FindOne(ctx context.Context, filter Filter) (Row, bool, error)
	CountDocuments(ctx context.Context, filter Filter) (int64, error)

	UpdateOne(ctx context.Context, filter Filter, update Row, upsert bool) error
	DeleteMany(ctx context.Context, filter Filter) (int64, error)

	BulkWrite(ctx context.Context, models []WriteModel) (BulkResult, error)

	EnsureIndex(ctx context.Context, fields ...string) error
}
